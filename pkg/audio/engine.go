package audio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog"

	"github.com/hiway/cartwall/pkg/sample"
)

// ErrNoAudio indicates a unit was requested for a sample with no decoded audio.
var ErrNoAudio = errors.New("sample has no decoded audio")

// Engine creates playback units for loaded samples.
type Engine interface {
	NewUnit(s *sample.Sample) (Unit, error)
	Close() error
}

var (
	otoCtx *oto.Context
	once   sync.Once
	ctxErr error
)

// initOtoContext initializes the oto context singleton.
func initOtoContext() (*oto.Context, error) {
	once.Do(func() {
		op := &oto.NewContextOptions{}
		op.SampleRate = sample.SampleRate
		op.ChannelCount = sample.ChannelCount
		op.Format = oto.FormatSignedInt16LE

		var readyChan chan struct{}
		otoCtx, readyChan, ctxErr = oto.NewContext(op)
		if ctxErr == nil {
			<-readyChan // Wait for the context to be ready
		}
	})
	return otoCtx, ctxErr
}

// OtoEngine plays samples through the ebitengine/oto/v3 backend.
type OtoEngine struct {
	log zerolog.Logger
	ctx *oto.Context
}

// NewOtoEngine creates an engine backed by the shared oto context.
func NewOtoEngine(log zerolog.Logger) (*OtoEngine, error) {
	ctx, err := initOtoContext()
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize Oto audio context")
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}
	log.Debug().Msg("Oto audio context initialized successfully")

	return &OtoEngine{
		log: log.With().Str("engine_type", "oto").Logger(),
		ctx: ctx,
	}, nil
}

// NewUnit wraps the sample's decoded PCM in a fresh playback unit.
func (e *OtoEngine) NewUnit(s *sample.Sample) (Unit, error) {
	if s == nil || len(s.PCM()) == 0 {
		return nil, ErrNoAudio
	}
	e.log.Debug().
		Str("sample_name", s.Name()).
		Dur("duration", s.Duration()).
		Msg("Creating playback unit")

	return &otoUnit{
		log: e.log.With().Str("sample_name", s.Name()).Logger(),
		ctx: e.ctx,
		smp: s,
	}, nil
}

// Close cleans up the OtoEngine resources.
func (e *OtoEngine) Close() error {
	e.log.Debug().Msg("Closing OtoEngine")
	// The Oto context is global and shared, so we don't close it here.
	return nil
}

// --- StubEngine (kept for testing) ---

// StubEngine simulates playback by sleeping, without touching audio hardware.
type StubEngine struct {
	log   zerolog.Logger
	delay time.Duration
}

// NewStubEngine creates an engine whose units simulate playback for delay.
// A zero delay completes each play immediately.
func NewStubEngine(log zerolog.Logger, delay time.Duration) *StubEngine {
	return &StubEngine{
		log:   log.With().Str("engine_type", "stub").Logger(),
		delay: delay,
	}
}

// NewUnit returns a unit that sleeps for the engine's delay instead of playing.
func (e *StubEngine) NewUnit(s *sample.Sample) (Unit, error) {
	if s == nil || len(s.PCM()) == 0 {
		return nil, ErrNoAudio
	}
	e.log.Debug().Str("sample_name", s.Name()).Msg("Creating stub playback unit")
	return &stubUnit{
		log:      e.log.With().Str("sample_name", s.Name()).Logger(),
		delay:    e.delay,
		haltChan: make(chan struct{}),
	}, nil
}

// Close cleans up the StubEngine resources.
func (e *StubEngine) Close() error {
	e.log.Debug().Msg("Closing StubEngine")
	return nil
}
