package pad

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hiway/cartwall/pkg/audio"
	"github.com/hiway/cartwall/pkg/sample"
)

// ErrBusy indicates an operation arrived while the pad was playing. Load and
// Play are rejected in that window rather than queued; the live unit is never
// interrupted.
var ErrBusy = errors.New("pad is busy playing")

// State is the visual state a front end renders for a pad.
type State int

const (
	// Idle means no sample is assigned.
	Idle State = iota
	// Loaded means a sample is assigned and ready to fire.
	Loaded
	// Playing means a playback unit is currently active.
	Playing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loaded:
		return "loaded"
	case Playing:
		return "playing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Listener receives every pad state transition. It may be called from a
// playback goroutine; implementations owning UI state must marshal onto
// their own thread.
type Listener func(p *Pad, s State)

// Operations is the closed set of actions a front end can ask of a pad.
type Operations interface {
	Load(path string) error
	Play() error
	// Loop is reserved: looping playback is not implemented and the
	// operation currently does nothing.
	Loop() error
	Reset() error
}

// Pad is one user-triggerable slot holding at most one sample. At most one
// playback unit runs per pad at any time; the busy guard rejects re-triggers
// while a play is in flight.
type Pad struct {
	index    int
	engine   audio.Engine
	log      zerolog.Logger
	listener Listener

	mu    sync.Mutex
	smp   *sample.Sample
	state State
	busy  bool
}

var _ Operations = (*Pad)(nil)

// New creates a pad with the given ordinal (1..N).
func New(index int, engine audio.Engine, listener Listener, log zerolog.Logger) *Pad {
	return &Pad{
		index:    index,
		engine:   engine,
		listener: listener,
		log:      log.With().Int("pad", index).Logger(),
		state:    Idle,
	}
}

// Index returns the pad's ordinal, assigned at creation and never reused.
func (p *Pad) Index() int { return p.index }

// State returns the current visual state.
func (p *Pad) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Label returns the loaded sample's name, or the pad ordinal when empty.
func (p *Pad) Label() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.smp != nil {
		return p.smp.Name()
	}
	return strconv.Itoa(p.index)
}

// Load validates and assigns a new sample, replacing any previous one. On
// failure the pad keeps its prior sample and state. Rejected with ErrBusy
// while the pad is playing.
func (p *Pad) Load(path string) error {
	p.mu.Lock()
	if p.busy {
		p.mu.Unlock()
		return ErrBusy
	}
	p.mu.Unlock()

	smp, err := sample.Load(path)
	if err != nil {
		p.log.Error().Err(err).Str("path", path).Msg("Failed to load sample")
		return err
	}

	p.mu.Lock()
	if p.busy {
		// A play slipped in while we were decoding; keep the live sample.
		p.mu.Unlock()
		return ErrBusy
	}
	p.smp = smp
	p.state = Loaded
	p.mu.Unlock()

	p.log.Debug().Str("sample_name", smp.Name()).Msg("Sample loaded")
	p.notify(Loaded)
	return nil
}

// Play fires the loaded sample on a fresh playback unit. A pad with no
// sample is a no-op; a pad already playing returns ErrBusy.
func (p *Pad) Play() error {
	p.mu.Lock()
	if p.smp == nil {
		p.mu.Unlock()
		return nil
	}
	if p.busy {
		p.mu.Unlock()
		p.log.Trace().Msg("Ignoring trigger while playing")
		return ErrBusy
	}
	smp := p.smp
	p.busy = true
	p.mu.Unlock()

	unit, err := p.engine.NewUnit(smp)
	if err != nil {
		p.mu.Lock()
		p.busy = false
		p.mu.Unlock()
		p.log.Error().Err(err).Msg("Failed to create playback unit")
		return fmt.Errorf("failed to play pad %d: %w", p.index, err)
	}

	p.log.Debug().Str("sample_name", smp.Name()).Msg("Starting playback")
	unit.Start(p.onStart, p.onStop)
	return nil
}

// Loop is reserved for looping playback, which is not implemented. It does
// nothing and returns nil so front ends can expose the operation already.
func (p *Pad) Loop() error {
	p.log.Debug().Msg("Looping playback is not implemented")
	return nil
}

// Reset drops the sample and returns the pad to Idle from any state. An
// in-flight playback is not interrupted; it finishes in the background and
// the pad stays Idle afterwards.
func (p *Pad) Reset() error {
	p.mu.Lock()
	p.smp = nil
	p.state = Idle
	p.mu.Unlock()

	p.log.Debug().Msg("Pad reset")
	p.notify(Idle)
	return nil
}

// onStart runs on the unit's goroutine before audio begins.
func (p *Pad) onStart() {
	p.mu.Lock()
	p.state = Playing
	p.mu.Unlock()
	p.notify(Playing)
}

// onStop runs on the unit's goroutine after playback ends, clearing the
// busy guard so the pad can fire again. A reset issued mid-play leaves the
// pad Idle rather than Loaded.
func (p *Pad) onStop() {
	p.mu.Lock()
	next := Loaded
	if p.smp == nil {
		next = Idle
	}
	p.state = next
	p.busy = false
	p.mu.Unlock()
	p.notify(next)
}

// notify delivers a transition to the listener, outside the pad lock.
func (p *Pad) notify(s State) {
	if p.listener != nil {
		p.listener(p, s)
	}
}
