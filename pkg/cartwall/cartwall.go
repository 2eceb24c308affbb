package cartwall

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hiway/cartwall/pkg/audio"
	"github.com/hiway/cartwall/pkg/clock"
	"github.com/hiway/cartwall/pkg/config"
	"github.com/hiway/cartwall/pkg/pad"
)

// Cartwall owns the pad bank and the clock broadcaster, and wires front-end
// events onto them.
type Cartwall struct {
	cfg      *config.Config
	engine   audio.Engine
	pads     []*pad.Pad
	clock    *clock.Broadcaster
	log      zerolog.Logger
	stopOnce sync.Once
}

// New creates a cartwall with cfg.PadCount pads and a running clock
// broadcaster. A nil engine selects the oto backend. The listener receives
// every pad state transition; it may be nil.
func New(cfg *config.Config, engine audio.Engine, listener pad.Listener, log zerolog.Logger) (*Cartwall, error) {
	log = log.With().Str("component", "cartwall").Logger()

	if engine == nil {
		e, err := audio.NewOtoEngine(log)
		if err != nil {
			return nil, fmt.Errorf("failed to create audio engine: %w", err)
		}
		engine = e
	}

	count := cfg.PadCount
	if count <= 0 {
		count = config.DefaultPadCount
	}
	pads := make([]*pad.Pad, count)
	for i := range pads {
		pads[i] = pad.New(i+1, engine, listener, log)
	}

	c := &Cartwall{
		cfg:    cfg,
		engine: engine,
		pads:   pads,
		clock:  clock.New(log),
		log:    log,
	}
	c.clock.Start()

	return c, nil
}

// Pads returns the pad bank in ordinal order.
func (c *Cartwall) Pads() []*pad.Pad { return c.pads }

// Pad returns the pad with the given ordinal (1..N), or nil if out of range.
func (c *Cartwall) Pad(ordinal int) *pad.Pad {
	if ordinal < 1 || ordinal > len(c.pads) {
		return nil
	}
	return c.pads[ordinal-1]
}

// Clock returns the broadcaster so front ends can register observers.
func (c *Cartwall) Clock() *clock.Broadcaster { return c.clock }

// LoadSheet applies the configured pad entries in order. Failures are
// reported per pad and do not abort the remaining entries; the returned map
// is keyed by pad ordinal.
func (c *Cartwall) LoadSheet() map[int]error {
	failures := make(map[int]error)
	for i, entry := range c.cfg.Pads {
		ordinal := i + 1
		p := c.Pad(ordinal)
		if p == nil {
			break
		}
		if err := p.Load(entry.File); err != nil {
			c.log.Error().Err(err).Int("pad", ordinal).Str("file", entry.File).Msg("Failed to load pad entry")
			failures[ordinal] = err
			continue
		}
		c.log.Info().Int("pad", ordinal).Str("label", p.Label()).Msg("Pad loaded")
	}
	return failures
}

// Trigger fires the pad with the given ordinal. Out-of-range ordinals and
// busy pads are ignored.
func (c *Cartwall) Trigger(ordinal int) {
	p := c.Pad(ordinal)
	if p == nil {
		return
	}
	if err := p.Play(); err != nil {
		c.log.Debug().Err(err).Int("pad", ordinal).Msg("Trigger ignored")
	}
}

// Stop shuts the cartwall down: clock loop first (bounded wait), then every
// in-flight playback unit, then the engine.
func (c *Cartwall) Stop() {
	c.stopOnce.Do(func() {
		c.log.Debug().Msg("Stopping cartwall")

		c.clock.Stop()
		audio.StopAll()

		if err := c.engine.Close(); err != nil {
			c.log.Error().Err(err).Msg("Error closing audio engine")
		}

		c.log.Info().Msg("Cartwall stopped")
	})
}
