package clock

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultInterval is the tick cadence of the broadcast loop.
const DefaultInterval = 250 * time.Millisecond

// ErrUnknownObserver indicates an unregister for a key that was never
// registered. This is a wiring fault in the caller, not a routine condition.
var ErrUnknownObserver = errors.New("unknown clock observer")

// Observer receives the formatted wall-clock time and the countdown to the
// next minute boundary, once per tick. Observers may be called from the
// broadcast goroutine; implementations owning UI state must marshal onto
// their own thread.
type Observer func(currentTime, remaining string)

// Broadcaster runs a single periodic loop that renders the current time and
// fans it out to every registered observer. Registration is safe to call
// concurrently with in-flight ticks.
type Broadcaster struct {
	log      zerolog.Logger
	interval time.Duration
	now      func() time.Time

	mu        sync.Mutex
	observers map[string]Observer
	started   bool

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a broadcaster ticking at DefaultInterval. Call Start to begin
// ticking.
func New(log zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		log:       log.With().Str("component", "clock").Logger(),
		interval:  DefaultInterval,
		now:       time.Now,
		observers: make(map[string]Observer),
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// SetInterval overrides the tick cadence. Must be called before Start.
func (b *Broadcaster) SetInterval(d time.Duration) {
	b.mu.Lock()
	b.interval = d
	b.mu.Unlock()
}

// Register inserts or overwrites the observer under key. Safe to call while
// the loop is ticking.
func (b *Broadcaster) Register(key string, fn Observer) {
	b.mu.Lock()
	b.observers[key] = fn
	b.mu.Unlock()
	b.log.Debug().Str("observer", key).Msg("Observer registered")
}

// Unregister removes the observer under key. Returns ErrUnknownObserver if
// no such registration exists.
func (b *Broadcaster) Unregister(key string) error {
	b.mu.Lock()
	_, ok := b.observers[key]
	if ok {
		delete(b.observers, key)
	}
	b.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownObserver, key)
	}
	b.log.Debug().Str("observer", key).Msg("Observer unregistered")
	return nil
}

// Start launches the broadcast loop. Subsequent calls are no-ops.
func (b *Broadcaster) Start() {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	interval := b.interval
	b.mu.Unlock()

	b.log.Debug().Dur("interval", interval).Msg("Clock broadcast loop started")
	go b.run(interval)
}

// Stop signals the loop to exit and blocks until it has fully terminated.
// No observer fires after Stop returns. Safe to call more than once; a
// second call waits for the same shutdown.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	started := b.started
	b.mu.Unlock()
	if !started {
		return
	}

	b.stopOnce.Do(func() {
		close(b.stopChan)
	})
	<-b.done
	b.log.Debug().Msg("Clock broadcast loop stopped")
}

func (b *Broadcaster) run(interval time.Duration) {
	defer close(b.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			b.tick()
		}
	}
}

// tick renders the current time and invokes every registered observer once.
func (b *Broadcaster) tick() {
	currentTime, remaining := Render(b.now())

	b.mu.Lock()
	keys := make([]string, 0, len(b.observers))
	fns := make([]Observer, 0, len(b.observers))
	for key, fn := range b.observers {
		keys = append(keys, key)
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for i, fn := range fns {
		b.invoke(keys[i], fn, currentTime, remaining)
	}
}

// invoke calls one observer, containing any panic so a misbehaving observer
// cannot abort the tick loop.
func (b *Broadcaster) invoke(key string, fn Observer, currentTime, remaining string) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Str("observer", key).
				Interface("panic", r).
				Msg("Observer panicked during tick")
		}
	}()
	fn(currentTime, remaining)
}

// Render formats a wall-clock instant as "HH:MM:SS" plus a "-MM:SS"
// countdown to the next whole-minute boundary. Exactly on the boundary the
// countdown is "-00:00".
func Render(now time.Time) (currentTime, remaining string) {
	rem := (60 - now.Second()) % 60
	return now.Format("15:04:05"), fmt.Sprintf("-%02d:%02d", rem/60, rem%60)
}
