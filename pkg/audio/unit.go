package audio

import (
	"bytes"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog"

	"github.com/hiway/cartwall/pkg/sample"
)

// Unit performs one playback of one sample. Units are transient: a fresh one
// is created per play and discarded once the sample finishes or is halted.
type Unit interface {
	// Start spawns the playback goroutine and returns immediately. The
	// goroutine calls onStart before audio begins, plays the sample to
	// completion, then calls onStop. Both fire exactly once per play.
	Start(onStart, onStop func())
	// Halt forcibly ends playback; onStop still fires.
	Halt()
}

// Registry of in-flight units so StopAll can reach them at shutdown.
var (
	activeMu sync.Mutex
	active   = make(map[Unit]struct{})
)

func track(u Unit) {
	activeMu.Lock()
	active[u] = struct{}{}
	activeMu.Unlock()
}

func untrack(u Unit) {
	activeMu.Lock()
	delete(active, u)
	activeMu.Unlock()
}

// StopAll forcibly halts every unit currently playing. Intended for
// application shutdown, not per-pad control.
func StopAll() {
	activeMu.Lock()
	units := make([]Unit, 0, len(active))
	for u := range active {
		units = append(units, u)
	}
	activeMu.Unlock()

	for _, u := range units {
		u.Halt()
	}
}

// otoUnit plays decoded PCM through an oto player on its own goroutine.
type otoUnit struct {
	log zerolog.Logger
	ctx *oto.Context
	smp *sample.Sample

	mu     sync.Mutex
	player *oto.Player
	halted bool
}

func (u *otoUnit) Start(onStart, onStop func()) {
	go u.run(onStart, onStop)
}

func (u *otoUnit) run(onStart, onStop func()) {
	track(u)
	defer untrack(u)

	onStart()
	defer onStop()

	u.mu.Lock()
	if u.halted {
		u.mu.Unlock()
		return
	}
	player := u.ctx.NewPlayer(bytes.NewReader(u.smp.PCM()))
	u.player = player
	u.mu.Unlock()

	player.Play()

	// Wait for playback to complete. Halt closes the player, which ends
	// this loop as well.
	for player.IsPlaying() {
		time.Sleep(time.Millisecond)
	}

	if err := player.Err(); err != nil {
		// No structured mid-playback error path exists; log and move on.
		u.log.Error().Err(err).Msg("Playback backend error")
	}

	u.mu.Lock()
	if !u.halted {
		if err := player.Close(); err != nil {
			u.log.Error().Err(err).Msg("Error closing player")
		}
	}
	u.player = nil
	u.mu.Unlock()

	u.log.Trace().Msg("Finished playing sample")
}

func (u *otoUnit) Halt() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.halted {
		return
	}
	u.halted = true
	if u.player != nil {
		if err := u.player.Close(); err != nil {
			u.log.Error().Err(err).Msg("Error closing player on halt")
		}
	}
	u.log.Debug().Msg("Playback halted")
}

// stubUnit simulates one playback by sleeping on its own goroutine.
type stubUnit struct {
	log      zerolog.Logger
	delay    time.Duration
	haltOnce sync.Once
	haltChan chan struct{}
}

func (u *stubUnit) Start(onStart, onStop func()) {
	go u.run(onStart, onStop)
}

func (u *stubUnit) run(onStart, onStop func()) {
	track(u)
	defer untrack(u)

	onStart()
	defer onStop()

	if u.delay <= 0 {
		return
	}
	timer := time.NewTimer(u.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-u.haltChan:
	}
}

func (u *stubUnit) Halt() {
	u.haltOnce.Do(func() {
		close(u.haltChan)
	})
}
