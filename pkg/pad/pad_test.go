package pad

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hiway/cartwall/pkg/audio"
	"github.com/hiway/cartwall/pkg/sample"
)

// writeWAV writes a 16-bit PCM sine tone to path.
func writeWAV(t *testing.T, path string, rate, channels, frames int) {
	t.Helper()

	dataSize := frames * channels * 2
	buf := &bytes.Buffer{}
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(rate))
	binary.Write(buf, binary.LittleEndian, uint32(rate*channels*2))
	binary.Write(buf, binary.LittleEndian, uint16(channels*2))
	binary.Write(buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	for i := 0; i < frames*channels; i++ {
		binary.Write(buf, binary.LittleEndian, int16(math.Sin(float64(i)/10)*8000))
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("failed to write wav fixture: %v", err)
	}
}

func fixture(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	writeWAV(t, path, sample.SampleRate, 2, 48)
	return path
}

func awaitState(t *testing.T, states <-chan State, want State) {
	t.Helper()
	select {
	case s := <-states:
		if s != want {
			t.Fatalf("expected transition to %v, got %v", want, s)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for transition to %v", want)
	}
}

func newTestPad(t *testing.T, delay time.Duration) (*Pad, chan State) {
	t.Helper()
	states := make(chan State, 128)
	engine := audio.NewStubEngine(zerolog.Nop(), delay)
	p := New(1, engine, func(_ *Pad, s State) { states <- s }, zerolog.Nop())
	return p, states
}

func TestLoadTransitionsToLoaded(t *testing.T) {
	p, states := newTestPad(t, 0)
	path := fixture(t, "horn.wav")

	if err := p.Load(path); err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if p.State() != Loaded {
		t.Errorf("expected Loaded, got %v", p.State())
	}
	if p.Label() != "horn.wav" {
		t.Errorf("expected label horn.wav, got %q", p.Label())
	}
	awaitState(t, states, Loaded)
}

func TestLoadInvalidLeavesPadUnchanged(t *testing.T) {
	p, _ := newTestPad(t, 0)
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.wav")
	if err := os.WriteFile(garbage, []byte("definitely not audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := p.Load(garbage); !errors.Is(err, sample.ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
	if p.State() != Idle {
		t.Errorf("failed load changed state to %v", p.State())
	}

	good := fixture(t, "good.wav")
	if err := p.Load(good); err != nil {
		t.Fatal(err)
	}
	if err := p.Load(filepath.Join(dir, "missing.wav")); !errors.Is(err, sample.ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
	if p.State() != Loaded || p.Label() != "good.wav" {
		t.Errorf("failed reload disturbed pad: state=%v label=%q", p.State(), p.Label())
	}
}

func TestPlayOnIdlePadIsNoop(t *testing.T) {
	p, states := newTestPad(t, 0)

	if err := p.Play(); err != nil {
		t.Fatalf("play on idle pad returned error: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	select {
	case s := <-states:
		t.Errorf("unexpected transition %v from idle play", s)
	default:
	}
}

func TestPlayFiresStartThenStop(t *testing.T) {
	p, states := newTestPad(t, 0)
	if err := p.Load(fixture(t, "stab.wav")); err != nil {
		t.Fatal(err)
	}
	awaitState(t, states, Loaded)

	for i := 0; i < 50; i++ {
		if err := p.Play(); err != nil {
			t.Fatalf("play %d failed: %v", i+1, err)
		}
		awaitState(t, states, Playing)
		awaitState(t, states, Loaded)
	}
	if p.State() != Loaded {
		t.Errorf("expected Loaded after playback, got %v", p.State())
	}
}

func TestPlayWhilePlayingRejected(t *testing.T) {
	p, states := newTestPad(t, 100*time.Millisecond)
	if err := p.Load(fixture(t, "sweep.wav")); err != nil {
		t.Fatal(err)
	}
	awaitState(t, states, Loaded)

	if err := p.Play(); err != nil {
		t.Fatal(err)
	}
	awaitState(t, states, Playing)

	if err := p.Play(); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy on re-trigger, got %v", err)
	}
	if err := p.Load(fixture(t, "other.wav")); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy on reload while playing, got %v", err)
	}

	awaitState(t, states, Loaded)
}

func TestResetReturnsToIdle(t *testing.T) {
	p, states := newTestPad(t, 0)
	if err := p.Load(fixture(t, "bed.wav")); err != nil {
		t.Fatal(err)
	}
	awaitState(t, states, Loaded)

	if err := p.Reset(); err != nil {
		t.Fatal(err)
	}
	if p.State() != Idle {
		t.Errorf("expected Idle after reset, got %v", p.State())
	}
	if p.Label() != "1" {
		t.Errorf("expected default label, got %q", p.Label())
	}
	awaitState(t, states, Idle)

	// Play after reset fires nothing.
	if err := p.Play(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	select {
	case s := <-states:
		t.Errorf("unexpected transition %v after reset", s)
	default:
	}
}

func TestResetWhilePlayingEndsIdle(t *testing.T) {
	p, states := newTestPad(t, 50*time.Millisecond)
	if err := p.Load(fixture(t, "loopbed.wav")); err != nil {
		t.Fatal(err)
	}
	awaitState(t, states, Loaded)

	if err := p.Play(); err != nil {
		t.Fatal(err)
	}
	awaitState(t, states, Playing)

	if err := p.Reset(); err != nil {
		t.Fatal(err)
	}
	awaitState(t, states, Idle)

	// The in-flight unit finishes in the background; the pad stays Idle.
	awaitState(t, states, Idle)
	if p.State() != Idle {
		t.Errorf("expected Idle after reset during playback, got %v", p.State())
	}
}

func TestLoopIsNoop(t *testing.T) {
	p, _ := newTestPad(t, 0)
	if err := p.Loop(); err != nil {
		t.Errorf("loop stub returned error: %v", err)
	}
}
