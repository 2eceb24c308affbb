package sample

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
)

const (
	// SampleRate is the rate every sample is decoded to for playback
	SampleRate = 48000
	// ChannelCount represents stereo audio
	ChannelCount = 2
	// BitDepthInBytes represents 16-bit audio
	BitDepthInBytes = 2

	// decodeChunkFrames is the number of frames read per decode iteration
	decodeChunkFrames = 512
)

// ErrInvalidFormat indicates a file could not be classified as playable audio.
// It is recoverable: the caller reports it for the affected pad and carries on.
var ErrInvalidFormat = errors.New("invalid audio format")

// Format describes the container-level properties of an audio file.
type Format struct {
	SampleRate int // Hz, as found in the file
	Channels   int
	Precision  int // bytes per sample per channel
}

// Validate classifies the file at path as decodable audio by inspecting its
// header. It does not decode the audio payload. On failure the returned error
// wraps ErrInvalidFormat.
func Validate(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return Format{}, fmt.Errorf("%w: %s: %v", ErrInvalidFormat, path, err)
	}
	defer f.Close()

	streamer, format, err := wav.Decode(f)
	if err != nil {
		return Format{}, fmt.Errorf("%w: %s: %v", ErrInvalidFormat, path, err)
	}
	streamer.Close()

	return Format{
		SampleRate: int(format.SampleRate),
		Channels:   format.NumChannels,
		Precision:  format.Precision,
	}, nil
}

// Sample is one loaded audio file, decoded to interleaved 16-bit LE stereo
// PCM at SampleRate. Immutable after construction; a pad replaces it
// wholesale on reload.
type Sample struct {
	path   string
	name   string
	format Format
	pcm    []byte
}

// Load validates the file at path and decodes it fully into a Sample,
// resampling to SampleRate when the source rate differs.
func Load(path string) (*Sample, error) {
	format, err := Validate(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFormat, path, err)
	}
	defer f.Close()

	streamer, wavFormat, err := wav.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFormat, path, err)
	}
	defer streamer.Close()

	var src beep.Streamer = streamer
	if wavFormat.SampleRate != beep.SampleRate(SampleRate) {
		src = beep.Resample(4, wavFormat.SampleRate, beep.SampleRate(SampleRate), streamer)
	}

	pcm, err := renderPCM(src)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return &Sample{
		path:   path,
		name:   filepath.Base(path),
		format: format,
		pcm:    pcm,
	}, nil
}

// renderPCM drains a streamer into interleaved int16 LE bytes.
func renderPCM(src beep.Streamer) ([]byte, error) {
	frames := make([][2]float64, decodeChunkFrames)
	data := make([]int16, 0, decodeChunkFrames*ChannelCount)

	for {
		n, ok := src.Stream(frames)
		for _, frame := range frames[:n] {
			data = append(data, clipSample(frame[0]), clipSample(frame[1]))
		}
		if !ok {
			break
		}
	}

	buf := new(bytes.Buffer)
	buf.Grow(len(data) * BitDepthInBytes)
	if err := binary.Write(buf, binary.LittleEndian, data); err != nil {
		return nil, fmt.Errorf("failed to write audio data to buffer: %w", err)
	}
	return buf.Bytes(), nil
}

// clipSample converts one float frame value to int16, clamping out-of-range
// values introduced by resampling.
func clipSample(v float64) int16 {
	v = math.Max(-1.0, math.Min(1.0, v))
	return int16(v * 32767.0)
}

// Path returns the filesystem path the sample was loaded from.
func (s *Sample) Path() string { return s.path }

// Name returns the base name of the sample file, used as the pad label.
func (s *Sample) Name() string { return s.name }

// Format returns the container-level format discovered at load time.
func (s *Sample) Format() Format { return s.format }

// PCM returns the decoded audio as interleaved 16-bit LE stereo at SampleRate.
func (s *Sample) PCM() []byte { return s.pcm }

// Duration returns the playback length of the decoded audio.
func (s *Sample) Duration() time.Duration {
	frames := len(s.pcm) / (ChannelCount * BitDepthInBytes)
	return time.Duration(frames) * time.Second / SampleRate
}

func (s *Sample) String() string {
	return fmt.Sprintf("<%s %dHz %dch>", s.name, s.format.SampleRate, s.format.Channels)
}
