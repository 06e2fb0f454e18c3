// Package recorder turns a capture device into one-shot clip recordings.
package recorder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/reesdraminski/soundboard/audio"
	"github.com/reesdraminski/soundboard/clip"
)

var (
	ErrCaptureUnavailable = errors.New("capture unavailable")
	ErrAlreadyRecording   = errors.New("already recording")
	ErrNotRecording       = errors.New("not recording")
	ErrNoAudio            = errors.New("no audio captured")
)

type State int

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	if s == Recording {
		return "recording"
	}
	return "idle"
}

// Result is the outcome of one recording. Payload is a WAV file.
type Result struct {
	Payload  []byte
	Frames   uint64
	Duration time.Duration
	Err      error
}

type Recorder struct {
	ctx    audio.Context
	device *audio.DeviceInfo
	config audio.CaptureConfig

	mu      sync.Mutex
	state   State
	capture audio.CaptureDevice
	take    *take
	level   atomic.Uint64 // float64 bits of the last chunk's RMS
}

// take buffers one recording. Each Start gets a fresh take so a slow Stop
// never sees samples from the next recording.
type take struct {
	mu      sync.Mutex
	pcm     []byte
	frames  uint64
	stopped bool
}

func (t *take) add(data []byte, frameCount uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.pcm = append(t.pcm, data...)
	t.frames += uint64(frameCount)
}

func (t *take) finish() ([]byte, uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	return t.pcm, t.frames
}

// New returns an idle recorder. A nil ctx yields a recorder whose Start
// always reports ErrCaptureUnavailable.
func New(ctx audio.Context, device *audio.DeviceInfo, config audio.CaptureConfig) *Recorder {
	if config.SampleRate == 0 {
		config.SampleRate = clip.SampleRate
	}
	if config.Channels == 0 {
		config.Channels = clip.Channels
	}
	return &Recorder{ctx: ctx, device: device, config: config}
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Recorder) DeviceName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.device != nil {
		return r.device.Name
	}
	return "system default"
}

// SetDevice takes effect on the next Start.
func (r *Recorder) SetDevice(device *audio.DeviceInfo) {
	r.mu.Lock()
	r.device = device
	r.mu.Unlock()
}

// Level is the RMS (0..1) of the most recent captured chunk.
func (r *Recorder) Level() float64 {
	return math.Float64frombits(r.level.Load())
}

// Start opens the device and begins buffering. On any device failure the
// recorder stays Idle and the error wraps ErrCaptureUnavailable.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == Recording {
		return ErrAlreadyRecording
	}
	if r.ctx == nil {
		return fmt.Errorf("%w: no audio context", ErrCaptureUnavailable)
	}

	capture, err := r.ctx.NewCapture(r.device, r.config)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}

	t := &take{}
	r.level.Store(0)

	capture.SetCallback(func(data []byte, frameCount uint32) {
		t.add(data, frameCount)
		r.measure(data)
	})
	r.capture = capture
	r.take = t
	r.state = Recording
	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		capture.Close()
		r.capture = nil
		r.take = nil
		r.state = Idle
		return fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	return nil
}

func (r *Recorder) measure(data []byte) {
	if len(data) < 2 {
		return
	}
	var sumSquares float64
	for i := 0; i+1 < len(data); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(data[i:]))
		normalized := float64(sample) / 32768.0
		sumSquares += normalized * normalized
	}
	rms := math.Sqrt(sumSquares / float64(len(data)/2))
	r.level.Store(math.Float64bits(rms))
}

// Stop returns immediately to Idle and resolves the returned channel exactly
// once with the assembled WAV payload, then closes it.
func (r *Recorder) Stop() <-chan Result {
	out := make(chan Result, 1)

	r.mu.Lock()
	if r.state != Recording {
		r.mu.Unlock()
		out <- Result{Err: ErrNotRecording}
		close(out)
		return out
	}
	capture, t := r.capture, r.take
	r.capture, r.take = nil, nil
	r.state = Idle
	r.mu.Unlock()

	go func() {
		defer close(out)
		capture.Stop()
		capture.ClearCallback()
		capture.Close()

		pcm, frames := t.finish()

		if frames == 0 {
			out <- Result{Err: ErrNoAudio}
			return
		}
		out <- Result{
			Payload:  clip.EncodeWAV(pcm, int(r.config.SampleRate), int(r.config.Channels)),
			Frames:   frames,
			Duration: time.Duration(frames) * time.Second / time.Duration(r.config.SampleRate),
		}
	}()
	return out
}
