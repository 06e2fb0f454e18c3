//go:build !linux

package player

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/reesdraminski/soundboard/clip"
)

type malgoSink struct {
	ctx *malgo.AllocatedContext
	mu  sync.Mutex
}

func New() (Sink, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: malgo: %v", ErrUnavailable, err)
	}
	return &malgoSink{ctx: ctx}, nil
}

// Play opens a device per clip; clips are short and the device format has to
// follow each clip's sample rate.
func (s *malgoSink) Play(ctx context.Context, pcm clip.PCM) error {
	if len(pcm.Samples) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = uint32(pcm.Channels)
	config.SampleRate = uint32(pcm.SampleRate)

	data := pcm.Bytes()
	frameBytes := uint32(2 * pcm.Channels)
	var pos uint32
	done := make(chan struct{})
	var doneOnce sync.Once

	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, frameCount uint32) {
			want := frameCount * frameBytes
			remaining := uint32(len(data)) - pos
			n := min(want, remaining)
			copy(out[:n], data[pos:pos+n])
			// Zero-fill remainder
			for i := n; i < want; i++ {
				out[i] = 0
			}
			pos += n
			if pos >= uint32(len(data)) {
				doneOnce.Do(func() { close(done) })
			}
		},
	}

	device, err := malgo.InitDevice(s.ctx.Context, config, callbacks)
	if err != nil {
		return fmt.Errorf("malgo playback: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("malgo playback: %w", err)
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
	_ = device.Stop()
	return ctx.Err()
}

func (s *malgoSink) Close() {
	_ = s.ctx.Uninit()
	s.ctx.Free()
}
