//go:build linux

package player

import (
	"context"
	"fmt"

	"github.com/jfreymuth/pulse"

	"github.com/reesdraminski/soundboard/clip"
)

type pulseSink struct {
	client *pulse.Client
}

func New() (Sink, error) {
	c, err := pulse.NewClient(pulse.ClientApplicationName("soundboard"))
	if err != nil {
		return nil, fmt.Errorf("%w: pulse: %v", ErrUnavailable, err)
	}
	return &pulseSink{client: c}, nil
}

func (s *pulseSink) Play(ctx context.Context, pcm clip.PCM) error {
	if len(pcm.Samples) == 0 {
		return nil
	}

	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(pcm.Samples) || ctx.Err() != nil {
			return 0, pulse.EndOfData
		}
		n := copy(buf, pcm.Samples[pos:])
		pos += n
		return n, nil
	})

	layout := pulse.PlaybackMono
	if pcm.Channels == 2 {
		layout = pulse.PlaybackStereo
	}
	stream, err := s.client.NewPlayback(reader,
		layout,
		pulse.PlaybackSampleRate(pcm.SampleRate),
		pulse.PlaybackLatency(0.1),
	)
	if err != nil {
		return fmt.Errorf("pulse playback: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	stream.Stop()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("pulse playback: %w", err)
	}
	return ctx.Err()
}

func (s *pulseSink) Close() {
	s.client.Close()
}
