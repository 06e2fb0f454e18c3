// Package player is the playback sink: it plays decoded clips on the
// default output device.
package player

import (
	"context"
	"errors"
	"sync"

	"github.com/reesdraminski/soundboard/clip"
)

var ErrUnavailable = errors.New("playback unavailable")

type Sink interface {
	// Play blocks until pcm has been played or ctx is done.
	Play(ctx context.Context, pcm clip.PCM) error
	Close()
}

// Nop stands in when no output device could be opened.
type Nop struct{}

func (Nop) Play(context.Context, clip.PCM) error { return ErrUnavailable }
func (Nop) Close()                               {}

// Fake remembers what it was asked to play.
type Fake struct {
	mu     sync.Mutex
	played []clip.PCM
	Err    error
}

func (f *Fake) Play(_ context.Context, pcm clip.PCM) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.played = append(f.played, pcm)
	return nil
}

func (f *Fake) Close() {}

func (f *Fake) Played() []clip.PCM {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]clip.PCM, len(f.played))
	copy(out, f.played)
	return out
}
