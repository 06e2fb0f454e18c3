// Package board is the soundboard session: the catalog of sounds, the
// recorder that adds to it and the sink that plays from it.
package board

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/reesdraminski/soundboard/audio"
	"github.com/reesdraminski/soundboard/catalog"
	"github.com/reesdraminski/soundboard/clip"
	"github.com/reesdraminski/soundboard/log"
	"github.com/reesdraminski/soundboard/player"
	"github.com/reesdraminski/soundboard/recorder"
)

const (
	DefaultCacheTTL = 10 * time.Minute
	cacheCleanup    = 15 * time.Minute
)

var ErrInvalidSound = errors.New("invalid sound")

type Options struct {
	Catalog  *catalog.Catalog
	Recorder *recorder.Recorder
	Sink     player.Sink  // nil plays nothing
	Cues     *player.Cues // nil disables cues
	CacheTTL time.Duration
}

type Board struct {
	mu    sync.Mutex
	cat   *catalog.Catalog
	rec   *recorder.Recorder
	sink  player.Sink
	cues  *player.Cues
	cache *gocache.Cache
}

// New loads the catalog and returns a ready board.
func New(opts Options) *Board {
	if opts.Catalog == nil {
		opts.Catalog = catalog.New(nil, "")
	}
	if opts.Recorder == nil {
		opts.Recorder = recorder.New(nil, nil, audio.CaptureConfig{})
	}
	if opts.Sink == nil {
		opts.Sink = player.Nop{}
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	b := &Board{
		cat:   opts.Catalog,
		rec:   opts.Recorder,
		sink:  opts.Sink,
		cues:  opts.Cues,
		cache: gocache.New(opts.CacheTTL, cacheCleanup),
	}
	b.cat.Load()
	return b
}

func (b *Board) Entries() []catalog.Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cat.Entries()
}

func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cat.Len()
}

// Durable is false once a write failed; sounds saved since then live only in
// this session.
func (b *Board) Durable() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cat.Durable()
}

// Find returns the index of the first sound named name, or -1.
func (b *Board) Find(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cat.Find(name)
}

func (b *Board) Recording() bool { return b.rec.State() == recorder.Recording }

func (b *Board) DeviceName() string { return b.rec.DeviceName() }

func (b *Board) Level() float64 { return b.rec.Level() }

// StartRecording opens the microphone. A capture failure leaves the board
// idle and is returned wrapping recorder.ErrCaptureUnavailable.
func (b *Board) StartRecording() error {
	if err := b.rec.Start(); err != nil {
		if errors.Is(err, recorder.ErrCaptureUnavailable) {
			log.CaptureUnavailable(err)
			b.cues.PlayError()
		}
		return err
	}
	b.cues.PlayStart()
	return nil
}

// StopRecording resolves once with the finished recording. The caller names
// it and passes the payload to Save.
func (b *Board) StopRecording() <-chan recorder.Result {
	if b.rec.State() == recorder.Recording {
		b.cues.PlayEnd()
	}
	return b.rec.Stop()
}

// Save appends a sound and returns its position.
func (b *Board) Save(name string, payload []byte) int {
	e := catalog.NewEntry(name, payload)

	b.mu.Lock()
	b.cat.Append(e)
	idx := b.cat.Len() - 1
	durable := b.cat.Durable()
	b.mu.Unlock()

	log.SoundSaved(name, len(payload), len(e.Data), durable)
	return idx
}

// Import saves payload after checking it decodes as WAV or FLAC.
func (b *Board) Import(name string, payload []byte) (int, error) {
	if _, err := clip.Decode(payload); err != nil {
		return -1, fmt.Errorf("%w: %w", ErrInvalidSound, err)
	}
	return b.Save(name, payload), nil
}

// Play decodes sound i and blocks until the sink has played it or ctx ends.
func (b *Board) Play(ctx context.Context, i int) error {
	b.mu.Lock()
	e, err := b.cat.At(i)
	b.mu.Unlock()
	if err != nil {
		return err
	}

	pcm, cached, err := b.decode(i, e)
	if err != nil {
		return err
	}
	log.SoundPlayed(i, e.Name, pcm.Duration().Seconds(), cached)
	return b.sink.Play(ctx, pcm)
}

func (b *Board) decode(i int, e catalog.Entry) (clip.PCM, bool, error) {
	key := cacheKey(i, e.Data)
	if v, ok := b.cache.Get(key); ok {
		return v.(clip.PCM), true, nil
	}
	payload, err := e.Payload()
	if err != nil {
		return clip.PCM{}, false, fmt.Errorf("%w: %w", ErrInvalidSound, err)
	}
	pcm, err := clip.Decode(payload)
	if err != nil {
		return clip.PCM{}, false, fmt.Errorf("%w: %w", ErrInvalidSound, err)
	}
	b.cache.SetDefault(key, pcm)
	return pcm, false, nil
}

func cacheKey(i int, data string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(data))
	return fmt.Sprintf("%d:%x", i, h.Sum64())
}

// Reload rereads the store after another process changed it. A board whose
// last write failed keeps its session-only sounds and skips the reload.
func (b *Board) Reload() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.cat.Durable() {
		return b.cat.Len()
	}
	b.cache.Flush()
	return b.cat.Reload()
}

func (b *Board) CachedSounds() int { return b.cache.ItemCount() }

// Close abandons any recording in progress and releases the sink.
func (b *Board) Close() {
	if b.rec.State() == recorder.Recording {
		<-b.rec.Stop()
	}
	log.SessionEnd(b.Len())
	b.sink.Close()
}
