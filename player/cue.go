package player

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/reesdraminski/soundboard/clip"
)

const (
	cueSampleRate = 44100

	// Start cue: high pitch, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// End cue: medium pitch, slightly longer
	endFreq   = 900
	endVolume = 0.5
	endDecay  = 40

	// Error cue: low pitch double-beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30

	cueTimeout = 2 * time.Second
)

// Cues plays short ticks around recording so the user hears when the
// microphone opens and closes.
type Cues struct {
	sink     Sink
	disabled bool

	once                   sync.Once
	start, end, errorTicks clip.PCM
}

func NewCues(sink Sink, enabled bool) *Cues {
	return &Cues{sink: sink, disabled: !enabled || sink == nil}
}

func (c *Cues) init() {
	// 200ms tails leave room for the output buffer to fill.
	c.start = generateTick(cueSampleRate, startFreq, 0.2, startVolume, startDecay)
	c.end = generateTick(cueSampleRate, endFreq, 0.2, endVolume, endDecay)
	c.errorTicks = generateDoubleBeep(cueSampleRate, errorFreq, 0.08, 0.05, errorVolume, errorDecay)
}

func (c *Cues) PlayStart() { c.play(func() clip.PCM { return c.start }) }
func (c *Cues) PlayEnd()   { c.play(func() clip.PCM { return c.end }) }
func (c *Cues) PlayError() { c.play(func() clip.PCM { return c.errorTicks }) }

func (c *Cues) play(pick func() clip.PCM) {
	if c == nil || c.disabled {
		return
	}
	c.once.Do(c.init)
	pcm := pick()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cueTimeout)
		defer cancel()
		_ = c.sink.Play(ctx, pcm)
	}()
}

func generateTick(sampleRate int, freq float64, duration float64, volume float64, decay float64) clip.PCM {
	n := int(float64(sampleRate) * duration)
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sampleRate)
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return clip.PCM{Samples: samples, SampleRate: sampleRate, Channels: 1}
}

func generateDoubleBeep(sampleRate int, freq float64, beepDur float64, gapDur float64, volume float64, decay float64) clip.PCM {
	beep := generateTick(sampleRate, freq, beepDur, volume, decay)
	gap := make([]int16, int(float64(sampleRate)*gapDur))
	samples := make([]int16, 0, len(beep.Samples)*2+len(gap))
	samples = append(samples, beep.Samples...)
	samples = append(samples, gap...)
	samples = append(samples, beep.Samples...)
	return clip.PCM{Samples: samples, SampleRate: sampleRate, Channels: 1}
}
