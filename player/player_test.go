package player

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/reesdraminski/soundboard/clip"
)

func TestGenerateTick(t *testing.T) {
	pcm := generateTick(cueSampleRate, startFreq, 0.03, startVolume, startDecay)
	if pcm.Channels != 1 || pcm.SampleRate != cueSampleRate {
		t.Fatalf("got %+v", pcm)
	}
	if want := int(float64(cueSampleRate) * 0.03); len(pcm.Samples) != want {
		t.Errorf("got %d samples, want %d", len(pcm.Samples), want)
	}
	var peak int16
	for _, s := range pcm.Samples {
		if s > peak {
			peak = s
		}
	}
	if peak == 0 {
		t.Error("tick is silent")
	}
}

func TestGenerateDoubleBeep(t *testing.T) {
	beep := generateTick(cueSampleRate, errorFreq, 0.08, errorVolume, errorDecay)
	double := generateDoubleBeep(cueSampleRate, errorFreq, 0.08, 0.05, errorVolume, errorDecay)
	gap := int(float64(cueSampleRate) * 0.05)
	if len(double.Samples) != 2*len(beep.Samples)+gap {
		t.Errorf("got %d samples, want %d", len(double.Samples), 2*len(beep.Samples)+gap)
	}
}

func TestCuesPlayThroughSink(t *testing.T) {
	sink := &Fake{}
	cues := NewCues(sink, true)
	cues.PlayStart()

	deadline := time.After(time.Second)
	for len(sink.Played()) == 0 {
		select {
		case <-deadline:
			t.Fatal("start cue never reached the sink")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if got := sink.Played()[0].Duration(); got != 200*time.Millisecond {
		t.Errorf("cue duration = %v, want 200ms", got)
	}
}

func TestCuesDisabled(t *testing.T) {
	sink := &Fake{}
	NewCues(sink, false).PlayEnd()
	var nilCues *Cues
	nilCues.PlayError()

	time.Sleep(20 * time.Millisecond)
	if n := len(sink.Played()); n != 0 {
		t.Errorf("disabled cues played %d clips", n)
	}
}

func TestNop(t *testing.T) {
	err := Nop{}.Play(context.Background(), clip.PCM{})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}
