// Package clip wraps captured PCM into a playable payload and unwraps stored
// payloads back into PCM for the playback sink.
package clip

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const (
	SampleRate    = 44100
	Channels      = 1
	BitsPerSample = 16
)

var ErrUnsupported = errors.New("unsupported audio payload")

// PCM is interleaved signed 16-bit audio.
type PCM struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

func (p PCM) Frames() int {
	if p.Channels <= 0 {
		return 0
	}
	return len(p.Samples) / p.Channels
}

func (p PCM) Duration() time.Duration {
	if p.SampleRate <= 0 {
		return 0
	}
	return time.Duration(p.Frames()) * time.Second / time.Duration(p.SampleRate)
}

// Bytes returns the samples as little-endian s16.
func (p PCM) Bytes() []byte {
	out := make([]byte, len(p.Samples)*2)
	for i, s := range p.Samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// Decode sniffs the container and returns its PCM. WAV and FLAC are accepted.
func Decode(payload []byte) (PCM, error) {
	switch {
	case len(payload) >= 12 && bytes.Equal(payload[0:4], []byte("RIFF")) && bytes.Equal(payload[8:12], []byte("WAVE")):
		return decodeWAV(payload)
	case len(payload) >= 4 && bytes.Equal(payload[0:4], []byte("fLaC")):
		return decodeFLAC(payload)
	default:
		return PCM{}, ErrUnsupported
	}
}

// Format names the container of payload: "wav", "flac" or "".
func Format(payload []byte) string {
	switch {
	case len(payload) >= 12 && bytes.Equal(payload[0:4], []byte("RIFF")) && bytes.Equal(payload[8:12], []byte("WAVE")):
		return "wav"
	case len(payload) >= 4 && bytes.Equal(payload[0:4], []byte("fLaC")):
		return "flac"
	default:
		return ""
	}
}
