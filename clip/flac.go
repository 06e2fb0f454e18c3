package clip

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
)

// decodeFLAC reads an imported FLAC file. Samples wider or narrower than 16
// bits are rescaled to s16.
func decodeFLAC(b []byte) (PCM, error) {
	stream, err := flac.New(bytes.NewReader(b))
	if err != nil {
		return PCM{}, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	defer stream.Close()

	info := stream.Info
	pcm := PCM{
		SampleRate: int(info.SampleRate),
		Channels:   int(info.NChannels),
	}
	if info.NSamples > 0 {
		pcm.Samples = make([]int16, 0, int(info.NSamples)*pcm.Channels)
	}
	shift := int(info.BitsPerSample) - BitsPerSample

	for {
		f, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return PCM{}, fmt.Errorf("decoding flac frame: %w", err)
		}
		n := len(f.Subframes[0].Samples)
		for i := 0; i < n; i++ {
			for _, sub := range f.Subframes {
				s := sub.Samples[i]
				if shift > 0 {
					s >>= shift
				} else if shift < 0 {
					s <<= -shift
				}
				pcm.Samples = append(pcm.Samples, int16(s))
			}
		}
	}
	return pcm, nil
}
