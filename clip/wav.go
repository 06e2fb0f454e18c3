package clip

import (
	"encoding/binary"
	"fmt"
)

const wavHeaderSize = 44

// EncodeWAV wraps little-endian s16 PCM in a canonical 44-byte RIFF header.
func EncodeWAV(pcm []byte, sampleRate, channels int) []byte {
	dataSize := len(pcm)
	blockAlign := channels * BitsPerSample / 8

	buf := make([]byte, wavHeaderSize+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(wavHeaderSize-8+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], BitsPerSample)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[wavHeaderSize:], pcm)
	return buf
}

func decodeWAV(b []byte) (PCM, error) {
	var (
		pcm     PCM
		haveFmt bool
		bits    int
	)
	pos := 12
	for pos+8 <= len(b) {
		id := string(b[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(b[pos+4 : pos+8]))
		body := pos + 8
		end := body + size
		if end > len(b) {
			// Recorders that never patch the header leave a short data chunk.
			end = len(b)
		}

		switch id {
		case "fmt ":
			if end-body < 16 {
				return PCM{}, fmt.Errorf("%w: short fmt chunk", ErrUnsupported)
			}
			format := binary.LittleEndian.Uint16(b[body:])
			if format != 1 && format != 0xfffe {
				return PCM{}, fmt.Errorf("%w: wav format %d", ErrUnsupported, format)
			}
			pcm.Channels = int(binary.LittleEndian.Uint16(b[body+2:]))
			pcm.SampleRate = int(binary.LittleEndian.Uint32(b[body+4:]))
			if pcm.Channels == 0 || pcm.SampleRate == 0 {
				return PCM{}, fmt.Errorf("%w: %d channels at %d Hz", ErrUnsupported, pcm.Channels, pcm.SampleRate)
			}
			bits = int(binary.LittleEndian.Uint16(b[body+14:]))
			if bits != 16 {
				return PCM{}, fmt.Errorf("%w: %d-bit wav", ErrUnsupported, bits)
			}
			haveFmt = true
		case "data":
			if !haveFmt {
				return PCM{}, fmt.Errorf("%w: data before fmt", ErrUnsupported)
			}
			data := b[body:end]
			pcm.Samples = make([]int16, len(data)/2)
			for i := range pcm.Samples {
				pcm.Samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
			}
			return pcm, nil
		}

		pos = end + size%2
	}
	if !haveFmt {
		return PCM{}, fmt.Errorf("%w: missing fmt chunk", ErrUnsupported)
	}
	// A header-only file is a valid empty clip.
	return pcm, nil
}
