package audio

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestIsBluetooth(t *testing.T) {
	cases := map[string]bool{
		"AirPods Pro":                 true,
		"Jabra Evolve2 65":            true,
		"Headset (WH-1000XM4)":        true,
		"Built-in Microphone":         false,
		"Blue Yeti Stereo Microphone": false,
	}
	for name, want := range cases {
		if got := IsBluetooth(name); got != want {
			t.Errorf("IsBluetooth(%q) = %v, want %v", name, got, want)
		}
	}
}

func collect(t *testing.T, c CaptureDevice) (*[]byte, *sync.Mutex) {
	t.Helper()
	var mu sync.Mutex
	var got []byte
	c.SetCallback(func(data []byte, _ uint32) {
		mu.Lock()
		got = append(got, data...)
		mu.Unlock()
	})
	return &got, &mu
}

func TestFakeCaptureImmediate(t *testing.T) {
	pcm := make([]byte, 5000)
	for i := range pcm {
		pcm[i] = byte(i)
	}
	ctx := NewFakeContext(pcm, false)
	c, err := ctx.NewCapture(nil, CaptureConfig{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}
	got, mu := collect(t, c)

	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	<-c.(*FakeCapture).AudioDone()
	c.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(*got) != len(pcm) {
		t.Fatalf("got %d bytes, want %d", len(*got), len(pcm))
	}
	for i := range pcm {
		if (*got)[i] != pcm[i] {
			t.Fatalf("byte %d = %d, want %d", i, (*got)[i], pcm[i])
		}
	}
}

func TestFakeCaptureRealtimeStop(t *testing.T) {
	ctx := NewFakeContext(make([]byte, 1<<20), true)
	c, err := ctx.NewCapture(nil, CaptureConfig{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}
	got, mu := collect(t, c)

	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(150 * time.Millisecond)
	c.Stop()

	mu.Lock()
	n := len(*got)
	mu.Unlock()
	if n == 0 || n >= 1<<20 {
		t.Errorf("got %d bytes, want a partial stream", n)
	}
}

func TestFakeContextErr(t *testing.T) {
	ctx := NewFakeContext(nil, false)
	ctx.Err = errors.New("no device")
	if _, err := ctx.NewCapture(nil, CaptureConfig{}); err == nil {
		t.Error("expected NewCapture to fail")
	}
	if FindDevice(ctx, "fake") != nil {
		t.Error("FindDevice should return nil when enumeration fails")
	}
}

func TestFindDevice(t *testing.T) {
	ctx := NewFakeContext(nil, false)
	if d := FindDevice(ctx, "fake"); d == nil || d.Name != "fake" {
		t.Errorf("FindDevice(fake) = %v", d)
	}
	if d := FindDevice(ctx, ""); d != nil {
		t.Errorf("FindDevice(\"\") = %v, want nil", d)
	}
	if d := FindDevice(ctx, "missing"); d != nil {
		t.Errorf("FindDevice(missing) = %v, want nil", d)
	}
}

func TestNewFakeContextFromWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.wav")
	data := append(make([]byte, wavHeaderSize), 1, 2, 3, 4)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	ctx, err := NewFakeContextFromWAV(path, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(ctx.pcm) != 4 {
		t.Errorf("pcm = %v, want 4 bytes", ctx.pcm)
	}

	if _, err := NewFakeContextFromWAV(filepath.Join(t.TempDir(), "missing.wav"), false); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestPickerRun(t *testing.T) {
	devices := []DeviceInfo{{Name: "Built-in"}, {Name: "AirPods Pro"}, {Name: "USB Mic"}}

	cases := []struct {
		name  string
		input string
		want  string
		err   error
	}{
		{"default", "\r", "Built-in", nil},
		{"vim keys", "jjk\r", "AirPods Pro", nil},
		{"clamped", "kkk\r", "Built-in", nil},
		{"arrows", "\x1b[B\x1b[B\x1b[B\r", "USB Mic", nil},
		{"cancel", "jq", "", ErrSelectionCancelled},
		{"ctrl-c", "\x03", "", ErrSelectionCancelled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out strings.Builder
			got, err := newPicker(devices).run(&chunkReader{data: []byte(tc.input)}, &out)
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("err = %v, want %v", err, tc.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if got.Name != tc.want {
				t.Errorf("picked %q, want %q", got.Name, tc.want)
			}
			if !strings.Contains(out.String(), "headset mic") {
				t.Error("bluetooth device not flagged")
			}
		})
	}
}

func TestPickerInputClosed(t *testing.T) {
	_, err := newPicker([]DeviceInfo{{Name: "a"}, {Name: "b"}}).run(strings.NewReader("j"), io.Discard)
	if err == nil {
		t.Fatal("expected error when input ends")
	}
}

// chunkReader hands out one key per Read, the way a raw terminal does.
type chunkReader struct {
	data []byte
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := 1
	if r.data[0] == 0x1b && len(r.data) >= 3 {
		n = 3
	}
	n = copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}
