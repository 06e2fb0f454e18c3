// Package doctor runs interactive checks of everything the soundboard
// depends on: the store, the saved catalog, the microphone, the speakers,
// the clipboard and, when enabled, the global record hotkey.
package doctor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/reesdraminski/soundboard/audio"
	"github.com/reesdraminski/soundboard/catalog"
	"github.com/reesdraminski/soundboard/clip"
	"github.com/reesdraminski/soundboard/clipboard"
	"github.com/reesdraminski/soundboard/hotkey"
	"github.com/reesdraminski/soundboard/player"
	"github.com/reesdraminski/soundboard/recorder"
	"github.com/reesdraminski/soundboard/shutdown"
	"github.com/reesdraminski/soundboard/store"
)

const recordFor = 2 * time.Second

type Options struct {
	Store    store.Config
	Key      string
	Device   string
	Capture  audio.CaptureConfig
	In       io.Reader
	Out      io.Writer
	Audio    audio.Context // nil opens the system audio context
	Sink     player.Sink   // nil opens the system playback sink
	SkipMic  bool
	SkipClip bool

	Hotkey   bool
	Diagnose func() (string, error) // nil uses hotkey.Diagnose
}

type checker struct {
	opts   Options
	in     *bufio.Reader
	out    io.Writer
	sample []byte
}

// Run executes diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run(opts Options) int {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Diagnose == nil {
		opts.Diagnose = hotkey.Diagnose
	}
	resetTerminal()
	setupInterruptHandler(opts.Out)

	c := &checker{opts: opts, in: bufio.NewReader(opts.In), out: opts.Out}
	fmt.Fprintln(c.out, "soundboard doctor - interactive system diagnostics")
	fmt.Fprintln(c.out, "==================================================")

	checks := []func() bool{c.checkStore, c.checkCatalog}
	if !opts.SkipMic {
		checks = append(checks, c.checkMic, c.checkPlayback)
	}
	if !opts.SkipClip {
		checks = append(checks, c.checkClipboard)
	}
	if opts.Hotkey {
		checks = append(checks, c.checkHotkey)
	}

	allPass := true
	for i, check := range checks {
		fmt.Fprintln(c.out)
		fmt.Fprintf(c.out, "[%d/%d] ", i+1, len(checks))
		if !check() {
			allPass = false
		}
	}

	fmt.Fprintln(c.out)
	if allPass {
		fmt.Fprintln(c.out, "All checks passed!")
		return 0
	}
	fmt.Fprintln(c.out, "Some checks failed. See details above.")
	return 1
}

func setupInterruptHandler(out io.Writer) {
	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		fmt.Fprintln(out, "\nInterrupted")
		os.Exit(1)
	}()
}

func (c *checker) checkStore() bool {
	fmt.Fprintf(c.out, "Storage (%s %s)\n", c.opts.Store.Backend, c.opts.Store.Path)

	s, err := store.Open(c.opts.Store)
	if err != nil {
		fmt.Fprintf(c.out, "  FAIL: %v\n", err)
		fmt.Fprintln(c.out, "  Sounds will only last for this session.")
		return false
	}
	defer s.Close()

	probeKey := c.key() + ".doctor"
	probe := time.Now().Format(time.RFC3339Nano)
	if err := s.Set(probeKey, probe); err != nil {
		fmt.Fprintf(c.out, "  FAIL: write: %v\n", err)
		return false
	}
	got, err := s.Get(probeKey)
	if err != nil {
		fmt.Fprintf(c.out, "  FAIL: read back: %v\n", err)
		return false
	}
	if got != probe {
		fmt.Fprintf(c.out, "  FAIL: read back %q, want %q\n", got, probe)
		return false
	}
	fmt.Fprintln(c.out, "  PASS: store is writable")
	return true
}

func (c *checker) checkCatalog() bool {
	fmt.Fprintf(c.out, "Saved sounds (key %q)\n", c.key())

	s, err := store.Open(c.opts.Store)
	if err != nil {
		fmt.Fprintf(c.out, "  FAIL: %v\n", err)
		return false
	}
	defer s.Close()

	entries := catalog.New(s, c.key()).Load()
	playable := 0
	for i, e := range entries {
		payload, err := e.Payload()
		if err == nil {
			_, err = clip.Decode(payload)
		}
		if err != nil {
			fmt.Fprintf(c.out, "  %d. %q: %v\n", i+1, e.Name, err)
			continue
		}
		playable++
	}
	if playable < len(entries) {
		fmt.Fprintf(c.out, "  FAIL: %d of %d sounds cannot be played\n", len(entries)-playable, len(entries))
		return false
	}
	fmt.Fprintf(c.out, "  PASS: %d sounds, all playable\n", len(entries))
	return true
}

func (c *checker) checkMic() bool {
	fmt.Fprintln(c.out, "Microphone")

	ctx := c.opts.Audio
	if ctx == nil {
		var err error
		ctx, err = audio.NewContext()
		if err != nil {
			fmt.Fprintf(c.out, "  FAIL: cannot connect to audio: %v\n", err)
			return false
		}
		defer ctx.Close()
	}

	devices, err := ctx.Devices()
	if err != nil {
		fmt.Fprintf(c.out, "  FAIL: cannot list devices: %v\n", err)
		return false
	}
	if len(devices) == 0 {
		fmt.Fprintln(c.out, "  FAIL: no capture devices found")
		return false
	}
	device := audio.FindDevice(ctx, c.opts.Device)
	if device != nil {
		fmt.Fprintf(c.out, "Using device: %s\n", device.Name)
		if audio.IsBluetooth(device.Name) {
			fmt.Fprintln(c.out, "  Warning: Bluetooth microphones switch headsets to low quality audio")
		}
	} else {
		fmt.Fprintln(c.out, "Using device: system default")
	}

	fmt.Fprintf(c.out, "Press Enter and make some noise for %.0f seconds...", recordFor.Seconds())
	_, _ = c.in.ReadString('\n')

	rec := recorder.New(ctx, device, c.opts.Capture)
	if err := rec.Start(); err != nil {
		fmt.Fprintf(c.out, "  FAIL: %v\n", err)
		return false
	}
	fmt.Fprint(c.out, "  Recording")
	var peak float64
	deadline := time.After(recordFor)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
loop:
	for i := 0; ; i++ {
		select {
		case <-deadline:
			break loop
		case <-ticker.C:
			if l := rec.Level(); l > peak {
				peak = l
			}
			if i%5 == 0 {
				fmt.Fprint(c.out, ".")
			}
		}
	}
	fmt.Fprintln(c.out, " done")

	res := <-rec.Stop()
	if res.Err != nil {
		fmt.Fprintf(c.out, "  FAIL: %v\n", res.Err)
		return false
	}
	c.sample = res.Payload
	fmt.Fprintf(c.out, "  Recorded %.1fs (%.1f KB), peak level %.3f\n", res.Duration.Seconds(), float64(len(res.Payload))/1024, peak)
	if peak < 0.002 {
		fmt.Fprintln(c.out, "  FAIL: only silence captured; check the input volume")
		return false
	}
	fmt.Fprintln(c.out, "  PASS: microphone captured audio")
	return true
}

func (c *checker) checkPlayback() bool {
	fmt.Fprintln(c.out, "Playback")
	if c.sample == nil {
		fmt.Fprintln(c.out, "  SKIP: nothing recorded to play back")
		return false
	}
	pcm, err := clip.Decode(c.sample)
	if err != nil {
		fmt.Fprintf(c.out, "  FAIL: %v\n", err)
		return false
	}

	sink := c.opts.Sink
	if sink == nil {
		sink, err = player.New()
		if err != nil {
			fmt.Fprintf(c.out, "  FAIL: cannot open playback: %v\n", err)
			return false
		}
		defer sink.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), pcm.Duration()+5*time.Second)
	defer cancel()
	if err := sink.Play(ctx, pcm); err != nil {
		fmt.Fprintf(c.out, "  FAIL: %v\n", err)
		return false
	}

	resetTerminal()
	fmt.Fprint(c.out, "Did you hear your recording? [y/n]: ")
	if !c.confirm() {
		fmt.Fprintln(c.out, "  FAIL: playback not confirmed")
		return false
	}
	fmt.Fprintln(c.out, "  PASS: playback verified by user")
	return true
}

func (c *checker) checkClipboard() bool {
	fmt.Fprintln(c.out, "Clipboard")
	if !clipboard.Available() {
		fmt.Fprintln(c.out, "  FAIL: no clipboard utility found (install xclip, xsel or wl-clipboard)")
		return false
	}

	sentinel := "soundboard-doctor-" + time.Now().Format("150405")
	if err := clipboard.Copy(sentinel); err != nil {
		fmt.Fprintf(c.out, "  FAIL: copy: %v\n", err)
		return false
	}
	got, err := clipboard.Read()
	if err != nil {
		fmt.Fprintf(c.out, "  FAIL: read: %v\n", err)
		return false
	}
	if got != sentinel {
		fmt.Fprintf(c.out, "  FAIL: clipboard holds %q, want %q\n", got, sentinel)
		return false
	}
	fmt.Fprintln(c.out, "  PASS: clipboard copy verified")
	return true
}

func (c *checker) checkHotkey() bool {
	fmt.Fprintln(c.out, "Hotkey "+hotkey.Combo)
	msg, err := c.opts.Diagnose()
	if err != nil {
		fmt.Fprintf(c.out, "  FAIL: %v\n", err)
		return false
	}
	fmt.Fprintf(c.out, "  PASS: %s\n", msg)
	return true
}

func (c *checker) confirm() bool {
	answer, _ := c.in.ReadString('\n')
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes"
}

func (c *checker) key() string {
	if c.opts.Key == "" {
		return catalog.DefaultKey
	}
	return c.opts.Key
}
