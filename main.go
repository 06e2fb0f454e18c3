package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/spf13/cobra"

	"github.com/reesdraminski/soundboard/audio"
	"github.com/reesdraminski/soundboard/board"
	"github.com/reesdraminski/soundboard/catalog"
	"github.com/reesdraminski/soundboard/config"
	"github.com/reesdraminski/soundboard/log"
	"github.com/reesdraminski/soundboard/player"
	"github.com/reesdraminski/soundboard/recorder"
	"github.com/reesdraminski/soundboard/store"
	"github.com/reesdraminski/soundboard/watcher"
)

var version = "dev"

var (
	configFlag  string
	logPathFlag string
	deviceFlag  string
	setupFlag   bool
	testFlag    string

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:               "soundboard",
	Short:             "Record short sounds, name them and play them back with a keypress",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) { log.Close() },
	RunE:              runRoot,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFlag, "config", "", "config file (default $XDG_CONFIG_HOME/soundboard/config.yaml)")
	pf.StringVar(&logPathFlag, "logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	pf.StringVar(&deviceFlag, "device", "", "use named microphone device")

	rootCmd.Flags().BoolVar(&setupFlag, "setup", false, "select microphone device (otherwise uses audio.device or the system default)")
	rootCmd.Flags().StringVar(&testFlag, "test", "", "test mode (headless, stdin-driven) recording from a WAV file")
	_ = rootCmd.Flags().MarkHidden("test")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, _ []string) error {
	logPath, err := log.ResolveDir(logPathFlag)
	if err != nil {
		return fmt.Errorf("failed to resolve log directory: %w", err)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	initCrashLog()

	// init writes the config file, so it must not need one.
	if cmd.Name() == "init" || cmd.Name() == "version" {
		return nil
	}
	cfg, err = config.Load(configFlag)
	if err != nil {
		return err
	}
	if deviceFlag != "" {
		cfg.Audio.Device = deviceFlag
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	return nil
}

func initCrashLog() {
	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	_ = debug.SetCrashOutput(crashFile, debug.CrashOptions{})
}

func runRoot(cmd *cobra.Command, _ []string) error {
	if testFlag != "" {
		return runTestMode(testFlag)
	}
	return runTUI()
}

type sessionOptions struct {
	capture  bool
	playback bool
	watch    bool
	// audio replaces the system audio context, as in test mode.
	audio audio.Context
	// sink replaces the system playback sink.
	sink player.Sink
	// pickDevice runs the interactive device picker before recording.
	pickDevice bool
}

// session is everything one run of the program owns.
type session struct {
	board     *board.Board
	store     store.Store
	audio     audio.Context
	ownsAudio bool
	watcher   *watcher.Watcher
}

func openSession(cfg config.Config, opts sessionOptions) *session {
	s := &session{}

	st, err := store.Open(cfg.StoreOpenConfig())
	if err != nil {
		log.StorageUnavailable("open", err)
		fmt.Fprintf(os.Stderr, "Warning: %v; sounds will last only for this session\n", err)
	} else {
		s.store = st
	}

	var device *audio.DeviceInfo
	if opts.capture {
		s.audio = opts.audio
		if s.audio == nil {
			ctx, err := audio.NewContext()
			if err != nil {
				log.CaptureUnavailable(err)
			} else {
				s.audio = ctx
				s.ownsAudio = true
			}
		}
		if s.audio != nil {
			device = pickDevice(s.audio, cfg.Audio.Device, opts.pickDevice)
		}
	}
	sink := opts.sink
	if sink == nil && opts.playback {
		sink, err = player.New()
		if err != nil {
			log.Warnf("playback unavailable: %v", err)
			sink = player.Nop{}
		}
	}

	var cues *player.Cues
	if opts.capture && sink != nil {
		cues = player.NewCues(sink, cfg.Cues)
	}

	s.board = board.New(board.Options{
		Catalog:  catalog.New(s.store, cfg.Store.Key),
		Recorder: recorder.New(s.audio, device, captureConfig(cfg)),
		Sink:     sink,
		Cues:     cues,
	})
	log.SessionStart(cfg.Store.Backend, cfg.Store.Key, s.board.Len())

	if opts.watch && cfg.Watch && s.store != nil && cfg.Store.Backend != store.BackendMemory {
		w, err := watcher.New(watcher.Config{Path: cfg.Store.Path, DebounceDur: cfg.WatchDebounce})
		if err == nil {
			err = w.Start()
		}
		if err != nil {
			log.Warnf("store watcher disabled: %v", err)
		} else {
			s.watcher = w
		}
	}
	return s
}

func pickDevice(ctx audio.Context, name string, interactive bool) *audio.DeviceInfo {
	if interactive {
		dev, err := audio.SelectDevice(ctx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
			return nil
		}
		return dev
	}
	dev := audio.FindDevice(ctx, name)
	if dev == nil && name != "" {
		log.Warnf("device %q not found, using system default", name)
	}
	return dev
}

func captureConfig(cfg config.Config) audio.CaptureConfig {
	return audio.CaptureConfig{
		SampleRate: uint32(cfg.Audio.SampleRate),
		Channels:   uint32(cfg.Audio.Channels),
	}
}

// changes is nil when the store is not being watched.
func (s *session) changes() <-chan struct{} {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Changes()
}

func (s *session) Close() {
	if s.watcher != nil {
		_ = s.watcher.Stop()
	}
	s.board.Close()
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Warnf("store close: %v", err)
		}
	}
	if s.ownsAudio {
		s.audio.Close()
	}
}

func deviceLineText(name string) string {
	suffix := ""
	if audio.IsBluetooth(name) {
		suffix = " (BT!)"
	}
	return "mic: " + name + suffix
}
