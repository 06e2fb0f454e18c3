package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reesdraminski/soundboard/board"
	"github.com/reesdraminski/soundboard/catalog"
	"github.com/reesdraminski/soundboard/clip"
	"github.com/reesdraminski/soundboard/config"
	"github.com/reesdraminski/soundboard/doctor"
	"github.com/reesdraminski/soundboard/recorder"
)

var importName string
var recordName string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sounds in board order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s := openSession(cfg, sessionOptions{})
		defer s.Close()
		printSounds(cmd.OutOrStdout(), s.board.Entries())
		return nil
	},
}

var playCmd = &cobra.Command{
	Use:   "play NAME|#N",
	Short: "Play the first sound called NAME, or the sound at position N",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := openSession(cfg, sessionOptions{playback: true})
		defer s.Close()

		i, err := resolveSound(s.board, args[0])
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return s.board.Play(ctx, i)
	},
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Add a WAV or FLAC file to the board",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := openSession(cfg, sessionOptions{})
		defer s.Close()

		name := importName
		if !cmd.Flags().Changed("name") {
			name = nameFromPath(args[0])
		}
		idx, err := importSound(s.board, args[0], name)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %q as #%d\n", name, idx+1)
		warnSessionOnly(cmd.ErrOrStderr(), s.board)
		return nil
	},
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record one sound from the microphone without the board UI",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s := openSession(cfg, sessionOptions{capture: true, playback: true})
		defer s.Close()
		return recordHeadless(cmd.Context(), s.board, cmd.InOrStdin(), cmd.OutOrStdout(), recordName)
	},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run interactive checks of storage, microphone, speakers and clipboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		code := doctor.Run(doctor.Options{
			Store:   cfg.StoreOpenConfig(),
			Key:     cfg.Store.Key,
			Device:  cfg.Audio.Device,
			Capture: captureConfig(cfg),
			Hotkey:  cfg.Hotkey,
		})
		if code != 0 {
			return errors.New("doctor found problems")
		}
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long:  `Creates config.yaml in the soundboard config directory (or at --config) with default settings.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := configFlag
		if path == "" {
			path = filepath.Join(config.Dir(), "config.yaml")
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}
		if err := config.WriteDefaultConfig(path); err != nil {
			return fmt.Errorf("creating config file: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and exit",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "soundboard %s\n", version)
	},
}

func init() {
	importCmd.Flags().StringVar(&importName, "name", "", "sound name (default: file name without extension)")
	recordCmd.Flags().StringVar(&recordName, "name", "", "sound name")
	rootCmd.AddCommand(listCmd, playCmd, importCmd, recordCmd, doctorCmd, initCmd, versionCmd)
}

func displayName(name string) string {
	if name == "" {
		return "(unnamed)"
	}
	return name
}

func printSounds(w io.Writer, entries []catalog.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No sounds saved.")
		return
	}
	for i, e := range entries {
		detail := "unplayable"
		if payload, err := e.Payload(); err == nil {
			if pcm, err := clip.Decode(payload); err == nil {
				detail = fmt.Sprintf("%s %.1fs", clip.Format(payload), pcm.Duration().Seconds())
			}
		}
		fmt.Fprintf(w, "%3d. %s (%s)\n", i+1, displayName(e.Name), detail)
	}
}

// resolveSound accepts a sound name, or #N for the Nth sound.
func resolveSound(b *board.Board, ref string) (int, error) {
	if i := b.Find(ref); i >= 0 {
		return i, nil
	}
	if n, err := strconv.Atoi(strings.TrimPrefix(ref, "#")); err == nil && strings.HasPrefix(ref, "#") {
		if n < 1 || n > b.Len() {
			return -1, fmt.Errorf("no sound #%d (board has %d)", n, b.Len())
		}
		return n - 1, nil
	}
	return -1, fmt.Errorf("no sound named %q", ref)
}

func nameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func importSound(b *board.Board, path, name string) (int, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return -1, err
	}
	return b.Import(name, payload)
}

func warnSessionOnly(w io.Writer, b *board.Board) {
	if !b.Durable() {
		fmt.Fprintln(w, "Warning: storage unavailable; the sound was not saved to disk")
	}
}

// recordHeadless records until a line arrives on in, then saves the sound.
func recordHeadless(ctx context.Context, b *board.Board, in io.Reader, out io.Writer, name string) error {
	if err := b.StartRecording(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Recording from %s... press Enter to stop\n", b.DeviceName())

	line := make(chan struct{})
	go func() {
		_, _ = bufio.NewReader(in).ReadString('\n')
		close(line)
	}()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	select {
	case <-line:
	case <-ctx.Done():
	}

	res := <-b.StopRecording()
	if errors.Is(res.Err, recorder.ErrNoAudio) {
		fmt.Fprintln(out, "Nothing recorded.")
		return nil
	}
	if res.Err != nil {
		return res.Err
	}
	idx := b.Save(name, res.Payload)
	fmt.Fprintf(out, "Saved %q as #%d (%.1fs)\n", displayName(name), idx+1, res.Duration.Seconds())
	warnSessionOnly(out, b)
	return nil
}
