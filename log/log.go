package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const EnvPath = "SOUNDBOARD_LOG_PATH"

var (
	diagLog   zerolog.Logger
	diagFile  *os.File
	logMu     sync.Mutex
	logReady  bool
	pid       int
	sessionID string
	dir       string
)

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: --logpath flag
	if flagPath != "" {
		return absolute(flagPath)
	}

	// Priority 2: SOUNDBOARD_LOG_PATH environment variable
	if envPath := os.Getenv(EnvPath); envPath != "" {
		return absolute(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

// SessionID identifies the running process in every log line. Empty until Init.
func SessionID() string {
	return sessionID
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()
	sessionID = uuid.NewString()

	var err error
	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().
		Timestamp().
		Int("pid", pid).
		Str("session", sessionID).
		Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func SessionStart(backend, key string, count int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("backend", backend).
		Str("key", key).
		Int("count", count).
		Msg("session_start")
}

func SessionEnd(count int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("count", count).
		Msg("session_end")
}

func SoundSaved(name string, payloadBytes, encodedBytes int, durable bool) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("name", name).
		Int("payload_bytes", payloadBytes).
		Int("encoded_bytes", encodedBytes).
		Bool("durable", durable).
		Msg("sound_saved")
}

func SoundPlayed(index int, name string, durationS float64, cached bool) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("index", index).
		Str("name", name).
		Float64("duration_s", durationS).
		Bool("cached", cached).
		Msg("sound_played")
}

// StorageUnavailable records a swallowed persistence failure.
func StorageUnavailable(op string, err error) {
	if !logReady {
		return
	}
	diagLog.Warn().
		Str("op", op).
		Err(err).
		Msg("storage_unavailable")
}

// CaptureUnavailable records a recording attempt that had no usable device.
func CaptureUnavailable(err error) {
	if !logReady {
		return
	}
	diagLog.Warn().
		Err(err).
		Msg("capture_unavailable")
}

func CatalogReloaded(count int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("count", count).
		Msg("catalog_reloaded")
}
