// Package config loads soundboard settings from config.yaml and
// SOUNDBOARD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/reesdraminski/soundboard/catalog"
	"github.com/reesdraminski/soundboard/clip"
	"github.com/reesdraminski/soundboard/store"
)

const EnvPrefix = "SOUNDBOARD"

type StoreConfig struct {
	Backend string `mapstructure:"backend"` // file, sqlite or memory
	Path    string `mapstructure:"path"`
	Key     string `mapstructure:"key"`
}

type AudioConfig struct {
	Device     string `mapstructure:"device"` // capture device name; empty is system default
	SampleRate int    `mapstructure:"sample_rate"`
	Channels   int    `mapstructure:"channels"`
}

type Config struct {
	Store         StoreConfig   `mapstructure:"store"`
	Audio         AudioConfig   `mapstructure:"audio"`
	Cues          bool          `mapstructure:"cues"`
	Watch         bool          `mapstructure:"watch"`
	WatchDebounce time.Duration `mapstructure:"watch_debounce"`
	Hotkey        bool          `mapstructure:"hotkey"` // global Ctrl+Shift+R record toggle
	HotkeyHold    time.Duration `mapstructure:"hotkey_hold"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Store: StoreConfig{
			Backend: store.BackendFile,
			Path:    DefaultStorePath(store.BackendFile),
			Key:     catalog.DefaultKey,
		},
		Audio: AudioConfig{
			SampleRate: clip.SampleRate,
			Channels:   clip.Channels,
		},
		Cues:          true,
		Watch:         true,
		WatchDebounce: 200 * time.Millisecond,
		HotkeyHold:    400 * time.Millisecond,
	}
}

// Dir is $XDG_CONFIG_HOME/soundboard, falling back to ~/.config/soundboard.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "soundboard")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "soundboard")
	}
	return "soundboard"
}

func DefaultStorePath(backend string) string {
	if backend == store.BackendSQLite {
		return filepath.Join(Dir(), "sounds.db")
	}
	return filepath.Join(Dir(), "sounds.json")
}

// Load reads path if set, otherwise config.yaml from Dir when present.
// A missing default config file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(Dir())
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	// A backend switch without an explicit path moves to that backend's file.
	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath(cfg.Store.Backend)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.key", d.Store.Key)
	v.SetDefault("store.path", "")
	v.SetDefault("audio.device", d.Audio.Device)
	v.SetDefault("audio.sample_rate", d.Audio.SampleRate)
	v.SetDefault("audio.channels", d.Audio.Channels)
	v.SetDefault("cues", d.Cues)
	v.SetDefault("watch", d.Watch)
	v.SetDefault("watch_debounce", d.WatchDebounce)
	v.SetDefault("hotkey", d.Hotkey)
	v.SetDefault("hotkey_hold", d.HotkeyHold)
}

// Validate checks configuration for errors.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case store.BackendFile, store.BackendSQLite, store.BackendMemory:
	default:
		return fmt.Errorf("store.backend: unknown backend %q (want file, sqlite or memory)", c.Store.Backend)
	}
	if c.Store.Key == "" {
		return errors.New("store.key: must not be empty")
	}
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		return fmt.Errorf("audio.sample_rate: %d out of range 8000-192000", c.Audio.SampleRate)
	}
	if c.Audio.Channels != 1 && c.Audio.Channels != 2 {
		return fmt.Errorf("audio.channels: %d (want 1 or 2)", c.Audio.Channels)
	}
	if c.WatchDebounce < 0 {
		return errors.New("watch_debounce: must not be negative")
	}
	if c.HotkeyHold < 0 {
		return errors.New("hotkey_hold: must not be negative")
	}
	return nil
}

func (c Config) StoreOpenConfig() store.Config {
	return store.Config{Backend: c.Store.Backend, Path: c.Store.Path}
}
