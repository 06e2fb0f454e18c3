package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# soundboard configuration
# Every key can also be set from the environment, e.g. SOUNDBOARD_STORE_BACKEND=sqlite.

store:
  # Where sounds are kept:
  #   file   - one JSON document (default)
  #   sqlite - a key-value table in an SQLite database
  #   memory - nothing is written; sounds last for one session
  backend: file
  # path defaults to sounds.json (file) or sounds.db (sqlite) next to this file.
  # path: ~/.config/soundboard/sounds.json
  key: sounds

audio:
  # Microphone name as shown by "soundboard --setup"; empty uses the system default.
  device: ""
  sample_rate: 44100
  channels: 1

# Play a short tick when recording starts and stops.
cues: true

# Reload the board when another soundboard saves a sound.
watch: true
watch_debounce: 200ms

# Global Ctrl+Shift+R record shortcut, active while the board is open.
# Tap to start and tap again to stop, or hold longer than hotkey_hold to
# record until release. On Linux this reads /dev/input and needs the input group.
hotkey: false
hotkey_hold: 400ms
`
}

// WriteDefaultConfig creates a config file at path with default settings and comments.
func WriteDefaultConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(DefaultConfigTemplate()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
