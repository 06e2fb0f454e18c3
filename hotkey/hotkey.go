// Package hotkey is the global record shortcut (Ctrl+Shift+R). It fires
// even when the soundboard's terminal does not have focus.
package hotkey

// Hotkey reports presses and releases of the record combination.
type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

const Combo = "Ctrl+Shift+R"
