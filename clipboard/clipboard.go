// Package clipboard copies sound data as text to the system clipboard.
package clipboard

import (
	"fmt"

	cb "github.com/atotto/clipboard"
)

// Available is false when no clipboard utility (xclip, xsel, wl-copy,
// pbcopy) could be found.
func Available() bool {
	return !cb.Unsupported
}

func Read() (string, error) {
	return cb.ReadAll()
}

func Copy(text string) error {
	if !Available() {
		return fmt.Errorf("clipboard unavailable")
	}
	return cb.WriteAll(text)
}
