//go:build windows

package shutdown

import (
	"os"
	"os/signal"
)

// Notify relays the signals that end a session.
func Notify(ch chan os.Signal) {
	signal.Notify(ch, os.Interrupt)
}
