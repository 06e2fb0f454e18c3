package hotkey

import "time"

const DefaultHold = 400 * time.Millisecond

type Action int

const (
	Start Action = iota
	Stop
)

func (a Action) String() string {
	if a == Start {
		return "start"
	}
	return "stop"
}

// Trigger turns raw presses into record actions. A tap starts recording and
// the next press stops it; holding longer than hold records until release.
type Trigger struct {
	actions chan Action
	done    chan struct{}
}

func NewTrigger(hk Hotkey, hold time.Duration) *Trigger {
	if hold <= 0 {
		hold = DefaultHold
	}
	t := &Trigger{
		actions: make(chan Action, 1),
		done:    make(chan struct{}),
	}
	go t.run(hk, hold)
	return t
}

func (t *Trigger) Actions() <-chan Action { return t.actions }

// Close stops the trigger. It does not unregister hk.
func (t *Trigger) Close() { close(t.done) }

func (t *Trigger) run(hk Hotkey, hold time.Duration) {
	for {
		if !t.wait(hk.Keydown()) || !t.emit(Start) {
			return
		}

		timer := time.NewTimer(hold)
		select {
		case <-timer.C:
			if !t.wait(hk.Keyup()) {
				return
			}
		case <-hk.Keyup():
			timer.Stop()
			// Tapped: recording stays on until the next press is released.
			if !t.wait(hk.Keydown()) || !t.wait(hk.Keyup()) {
				return
			}
		case <-t.done:
			timer.Stop()
			return
		}

		if !t.emit(Stop) {
			return
		}
	}
}

func (t *Trigger) wait(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	case <-t.done:
		return false
	}
}

func (t *Trigger) emit(a Action) bool {
	select {
	case <-t.done:
		return false
	default:
	}
	select {
	case t.actions <- a:
		return true
	case <-t.done:
		return false
	}
}
