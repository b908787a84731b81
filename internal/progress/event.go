// Package progress carries status updates from background tasks (hashing,
// settings import/export) to whatever is displaying them.
package progress

import "time"

// Status indicates the state of a background task.
type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
	StatusAborted Status = "aborted"
)

// Terminal reports whether no further events follow s for the same task.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError || s == StatusAborted
}

// Event is one status update of a task.
type Event struct {
	Task      string
	Message   string
	Status    Status
	Done      int // completed units
	Total     int // 0 when unknown
	Timestamp time.Time
}

// Percent returns completion in [0, 100], or -1 when Total is unknown.
func (e Event) Percent() int {
	if e.Total <= 0 {
		return -1
	}
	p := e.Done * 100 / e.Total
	if p > 100 {
		p = 100
	}
	return p
}

// Emitter receives progress events. Implementations must not block.
type Emitter interface {
	Emit(ev Event)
}

// ChanEmitter emits events to a channel.
type ChanEmitter struct {
	Ch chan<- Event
}

// Emit sends the event to the channel (non-blocking; drops if full).
func (e *ChanEmitter) Emit(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case e.Ch <- ev:
	default:
		// Channel full; never stall the task.
	}
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Event)

func (f EmitterFunc) Emit(ev Event) { f(ev) }

// Nop discards every event.
var Nop Emitter = EmitterFunc(func(Event) {})

// OrNop returns e, or Nop when e is nil.
func OrNop(e Emitter) Emitter {
	if e == nil {
		return Nop
	}
	return e
}
