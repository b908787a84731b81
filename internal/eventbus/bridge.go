package eventbus

import (
	"reflect"
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultBridgeBuffer is the number of undelivered events a Bridge holds.
const DefaultBridgeBuffer = 256

// EventMsg carries a bus event into the Bubble Tea update loop.
type EventMsg struct {
	Event any
	From  *Bridge // bridge that delivered the event
}

// Bridge marshals bus events onto the UI update loop. Publishers never block
// on it: when the buffer is full the oldest pending event is dropped.
type Bridge struct {
	bus     *Bus
	ch      chan any
	done    chan struct{}
	sendMu  sync.Mutex
	once    sync.Once
	dropped atomic.Int64
}

// NewBridge creates a bridge with the given buffer size (DefaultBridgeBuffer
// when size <= 0). It forwards nothing until Forward or ForwardAll is called.
func NewBridge(bus *Bus, size int) *Bridge {
	if size <= 0 {
		size = DefaultBridgeBuffer
	}
	return &Bridge{
		bus:  bus,
		ch:   make(chan any, size),
		done: make(chan struct{}),
	}
}

// Forward subscribes the bridge to the given event types.
func (br *Bridge) Forward(types ...reflect.Type) {
	for _, t := range types {
		br.bus.Subscribe(t, br, br.push)
	}
}

// ForwardAll subscribes the bridge to every event on the bus.
func (br *Bridge) ForwardAll() {
	br.bus.SubscribeAll(br, br.push)
}

// TypeOf is a convenience for building Forward argument lists.
func TypeOf[E any]() reflect.Type {
	return typeOf[E]()
}

func (br *Bridge) push(ev any) {
	select {
	case <-br.done:
		return
	default:
	}
	br.sendMu.Lock()
	defer br.sendMu.Unlock()
	for {
		select {
		case br.ch <- ev:
			return
		default:
		}
		select {
		case <-br.ch:
			br.dropped.Add(1)
		default:
		}
	}
}

// Listen returns a command that waits for the next event. Re-issue it after
// every EventMsg. After Close it yields nil.
func (br *Bridge) Listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-br.ch:
			return EventMsg{Event: ev, From: br}
		case <-br.done:
			return nil
		}
	}
}

// Dropped reports how many events were discarded because the buffer was full.
func (br *Bridge) Dropped() int64 {
	return br.dropped.Load()
}

// Close unsubscribes the bridge and releases pending listeners.
func (br *Bridge) Close() {
	br.once.Do(func() {
		br.bus.UnsubscribeAll(br)
		close(br.done)
	})
}
