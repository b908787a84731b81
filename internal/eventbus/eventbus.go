// Package eventbus is the in-process publish/subscribe mechanism used to
// notify the operator menu of hardware state changes.
//
// Handlers are keyed by the dynamic type of the event and by an owner. Owners
// are usually pages: a page subscribes when it loads and calls UnsubscribeAll
// with itself when it closes. Owners are compared with ==, so they must be
// comparable values, normally pointers; subscribing with any other owner
// panics.
package eventbus

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Meta is embedded in every event published on the bus.
type Meta struct {
	ID uuid.UUID `json:"id"`
	At time.Time `json:"at"`
}

// NewMeta returns a Meta with a fresh ID stamped with the current time.
func NewMeta() Meta {
	return Meta{ID: uuid.New(), At: time.Now()}
}

// EventMeta returns m. Events embedding Meta expose their metadata through
// it without reflection.
func (m Meta) EventMeta() Meta { return m }

// Stamp fills in a missing ID or timestamp. Events decoded from outside the
// process may carry neither.
func (m *Meta) Stamp() {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.At.IsZero() {
		m.At = time.Now()
	}
}

// Handler receives an event. The concrete type matches the type it was
// subscribed for (or any type for SubscribeAll).
type Handler func(event any)

type subscription struct {
	owner   any
	handler Handler
	filter  func(any) bool
}

// Bus is a synchronous, type-keyed event bus. The zero value is not usable;
// call New.
type Bus struct {
	mu       sync.RWMutex
	byType   map[reflect.Type][]subscription
	wildcard []subscription
	logger   *zap.Logger
}

// New creates an empty bus. A nil logger is replaced by a no-op logger.
func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		byType: make(map[reflect.Type][]subscription),
		logger: logger,
	}
}

// Subscribe registers handler for events whose dynamic type is eventType.
// owner identifies the subscriber for UnsubscribeAll.
func (b *Bus) Subscribe(eventType reflect.Type, owner any, handler Handler) {
	b.subscribe(eventType, subscription{owner: owner, handler: handler})
}

func (b *Bus) subscribe(eventType reflect.Type, sub subscription) {
	if sub.handler == nil || sub.owner == nil {
		return
	}
	mustCompare(sub.owner)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byType[eventType] = append(b.byType[eventType], sub)
}

// SubscribeAll registers handler for every event published on the bus.
func (b *Bus) SubscribeAll(owner any, handler Handler) {
	if handler == nil || owner == nil {
		return
	}
	mustCompare(owner)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wildcard = append(b.wildcard, subscription{owner: owner, handler: handler})
}

// mustCompare panics unless owner can be matched by UnsubscribeAll.
func mustCompare(owner any) {
	if !reflect.ValueOf(owner).Comparable() {
		panic(fmt.Sprintf("eventbus: owner of type %T is not comparable", owner))
	}
}

// Subscribe registers fn for events of type E.
func Subscribe[E any](b *Bus, owner any, fn func(E)) {
	SubscribeFiltered(b, owner, fn, nil)
}

// SubscribeFiltered registers fn for events of type E for which filter
// returns true. A nil filter accepts every event.
func SubscribeFiltered[E any](b *Bus, owner any, fn func(E), filter func(E) bool) {
	if fn == nil {
		return
	}
	sub := subscription{
		owner:   owner,
		handler: func(ev any) { fn(ev.(E)) },
	}
	if filter != nil {
		sub.filter = func(ev any) bool { return filter(ev.(E)) }
	}
	b.subscribe(typeOf[E](), sub)
}

// Unsubscribe removes owner's handlers for events of type E.
func Unsubscribe[E any](b *Bus, owner any) {
	t := typeOf[E]()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byType[t] = without(b.byType[t], owner)
	if len(b.byType[t]) == 0 {
		delete(b.byType, t)
	}
}

// UnsubscribeAll removes every handler registered by owner.
func (b *Bus) UnsubscribeAll(owner any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for t, subs := range b.byType {
		subs = without(subs, owner)
		if len(subs) == 0 {
			delete(b.byType, t)
			continue
		}
		b.byType[t] = subs
	}
	b.wildcard = without(b.wildcard, owner)
}

// Count returns the number of handlers currently registered by owner.
func (b *Bus) Count(owner any) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, subs := range b.byType {
		for _, s := range subs {
			if s.owner == owner {
				n++
			}
		}
	}
	for _, s := range b.wildcard {
		if s.owner == owner {
			n++
		}
	}
	return n
}

// Publish delivers event to the handlers subscribed at the time of the call.
// Delivery happens on the caller's goroutine. A handler that panics is logged
// and skipped; the remaining handlers still run.
func (b *Bus) Publish(event any) {
	if event == nil {
		return
	}
	b.mu.RLock()
	typed := b.byType[reflect.TypeOf(event)]
	subs := make([]subscription, 0, len(typed)+len(b.wildcard))
	subs = append(subs, typed...)
	subs = append(subs, b.wildcard...)
	b.mu.RUnlock()

	for _, s := range subs {
		if s.filter != nil && !b.safeFilter(s, event) {
			continue
		}
		b.deliver(s, event)
	}
}

func (b *Bus) safeFilter(s subscription, event any) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event filter panicked",
				zap.String("event", fmt.Sprintf("%T", event)),
				zap.Any("panic", r))
			ok = false
		}
	}()
	return s.filter(event)
}

func (b *Bus) deliver(s subscription, event any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("event", fmt.Sprintf("%T", event)),
				zap.String("owner", fmt.Sprintf("%T", s.owner)),
				zap.Any("panic", r))
		}
	}()
	s.handler(event)
}

func without(subs []subscription, owner any) []subscription {
	out := subs[:0:0]
	for _, s := range subs {
		if s.owner != owner {
			out = append(out, s)
		}
	}
	return out
}

func typeOf[E any]() reflect.Type {
	return reflect.TypeOf((*E)(nil)).Elem()
}
