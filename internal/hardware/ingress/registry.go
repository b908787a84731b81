package ingress

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"opmenu/internal/hardware"
)

// ErrUnknownKind is returned for an event kind with no registration.
var ErrUnknownKind = errors.New("unknown event kind")

type decoder func(r io.Reader) (any, error)

// Registry maps event kinds used on the wire to bus event types.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]decoder
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]decoder)}
}

// Register binds kind to event type E. The request body is decoded strictly
// into E and its Meta is stamped if the sender left it out.
func Register[E any, P interface {
	*E
	Stamp()
}](r *Registry, kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[kind] = func(body io.Reader) (any, error) {
		var ev E
		dec := json.NewDecoder(body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&ev); err != nil {
			return nil, err
		}
		P(&ev).Stamp()
		return ev, nil
	}
}

// Decode reads a kind event from body.
func (r *Registry) Decode(kind string, body io.Reader) (any, error) {
	r.mu.RLock()
	dec, ok := r.kinds[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return dec(body)
}

// Kinds lists registered kinds, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.kinds))
	for k := range r.kinds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DefaultRegistry registers every hardware event.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	Register[hardware.DoorOpenedEvent](r, "door.opened")
	Register[hardware.DoorClosedEvent](r, "door.closed")
	Register[hardware.KeyOnEvent](r, "key.on")
	Register[hardware.KeyOffEvent](r, "key.off")
	Register[hardware.ButtonDownEvent](r, "button.down")
	Register[hardware.ButtonUpEvent](r, "button.up")
	Register[hardware.BellStateEvent](r, "bell.state")
	Register[hardware.ReelStatusEvent](r, "reel.status")
	Register[hardware.ReelStoppedEvent](r, "reel.stopped")
	Register[hardware.VolumeChangedEvent](r, "audio.volume")
	Register[hardware.CoinInEvent](r, "coin.in")
	Register[hardware.DivertChangedEvent](r, "coin.divert")
	Register[hardware.NetworkConfigChangedEvent](r, "network.changed")
	return r
}
