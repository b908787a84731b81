// Package ingress accepts device events from an external hardware core over
// HTTP and publishes them on the bus.
package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"opmenu/internal/eventbus"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DefaultAddr is the default listen address. It binds to loopback only; the
// hardware core runs on the same host.
const DefaultAddr = "127.0.0.1:9876"

const maxBodyBytes = 64 << 10

// Server receives device events via HTTP.
type Server struct {
	bus       *eventbus.Bus
	registry  *Registry
	logger    *zap.Logger
	addr      string
	router    chi.Router
	server    *http.Server
	published atomic.Int64

	mu       sync.Mutex
	listener net.Listener
	done     chan struct{}
}

// NewServer creates a server publishing on bus. A nil registry means
// DefaultRegistry; an empty addr means DefaultAddr.
func NewServer(bus *eventbus.Bus, registry *Registry, addr string, logger *zap.Logger) *Server {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if addr == "" {
		addr = DefaultAddr
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		bus:      bus,
		registry: registry,
		logger:   logger.Named("ingress"),
		addr:     addr,
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Get("/events", s.handleKinds)
	r.Post("/events/{kind}", s.handleEvent)
	s.router = r

	s.server = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens on the configured address and serves in the background.
// Listen errors are returned synchronously.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return errors.New("ingress already started")
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("serve", zap.Error(err))
		}
	}()
	s.logger.Info("listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address once started, or the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	started := s.listener != nil
	s.mu.Unlock()
	if !started {
		return nil
	}
	err := s.server.Shutdown(ctx)
	<-done
	return err
}

// Published returns how many events were accepted.
func (s *Server) Published() int64 { return s.published.Load() }

type healthResponse struct {
	Status    string `json:"status"`
	Published int64  `json:"published"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Published: s.Published()})
}

func (s *Server) handleKinds(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"kinds": s.registry.Kinds()})
}

type acceptedResponse struct {
	ID string `json:"id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleEvent handles POST /events/{kind}.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	ev, err := s.registry.Decode(kind, body)
	switch {
	case errors.Is(err, ErrUnknownKind):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	case err != nil:
		s.logger.Warn("bad event body", zap.String("kind", kind), zap.Error(err))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	s.bus.Publish(ev)
	s.published.Add(1)
	s.logger.Debug("event published", zap.String("kind", kind))

	id := ""
	if m, ok := metaOf(ev); ok {
		id = m.ID.String()
	}
	writeJSON(w, http.StatusAccepted, acceptedResponse{ID: id})
}

type metaCarrier interface {
	EventMeta() eventbus.Meta
}

func metaOf(ev any) (eventbus.Meta, bool) {
	if c, ok := ev.(metaCarrier); ok {
		return c.EventMeta(), true
	}
	return eventbus.Meta{}, false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
