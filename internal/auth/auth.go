// Package auth computes software-integrity digests over the registered
// components of the cabinet, either plain or keyed with an HMAC seed.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"opmenu/internal/eventbus"
	"opmenu/internal/progress"
	"opmenu/internal/validate"

	"go.uber.org/zap"
	"golang.org/x/crypto/hkdf"
)

// TaskName identifies hash runs in progress events.
const TaskName = "hash"

// ComponentHashedEvent is published after each component is digested.
type ComponentHashedEvent struct {
	eventbus.Meta
	Component string
	Hash      string
}

// HashCompleteEvent is published once per Compute call, successful or not.
type HashCompleteEvent struct {
	eventbus.Meta
	Algorithm string
	Combined  string
	Err       string
}

// Request selects the algorithm and optional seed of a run.
type Request struct {
	Algorithm Algorithm
	// Seed is the hex HMAC key. Empty means a plain digest.
	Seed string
}

// ComponentResult is the digest of one component.
type ComponentResult struct {
	Name string
	Size int64
	Sum  []byte
}

// Result is the outcome of a completed run.
type Result struct {
	Algorithm  Algorithm
	Keyed      bool
	Components []ComponentResult
	// Combined is the digest over every component digest, in order.
	Combined []byte
}

// Service hashes the files under a manifest directory.
type Service struct {
	dir     string
	bus     *eventbus.Bus
	emitter progress.Emitter
	logger  *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithBus publishes hash events on b.
func WithBus(b *eventbus.Bus) Option { return func(s *Service) { s.bus = b } }

// WithEmitter reports progress to e.
func WithEmitter(e progress.Emitter) Option { return func(s *Service) { s.emitter = e } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.logger = l } }

// NewService returns a Service over the components found in dir.
func NewService(dir string, opts ...Option) *Service {
	s := &Service{dir: dir, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	s.emitter = progress.OrNop(s.emitter)
	return s
}

// Dir returns the manifest directory.
func (s *Service) Dir() string { return s.dir }

// Components lists the component files under the manifest directory as
// slash-separated relative paths, sorted.
func (s *Service) Components() ([]string, error) {
	var names []string
	err := filepath.WalkDir(s.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != s.dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(s.dir, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list components in %s: %w", s.dir, err)
	}
	sort.Strings(names)
	return names, nil
}

func (r Request) newHash() (func() hash.Hash, error) {
	if !r.Algorithm.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, r.Algorithm)
	}
	if r.Seed == "" {
		return r.Algorithm.New, nil
	}
	if err := validate.HMACKey(r.Algorithm, r.Seed); err != nil {
		return nil, err
	}
	key, err := hex.DecodeString(r.Seed)
	if err != nil {
		return nil, err
	}
	return func() hash.Hash { return hmac.New(r.Algorithm.New, key) }, nil
}

// Compute digests every component in order. Cancellation is checked between
// components and returns context.Canceled (or the context's error).
func (s *Service) Compute(ctx context.Context, req Request) (*Result, error) {
	res, err := s.compute(ctx, req)
	done := HashCompleteEvent{Meta: eventbus.NewMeta(), Algorithm: req.Algorithm.String()}
	final := progress.Event{Task: TaskName, Status: progress.StatusDone}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		done.Err = err.Error()
		final.Status = progress.StatusAborted
		final.Message = "aborted"
		s.logger.Info("hash aborted", zap.Stringer("algorithm", req.Algorithm))
	case err != nil:
		done.Err = err.Error()
		final.Status = progress.StatusError
		final.Message = err.Error()
		s.logger.Error("hash failed", zap.Stringer("algorithm", req.Algorithm), zap.Error(err))
	default:
		done.Combined = FormatHash(res.Combined)
		final.Message = done.Combined
		final.Done, final.Total = len(res.Components), len(res.Components)
		s.logger.Info("hash complete",
			zap.Stringer("algorithm", req.Algorithm),
			zap.Bool("keyed", res.Keyed),
			zap.Int("components", len(res.Components)))
	}
	s.emitter.Emit(final)
	if s.bus != nil {
		s.bus.Publish(done)
	}
	return res, err
}

func (s *Service) compute(ctx context.Context, req Request) (*Result, error) {
	newHash, err := req.newHash()
	if err != nil {
		return nil, err
	}
	names, err := s.Components()
	if err != nil {
		return nil, err
	}
	res := &Result{Algorithm: req.Algorithm, Keyed: req.Seed != ""}
	combined := newHash()
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.emitter.Emit(progress.Event{
			Task:    TaskName,
			Message: name,
			Status:  progress.StatusRunning,
			Done:    i,
			Total:   len(names),
		})
		cr, err := hashFile(ctx, filepath.Join(s.dir, filepath.FromSlash(name)), newHash())
		if err != nil {
			return nil, fmt.Errorf("hash %s: %w", name, err)
		}
		cr.Name = name
		res.Components = append(res.Components, cr)
		combined.Write(cr.Sum)
		if s.bus != nil {
			s.bus.Publish(ComponentHashedEvent{Meta: eventbus.NewMeta(), Component: name, Hash: FormatHash(cr.Sum)})
		}
	}
	res.Combined = combined.Sum(nil)
	return res, nil
}

// ctxReader stops a long copy when ctx is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func hashFile(ctx context.Context, path string, h hash.Hash) (ComponentResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ComponentResult{}, err
	}
	defer f.Close()
	n, err := io.Copy(h, ctxReader{ctx: ctx, r: f})
	if err != nil {
		return ComponentResult{}, err
	}
	return ComponentResult{Size: n, Sum: h.Sum(nil)}, nil
}

// FormatHash renders sum as upper-case hex in space-separated groups of four
// characters.
func FormatHash(sum []byte) string {
	h := strings.ToUpper(hex.EncodeToString(sum))
	var b strings.Builder
	for i := 0; i < len(h); i += 4 {
		if i > 0 {
			b.WriteByte(' ')
		}
		end := i + 4
		if end > len(h) {
			end = len(h)
		}
		b.WriteString(h[i:end])
	}
	return b.String()
}

// DeriveSeed expands secret and salt with HKDF-SHA256 into a hex seed sized
// for alg, suitable for Request.Seed.
func DeriveSeed(alg Algorithm, secret, salt []byte) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("derive seed: empty secret")
	}
	if !alg.Valid() {
		return "", fmt.Errorf("derive seed: %w: %s", ErrUnknownAlgorithm, alg)
	}
	out := make([]byte, alg.Size())
	r := hkdf.New(sha256.New, secret, salt, []byte("opmenu hmac seed "+alg.String()))
	if _, err := io.ReadFull(r, out); err != nil {
		return "", fmt.Errorf("derive seed: %w", err)
	}
	return hex.EncodeToString(out), nil
}
