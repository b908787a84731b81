// Package diag runs network diagnostic commands (ping, traceroute) for the
// network page and streams their output line by line.
package diag

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"opmenu/internal/validate"

	"go.uber.org/zap"
)

// Command selects the diagnostic to run.
type Command int

const (
	Ping Command = iota
	Traceroute
)

func (c Command) String() string {
	if c == Traceroute {
		return "traceroute"
	}
	return "ping"
}

// Options tune the commands.
type Options struct {
	Count   int // ping echo requests
	MaxHops int // traceroute hop limit
	Size    Size
}

// DefaultOptions are used for zero fields.
var DefaultOptions = Options{Count: 4, MaxHops: 15, Size: Size{Rows: 24, Cols: 100}}

func (o Options) withDefaults() Options {
	if o.Count <= 0 {
		o.Count = DefaultOptions.Count
	}
	if o.MaxHops <= 0 {
		o.MaxHops = DefaultOptions.MaxHops
	}
	if o.Size.Rows == 0 || o.Size.Cols == 0 {
		o.Size = DefaultOptions.Size
	}
	return o
}

// Args returns the argv for running c against host.
func (c Command) Args(host string, o Options) []string {
	o = o.withDefaults()
	if c == Traceroute {
		return []string{"traceroute", "-m", strconv.Itoa(o.MaxHops), host}
	}
	return []string{"ping", "-c", strconv.Itoa(o.Count), host}
}

const lineBuffer = 256

// Session is one running diagnostic.
type Session struct {
	Command Command
	Host    string

	ctx    context.Context
	cancel context.CancelFunc
	cmd    *exec.Cmd
	rwc    io.ReadWriteCloser
	lines  chan string
	done   chan struct{}
	once   sync.Once
	err    error
	logger *zap.Logger
}

// Start validates host and runs c under runner. Output lines arrive on
// Lines until the command exits or the session is closed.
func Start(ctx context.Context, runner Runner, c Command, host string, o Options, logger *zap.Logger) (*Session, error) {
	if err := validate.Host(host); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	argv := c.Args(host, o)
	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	rwc, err := runner.Start(ctx, cmd, o.withDefaults().Size)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("start %s: %w", c, err)
	}
	s := &Session{
		Command: c,
		Host:    host,
		ctx:     ctx,
		cancel:  cancel,
		cmd:     cmd,
		rwc:     rwc,
		lines:   make(chan string, lineBuffer),
		done:    make(chan struct{}),
		logger:  logger,
	}
	logger.Info("diagnostic started", zap.Stringer("command", c), zap.String("host", host))
	go s.read()
	return s, nil
}

func (s *Session) read() {
	defer close(s.done)
	defer close(s.lines)
	sc := bufio.NewScanner(s.rwc)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		select {
		case s.lines <- line:
		case <-s.ctx.Done():
			s.finish(nil)
			return
		}
	}
	s.finish(sc.Err())
}

func (s *Session) finish(readErr error) {
	var err error
	if s.cmd.Process != nil {
		err = s.cmd.Wait()
	}
	switch {
	case s.ctx.Err() != nil:
		// Closed by the caller; the kill is not a failure.
		err = nil
	case err == nil && readErr != nil && !endOfTerminal(readErr):
		err = readErr
	}
	s.err = err
	s.logger.Info("diagnostic finished",
		zap.Stringer("command", s.Command),
		zap.String("host", s.Host),
		zap.Error(err))
}

// endOfTerminal reports read errors that just mean the child side closed.
func endOfTerminal(err error) bool {
	return errors.Is(err, syscall.EIO) || errors.Is(err, os.ErrClosed)
}

// Lines delivers output lines. It is closed when the command ends.
func (s *Session) Lines() <-chan string { return s.lines }

// Done is closed once the command has exited and output is drained.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until the command ends and returns its error.
func (s *Session) Wait() error {
	<-s.done
	return s.err
}

// Close kills the command if still running and releases the terminal.
func (s *Session) Close() error {
	s.once.Do(func() {
		s.cancel()
		_ = s.rwc.Close()
	})
	<-s.done
	return s.err
}
