// Package tracker bridges the external capture process to typed
// TrackingFrame values. It owns the child process lifecycle and a dedicated
// reader goroutine, and isolates the rest of the pipeline from producer
// failure: malformed lines are counted and skipped, producer-reported errors
// and process exit are surfaced as events, and the frame queue drops the
// oldest entry when full so a stalled consumer never blocks the reader.
package tracker

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/vrmlive/retarget/internal/monitoring"
)

var (
	// ErrNoFrame reports that no frame arrived within the wait bound.
	ErrNoFrame = errors.New("tracker: no frame available")
	// ErrClosed reports that the session ended and the queue is drained.
	ErrClosed = errors.New("tracker: session closed")
)

// EventKind discriminates session events.
type EventKind int

const (
	// EventTrackerError carries a producer-reported operational problem
	// (for example a transient camera failure). The stream continues.
	EventTrackerError EventKind = iota
	// EventProcessExited reports that the capture process terminated. It is
	// emitted at most once per session; the session will not respawn.
	EventProcessExited
)

type Event struct {
	Kind     EventKind
	Message  string // set for EventTrackerError
	ExitCode int    // set for EventProcessExited; -1 when unknown
}

// Config describes how to launch a capture process session.
type Config struct {
	Executable string
	Args       []string
	Env        []string // appended to the parent environment
	// QueueSize bounds the frame queue; overflow evicts the oldest queued
	// frame. Defaults to 8.
	QueueSize int
	// Grace is how long Shutdown waits after the termination signal before
	// force-killing the child. Defaults to 3s.
	Grace time.Duration
}

// Session is one running capture-process session. A single reader goroutine
// feeds the frame queue; a single consumer loop drains it via Next.
type Session struct {
	id    string
	cmd   *exec.Cmd
	grace time.Duration

	frames chan TrackingFrame
	events chan Event
	done   chan struct{} // closed once the reader is finished and the child reaped

	framesReceived atomic.Uint64
	framesDropped  atomic.Uint64
	decodeErrors   atomic.Uint64
	rate           rateStats

	shutdownOnce sync.Once
}

// Start spawns the capture process with its stdout piped into the reader
// goroutine. Stderr passes through to the host's stderr as diagnostics and
// is never parsed; no stdin is provided. A failure to launch (not found,
// permission denied) is returned as a wrapped exec error.
func Start(cfg Config) (*Session, error) {
	if cfg.Executable == "" {
		return nil, errors.New("tracker: no executable configured")
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 8
	}
	if cfg.Grace <= 0 {
		cfg.Grace = 3 * time.Second
	}

	cmd := exec.Command(cfg.Executable, cfg.Args...)
	cmd.Env = append(os.Environ(), cfg.Env...)
	cmd.Stderr = os.Stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("tracker: pipe stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("tracker: spawn %s: %w", cfg.Executable, err)
	}

	s := newSession(cfg.QueueSize, cfg.Grace)
	s.cmd = cmd
	monitoring.Logf("tracker %s: started %s (pid %d)", s.id, cfg.Executable, cmd.Process.Pid)

	go s.run(stdout)
	return s, nil
}

// newSession builds the channel plumbing without a child process. Split out
// so the reader loop and queue policy are testable against an io.Reader.
func newSession(queueSize int, grace time.Duration) *Session {
	return &Session{
		id:     uuid.NewString(),
		grace:  grace,
		frames: make(chan TrackingFrame, queueSize),
		events: make(chan Event, 8),
		done:   make(chan struct{}),
	}
}

// ID returns the session identifier used in logs and diagnostics.
func (s *Session) ID() string { return s.id }

// Events returns the session event stream. Events are delivered best-effort:
// a consumer that never drains the channel loses older events rather than
// stalling the reader.
func (s *Session) Events() <-chan Event { return s.events }

// run drives the reader to completion, reaps the child exactly once and
// closes the frame queue. It is the only caller of cmd.Wait, so the child
// process resource is released on every exit path.
func (s *Session) run(stdout io.Reader) {
	s.readFrames(stdout)

	code := 0
	if err := s.cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			code = -1
		}
	}
	monitoring.Logf("tracker %s: process exited (code %d)", s.id, code)
	s.emit(Event{Kind: EventProcessExited, ExitCode: code})

	close(s.frames)
	close(s.done)
}

// readFrames consumes the line protocol until the stream ends. Each line is
// one independent JSON object; a line that fails to decode is counted and
// skipped, never fatal.
func (s *Session) readFrames(r io.Reader) {
	scan := bufio.NewScanner(r)
	// Frames carrying 33 landmarks run a few KB; leave generous headroom.
	scan.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scan.Scan() {
		line := scan.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		frame, trackerErr, err := DecodeLine(line)
		if err != nil {
			s.decodeErrors.Add(1)
			monitoring.Warnf("tracker %s: discarding malformed line: %v", s.id, err)
			continue
		}
		if trackerErr != "" {
			s.emit(Event{Kind: EventTrackerError, Message: trackerErr})
			continue
		}
		s.framesReceived.Add(1)
		s.rate.observe(frame.TS)
		s.push(frame)
	}
	if err := scan.Err(); err != nil {
		monitoring.Warnf("tracker %s: stdout read ended: %v", s.id, err)
	}
}

// push enqueues a frame under the latest-wins policy: when the queue is full
// the oldest pending frame is evicted. Tracking data is perishable, so a
// dropped stale frame beats blocking the reader.
func (s *Session) push(f TrackingFrame) {
	for {
		select {
		case s.frames <- f:
			return
		default:
		}
		select {
		case <-s.frames:
			s.framesDropped.Add(1)
		default:
			// consumer drained the queue between the two selects; retry
		}
	}
}

// Next returns the oldest queued frame, waiting up to timeout for one to
// arrive. A timeout of zero polls. Returns ErrNoFrame when the wait bound
// expires and ErrClosed once the session has ended and the queue is drained.
func (s *Session) Next(timeout time.Duration) (TrackingFrame, error) {
	select {
	case f, ok := <-s.frames:
		if !ok {
			return TrackingFrame{}, ErrClosed
		}
		return f, nil
	default:
	}
	if timeout <= 0 {
		return TrackingFrame{}, ErrNoFrame
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case f, ok := <-s.frames:
		if !ok {
			return TrackingFrame{}, ErrClosed
		}
		return f, nil
	case <-t.C:
		return TrackingFrame{}, ErrNoFrame
	}
}

// Shutdown terminates the session: a termination signal first, escalating to
// a forced kill after the grace period. Safe to call at any time, from any
// goroutine, and more than once; it does not error if the child has already
// exited, and it always waits for the child to be reaped.
func (s *Session) Shutdown() {
	s.shutdownOnce.Do(func() {
		if s.cmd == nil { // session built for tests, nothing to terminate
			return
		}
		if p := s.cmd.Process; p != nil {
			_ = p.Signal(syscall.SIGTERM)
		}
		select {
		case <-s.done:
			return
		case <-time.After(s.grace):
			monitoring.Warnf("tracker %s: no exit after %v, killing", s.id, s.grace)
			if p := s.cmd.Process; p != nil {
				_ = p.Kill()
			}
		}
		<-s.done
	})
}

// emit delivers an event without ever blocking the reader.
func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
	}
}
