package tracker

import (
	"fmt"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feedSession runs the reader loop over canned input and closes the queue the
// way a finished session would, without spawning a child process.
func feedSession(t *testing.T, queueSize int, input string) *Session {
	t.Helper()
	s := newSession(queueSize, time.Second)
	s.readFrames(strings.NewReader(input))
	close(s.frames)
	close(s.done)
	return s
}

func TestReadFrames_MalformedLineDoesNotInterruptStream(t *testing.T) {
	t.Parallel()

	input := `{"ts":1.0,"blendshapes":{"jawOpen":0.1}}` + "\n" +
		`{"ts":2.0,"blendshapes":{` + "\n" + // truncated JSON
		`{"ts":3.0,"blendshapes":{"jawOpen":0.3}}` + "\n"
	s := feedSession(t, 8, input)

	first, err := s.Next(0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, first.TS)

	second, err := s.Next(0)
	require.NoError(t, err)
	assert.Equal(t, 3.0, second.TS)

	_, err = s.Next(0)
	assert.ErrorIs(t, err, ErrClosed)

	stats := s.Stats()
	assert.Equal(t, uint64(2), stats.FramesReceived)
	assert.Equal(t, uint64(1), stats.DecodeErrors)
}

func TestReadFrames_ErrorLineBecomesEvent(t *testing.T) {
	t.Parallel()

	input := `{"error":"camera unavailable"}` + "\n" +
		`{"ts":1.0,"blendshapes":{}}` + "\n"
	s := feedSession(t, 8, input)

	frame, err := s.Next(0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, frame.TS)

	select {
	case ev := <-s.Events():
		assert.Equal(t, EventTrackerError, ev.Kind)
		assert.Equal(t, "camera unavailable", ev.Message)
	default:
		t.Fatal("expected a tracker error event")
	}
}

func TestReadFrames_LatestWinsOverflow(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(&b, `{"ts":%d.0,"blendshapes":{}}`+"\n", i)
	}
	s := feedSession(t, 3, b.String())

	// The three newest frames survive; everything older was evicted.
	var got []float64
	for {
		frame, err := s.Next(0)
		if err != nil {
			assert.ErrorIs(t, err, ErrClosed)
			break
		}
		got = append(got, frame.TS)
	}
	assert.Equal(t, []float64{8.0, 9.0, 10.0}, got)
	assert.Equal(t, uint64(7), s.Stats().FramesDropped)
}

func TestNext_TimeoutReturnsNoFrame(t *testing.T) {
	t.Parallel()

	s := newSession(4, time.Second)

	start := time.Now()
	_, err := s.Next(20 * time.Millisecond)
	assert.ErrorIs(t, err, ErrNoFrame)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	// Zero timeout polls without waiting.
	_, err = s.Next(0)
	assert.ErrorIs(t, err, ErrNoFrame)
}

func TestNext_DrainsQueueBeforeClosed(t *testing.T) {
	t.Parallel()

	s := feedSession(t, 8, `{"ts":1.0,"blendshapes":{}}`+"\n")

	_, err := s.Next(0)
	require.NoError(t, err)
	_, err = s.Next(10 * time.Millisecond)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRateStats(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for i := 0; i < 5; i++ {
		// 30 fps spacing
		fmt.Fprintf(&b, `{"ts":%f,"blendshapes":{}}`+"\n", float64(i)/30.0)
	}
	s := feedSession(t, 8, b.String())

	stats := s.Stats()
	assert.Equal(t, 4, stats.IntervalCount)
	assert.InDelta(t, 1.0/30.0, stats.IntervalMean, 1e-6)
	assert.InDelta(t, 0.0, stats.IntervalStdDev, 1e-6)
}

func TestStart_SpawnErrorForMissingExecutable(t *testing.T) {
	t.Parallel()

	_, err := Start(Config{Executable: "/nonexistent/tracker-binary"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spawn")
}

func TestStart_EmptyExecutable(t *testing.T) {
	t.Parallel()

	_, err := Start(Config{})
	assert.Error(t, err)
}

func TestSession_EndToEndWithShellProducer(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	script := `printf '%s\n' '{"ts":1.0,"blendshapes":{"eyeBlinkLeft":0.8}}' '{"ts":2.0,"blendshapes":{}}'`
	s, err := Start(Config{
		Executable: "sh",
		Args:       []string{"-c", script},
		QueueSize:  4,
		Grace:      time.Second,
	})
	require.NoError(t, err)
	defer s.Shutdown()

	frame, err := s.Next(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1.0, frame.TS)

	// Once the producer exits the stream ends with a ProcessExited event.
	deadline := time.After(2 * time.Second)
	for {
		_, err := s.Next(50 * time.Millisecond)
		if err == ErrClosed {
			break
		}
		select {
		case <-deadline:
			t.Fatal("stream never closed after producer exit")
		default:
		}
	}

	select {
	case ev := <-s.Events():
		assert.Equal(t, EventProcessExited, ev.Kind)
		assert.Equal(t, 0, ev.ExitCode)
	case <-time.After(time.Second):
		t.Fatal("expected a process exited event")
	}
}

func TestShutdown_IdempotentAndSafeAfterExit(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	s, err := Start(Config{Executable: "sh", Args: []string{"-c", "exit 0"}, Grace: time.Second})
	require.NoError(t, err)

	// Wait for the child to be gone before shutting down.
	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
		t.Fatal("producer did not exit")
	}

	finished := make(chan struct{})
	go func() {
		s.Shutdown()
		s.Shutdown()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown blocked on an already-dead child")
	}
}

func TestShutdown_TerminatesLongRunningProducer(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	s, err := Start(Config{Executable: "sh", Args: []string{"-c", "sleep 30"}, Grace: 500 * time.Millisecond})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		s.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not terminate the producer")
	}

	_, err = s.Next(10 * time.Millisecond)
	assert.ErrorIs(t, err, ErrClosed)
}
