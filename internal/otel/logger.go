package otel

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// queueSize bounds events waiting for the writer. Events are a few
// hundred bytes, so a full queue holds well under a megabyte.
const queueSize = 4096

// queued pairs the encoded line with the event it came from, so the ring
// keeps fields that never reach the JSONL (Dur).
type queued struct {
	line []byte
	ev   Event
}

// Logger appends events to a JSONL stream from a single writer goroutine
// and mirrors them into an optional RingBuffer. Emit never blocks: when the
// queue is full the event is counted as dropped.
//
// The writer goroutine owns w. ringMu guards only the ring pointer, and is
// released before the ring's own lock is taken.
type Logger struct {
	w       io.Writer
	queue   chan queued
	stopped chan struct{}

	ringMu sync.Mutex
	ring   *RingBuffer

	session  string
	dropped  atomic.Uint64
	closed   atomic.Bool
	stopOnce sync.Once
}

// NewLogger starts a Logger writing to w. Close flushes and stops it.
func NewLogger(w io.Writer) *Logger {
	l := &Logger{
		w:       w,
		queue:   make(chan queued, queueSize),
		stopped: make(chan struct{}),
		session: newSessionID(),
	}
	go l.writeLoop()
	return l
}

// NewNullLogger returns a Logger that only feeds its ring buffer.
func NewNullLogger() *Logger {
	return NewLogger(io.Discard)
}

func newSessionID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

func (l *Logger) writeLoop() {
	defer close(l.stopped)
	for q := range l.queue {
		if _, err := l.w.Write(q.line); err != nil {
			l.dropped.Add(1)
		}
		if ring := l.currentRing(); ring != nil {
			ring.Push(q.ev)
		}
	}
}

func (l *Logger) currentRing() *RingBuffer {
	l.ringMu.Lock()
	defer l.ringMu.Unlock()
	return l.ring
}

// Emit stamps Time (when zero) and the session id, then queues e.
// Safe on a nil Logger and after Close.
func (l *Logger) Emit(e Event) {
	if l == nil {
		return
	}
	if l.closed.Load() {
		l.dropped.Add(1)
		return
	}
	// Close can win the race between the check above and the send below
	defer func() {
		if recover() != nil {
			l.dropped.Add(1)
		}
	}()

	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.SessionID = l.session

	line, err := json.Marshal(e)
	if err != nil {
		l.dropped.Add(1)
		return
	}

	select {
	case l.queue <- queued{line: append(line, '\n'), ev: e}:
	default:
		l.dropped.Add(1)
	}
}

// Info emits an info event with a message.
func (l *Logger) Info(kind EventKind, comp, msg string) {
	l.Emit(Event{Level: LevelInfo, Kind: kind, Comp: comp, Msg: msg})
}

// Warn emits a warn event with a message.
func (l *Logger) Warn(kind EventKind, comp, msg string) {
	l.Emit(Event{Level: LevelWarn, Kind: kind, Comp: comp, Msg: msg})
}

// Error emits an error event. A nil err is recorded with an empty Err.
func (l *Logger) Error(kind EventKind, comp string, err error) {
	e := Event{Level: LevelError, Kind: kind, Comp: comp}
	if err != nil {
		e.Err = err.Error()
	}
	l.Emit(e)
}

// SetRingBuffer mirrors future events into buf.
func (l *Logger) SetRingBuffer(buf *RingBuffer) {
	l.ringMu.Lock()
	l.ring = buf
	l.ringMu.Unlock()
}

// SessionID identifies this process in every emitted event.
func (l *Logger) SessionID() string {
	return l.session
}

// Dropped counts events lost to a full queue, an encode failure, a write
// error or a closed logger.
func (l *Logger) Dropped() uint64 {
	return l.dropped.Load()
}

// Close drains queued events and stops the writer. Later Emits are
// dropped. Calling Close more than once is fine.
func (l *Logger) Close() {
	l.stopOnce.Do(func() {
		l.closed.Store(true)
		close(l.queue)
		<-l.stopped

		if n := l.dropped.Load(); n > 0 {
			fmt.Fprintf(os.Stderr, "viralscope: %d events dropped during session %s\n", n, l.session)
		}
	})
}
