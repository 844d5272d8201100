package otel

import (
	"maps"
	"strings"
	"sync"
)

// DefaultRingSize is used when NewRingBuffer gets a non-positive size.
const DefaultRingSize = 1024

// RingBuffer keeps the most recent events in memory for GET /api/events.
// Safe for concurrent use.
type RingBuffer struct {
	mu     sync.Mutex
	events []Event
	next   int  // slot the next Push writes
	full   bool // every slot holds an event
}

// NewRingBuffer returns a ring holding up to size events.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingBuffer{events: make([]Event, size)}
}

// Push stores e, evicting the oldest event when full. Extra is cloned.
func (r *RingBuffer) Push(e Event) {
	e.Extra = maps.Clone(e.Extra)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[r.next] = e
	r.next++
	if r.next == len(r.events) {
		r.next = 0
		r.full = true
	}
}

// Len is the number of stored events.
func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lenLocked()
}

// Cap is the ring capacity.
func (r *RingBuffer) Cap() int {
	return len(r.events)
}

func (r *RingBuffer) lenLocked() int {
	if r.full {
		return len(r.events)
	}
	return r.next
}

// at returns the i-th newest event (0 is the newest). Caller holds r.mu.
func (r *RingBuffer) at(i int) Event {
	idx := r.next - 1 - i
	if idx < 0 {
		idx += len(r.events)
	}
	return r.events[idx]
}

// collect walks from newest to oldest, keeping up to n matches (n <= 0 means
// no limit), and returns them oldest first.
func (r *RingBuffer) collect(n int, keep func(Event) bool) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := r.lenLocked()
	var out []Event
	for i := 0; i < total && (n <= 0 || len(out) < n); i++ {
		if e := r.at(i); keep(e) {
			out = append(out, e)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func matchAll(Event) bool { return true }

// Last returns up to n of the newest events, oldest first.
func (r *RingBuffer) Last(n int) []Event {
	if n <= 0 {
		return nil
	}
	return r.collect(n, matchAll)
}

// Snapshot returns every stored event, oldest first.
func (r *RingBuffer) Snapshot() []Event {
	return r.collect(0, matchAll)
}

// Filter returns up to n of the newest events whose kind starts with
// prefix, oldest first. An empty prefix matches every kind.
func (r *RingBuffer) Filter(prefix string, n int) []Event {
	return r.collect(n, func(e Event) bool {
		return strings.HasPrefix(string(e.Kind), prefix)
	})
}

// Stats counts stored events per kind.
func (r *RingBuffer) Stats() map[EventKind]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[EventKind]int)
	for i := 0; i < r.lenLocked(); i++ {
		counts[r.at(i).Kind]++
	}
	return counts
}
