// Package otel records what an analysis did: one JSON object per line in an
// append-only event file, plus an optional in-memory window of recent
// events served by GET /api/events.
package otel

import (
	"encoding/json"
	"time"
)

// Level is an event's severity.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind names what happened, as "<area>.<what>".
type EventKind string

const (
	KindAnalyzeStart    EventKind = "analyze.start"
	KindAnalyzeComplete EventKind = "analyze.complete"
	KindAnalyzeError    EventKind = "analyze.error"

	KindProviderAttempt  EventKind = "provider.attempt"
	KindProviderError    EventKind = "provider.error"
	KindProviderFallback EventKind = "provider.fallback"
	KindProviderRaw      EventKind = "provider.raw"

	KindParseRecovery EventKind = "parse.recovery"

	KindSourceFetch    EventKind = "source.fetch"
	KindSourceFallback EventKind = "source.fallback"

	KindGateReject EventKind = "gate.reject"

	KindStoreError EventKind = "store.error"

	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
)

// Event is one line of the event log. Only Kind is required; Time and
// SessionID are filled in by the Logger.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	RequestID string         `json:"rid,omitempty"`
	Dur       time.Duration  `json:"-"`
	DurMs     float64        `json:"dur_ms,omitempty"` // set from Dur when marshaling
	Count     int            `json:"count,omitempty"`
	Provider  string         `json:"provider,omitempty"`
	PostID    string         `json:"post_id,omitempty"`
	Status    int            `json:"status,omitempty"`
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	type plain Event
	out := plain(e)
	if e.Dur > 0 {
		out.DurMs = e.Dur.Seconds() * 1000
	}
	return json.Marshal(out)
}
