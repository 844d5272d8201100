package otel

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestEmitWritesJSONL(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindProviderError, Level: LevelWarn, Comp: "router", Provider: "gemini", Status: 503})
	l.Emit(Event{Kind: KindAnalyzeComplete, Dur: 1500 * time.Millisecond})
	l.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if first["kind"] != "provider.error" {
		t.Errorf("kind = %v, want provider.error", first["kind"])
	}
	if first["provider"] != "gemini" || first["status"] != float64(503) {
		t.Errorf("provider/status not serialized: %v", first)
	}
	if first["session_id"] != l.SessionID() {
		t.Errorf("session_id = %v, want %s", first["session_id"], l.SessionID())
	}

	var second map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if second["dur_ms"] != float64(1500) {
		t.Errorf("dur_ms = %v, want 1500", second["dur_ms"])
	}
}

func TestLoggerFeedsRingBuffer(t *testing.T) {
	l := NewNullLogger()
	rb := NewRingBuffer(8)
	l.SetRingBuffer(rb)

	l.Info(KindStartup, "main", "starting")
	l.Error(KindAnalyzeError, "coord", errors.New("all providers failed"))
	l.Close()

	evs := rb.Snapshot()
	if len(evs) != 2 {
		t.Fatalf("ring has %d events, want 2", len(evs))
	}
	if evs[1].Level != LevelError || evs[1].Err != "all providers failed" {
		t.Errorf("error event = %+v", evs[1])
	}
}

func TestEmitAfterCloseIsDropped(t *testing.T) {
	l := NewNullLogger()
	l.Close()
	l.Emit(Event{Kind: KindShutdown})
	if l.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", l.Dropped())
	}
	l.Close()
}

func TestNilLoggerDiscards(t *testing.T) {
	var l *Logger
	l.Emit(Event{Kind: KindStartup})
	l.Warn(KindGateReject, "server", "slow down")
}
