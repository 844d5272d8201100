package otel

import (
	"os"
	"sync/atomic"
)

// maxTraceBody caps the provider body copied into a provider.raw event.
const maxTraceBody = 8 << 10

var traceEnabled atomic.Bool

func init() {
	traceEnabled.Store(os.Getenv("VIRALSCOPE_TRACE") != "")
}

// TraceEnabled reports whether raw provider replies are recorded.
// VIRALSCOPE_TRACE turns it on at startup.
func TraceEnabled() bool {
	return traceEnabled.Load()
}

// SetTraceEnabled overrides VIRALSCOPE_TRACE.
func SetTraceEnabled(v bool) {
	traceEnabled.Store(v)
}

// Raw records a provider reply body as a provider.raw event when tracing
// is on. Bodies are truncated.
func (l *Logger) Raw(rid, provider, postID string, status int, body []byte) {
	if l == nil || !TraceEnabled() {
		return
	}
	truncated := len(body) > maxTraceBody
	if truncated {
		body = body[:maxTraceBody]
	}
	l.Emit(Event{
		Level: LevelDebug, Kind: KindProviderRaw, Comp: "router",
		RequestID: rid, Provider: provider, PostID: postID, Status: status,
		Count: len(body),
		Extra: map[string]any{"body": string(body), "truncated": truncated},
	})
}
