package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abelbrown/viralscope/internal/config"
)

// eventRecord mirrors otel.Event for JSON decoding.
// Decoding from JSONL keeps the viewer working across schema changes.
type eventRecord struct {
	Time      time.Time      `json:"t"`
	Level     string         `json:"level"`
	Kind      string         `json:"kind"`
	Comp      string         `json:"comp"`
	SessionID string         `json:"session_id"`
	RequestID string         `json:"rid"`
	DurMs     float64        `json:"dur_ms"`
	Count     int            `json:"count"`
	Provider  string         `json:"provider"`
	PostID    string         `json:"post_id"`
	Status    int            `json:"status"`
	Err       string         `json:"err"`
	Msg       string         `json:"msg"`
	Extra     map[string]any `json:"extra"`
}

// eventFilter selects events by kind prefix, minimum level, component and request.
type eventFilter struct {
	kind  string
	level string
	comp  string
	rid   string
}

func (f eventFilter) match(ev eventRecord) bool {
	if f.kind != "" && !strings.HasPrefix(ev.Kind, f.kind) {
		return false
	}
	if f.level != "" && levelRank(ev.Level) < levelRank(f.level) {
		return false
	}
	if f.comp != "" && ev.Comp != f.comp {
		return false
	}
	if f.rid != "" && ev.RequestID != f.rid {
		return false
	}
	return true
}

// levelRank returns a numeric rank for filtering (higher = more severe).
func levelRank(level string) int {
	switch level {
	case "debug":
		return 0
	case "info":
		return 1
	case "warn":
		return 2
	case "error":
		return 3
	default:
		return 0
	}
}

func newEventsCmd() *cobra.Command {
	var (
		filter  eventFilter
		tail    int
		follow  bool
		logPath string
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "View the JSONL event log",
		Example: `  vs events --kind provider. --level warn
  vs events -f --rid 3f2c...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(logPath)
			if err != nil {
				return fmt.Errorf("%w\n  run the viralscope server first to generate events", err)
			}
			defer f.Close()

			w := cmd.OutOrStdout()
			for _, l := range readTailLines(f, tail, filter.match) {
				fmt.Fprintln(w, formatEvent(l.ev, l.raw, jsonOut))
			}
			if !follow {
				return nil
			}

			// Follow mode: poll for appended lines
			reader := bufio.NewReader(f)
			ctx := cmd.Context()
			for {
				line, err := reader.ReadBytes('\n')
				if err != nil {
					if err != io.EOF {
						return err
					}
					select {
					case <-ctx.Done():
						return nil
					case <-time.After(100 * time.Millisecond):
					}
					continue
				}
				line = trimLine(line)
				if len(line) == 0 {
					continue
				}
				var ev eventRecord
				if json.Unmarshal(line, &ev) != nil {
					continue
				}
				if filter.match(ev) {
					fmt.Fprintln(w, formatEvent(ev, line, jsonOut))
				}
			}
		},
	}

	cmd.Flags().IntVarP(&tail, "tail", "n", 50, "number of recent lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "follow mode (like tail -f)")
	cmd.Flags().StringVar(&filter.kind, "kind", "", "filter by event kind prefix (e.g. 'provider.')")
	cmd.Flags().StringVar(&filter.level, "level", "", "minimum level: debug, info, warn, error")
	cmd.Flags().StringVar(&filter.comp, "comp", "", "filter by component name")
	cmd.Flags().StringVar(&filter.rid, "rid", "", "filter by request ID")
	cmd.Flags().StringVar(&logPath, "file", filepath.Join(config.DataDir(), "viralscope.events.jsonl"), "event log path")
	return cmd
}

func formatEvent(ev eventRecord, raw []byte, asJSON bool) string {
	if asJSON {
		return string(raw)
	}
	ts := ev.Time.Format("15:04:05.000")
	lvl := strings.ToUpper(ev.Level)
	if lvl == "" {
		lvl = "?"
	}

	parts := []string{fmt.Sprintf("%s %-5s [%-6s] %-18s", ts, lvl, ev.Comp, ev.Kind)}

	if ev.Msg != "" {
		parts = append(parts, "- "+ev.Msg)
	}
	if ev.DurMs > 0 {
		parts = append(parts, fmt.Sprintf("(%.*fms)", durPrecision(ev.DurMs), ev.DurMs))
	}
	if ev.Count > 0 {
		parts = append(parts, fmt.Sprintf("n=%d", ev.Count))
	}
	if ev.Provider != "" {
		parts = append(parts, "provider="+ev.Provider)
	}
	if ev.PostID != "" {
		parts = append(parts, "post="+ev.PostID)
	}
	if ev.Status > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", ev.Status))
	}
	if ev.Err != "" {
		parts = append(parts, "err="+ev.Err)
	}

	line := strings.Join(parts, " ")
	switch ev.Level {
	case "error":
		return ErrorStyle.Render(line)
	case "warn":
		return WarnText.Render(line)
	}
	return line
}

type parsedLine struct {
	ev  eventRecord
	raw []byte
}

// readTailLines reads r and returns the last n lines matching the filter.
func readTailLines(r io.Reader, n int, match func(eventRecord) bool) []parsedLine {
	scanner := bufio.NewScanner(r)
	// Allow large lines (some events carry big Extra maps)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)

	if n <= 0 {
		return nil
	}
	ring := make([]parsedLine, 0, n)

	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ev eventRecord
		if json.Unmarshal(raw, &ev) != nil {
			continue
		}
		if !match(ev) {
			continue
		}
		// scanner reuses its buffer
		rawCopy := make([]byte, len(raw))
		copy(rawCopy, raw)

		if len(ring) < n {
			ring = append(ring, parsedLine{ev: ev, raw: rawCopy})
		} else {
			copy(ring, ring[1:])
			ring[n-1] = parsedLine{ev: ev, raw: rawCopy}
		}
	}

	return ring
}

func trimLine(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

func durPrecision(ms float64) int {
	if ms >= 100 {
		return 0
	}
	if ms >= 1 {
		return 1
	}
	return 2
}
