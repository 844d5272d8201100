// Package parse turns a model's free-text reply into CanonicalResults.
//
// Attempts run in order and the first that produces something wins:
// fenced or bare JSON, bracket-delimited JSON inside prose, heading-split
// sections, and finally the raw text itself. Parse never panics.
package parse

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/abelbrown/viralscope/internal/logging"
	"github.com/abelbrown/viralscope/internal/model"
)

// Placeholder fills list fields when nothing could be extracted.
const Placeholder = model.Placeholder

// rawPreviewRunes is how much raw text becomes whyViral in the raw fallback.
const rawPreviewRunes = 200

// Parse extracts results from text. JSON replies may carry several results
// (or none); the heuristic and raw rungs always yield exactly one.
func Parse(text string, post model.Post, provider model.ProviderKind) (results []model.CanonicalResult) {
	now := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Parser panic recovered", "post_id", post.ID, "provider", provider, "panic", r)
			results = []model.CanonicalResult{rawResult(text, post, provider, now)}
		}
	}()

	if items, ok := decodeItems(StripFence(text)); ok {
		results = make([]model.CanonicalResult, 0, len(items))
		for _, it := range items {
			results = append(results, it.result(post, provider, now))
		}
		return results
	}

	if a, ok := parseSections(text); ok {
		logging.Warn("Reply was not JSON, used section heuristics", "post_id", post.ID, "provider", provider)
		r := newResult(post, provider, now, model.ParseHeuristic)
		r.Analysis = a
		r.FullResponse = text
		return []model.CanonicalResult{r}
	}

	logging.Warn("Reply had no recognizable structure, using raw text", "post_id", post.ID, "provider", provider, "len", len(text))
	return []model.CanonicalResult{rawResult(text, post, provider, now)}
}

// StripFence removes a single leading/trailing markdown code fence.
func StripFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = t[3:]
	if nl := strings.IndexByte(t, '\n'); nl >= 0 {
		if tag := strings.TrimSpace(t[:nl]); tag == "" || isLangTag(tag) {
			t = t[nl+1:]
		}
	} else {
		t = strings.TrimPrefix(t, "json")
	}
	if end := strings.LastIndex(t, "```"); end >= 0 {
		t = t[:end]
	}
	return strings.TrimSpace(t)
}

func isLangTag(s string) bool {
	if len(s) > 16 {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

func newResult(post model.Post, provider model.ProviderKind, now time.Time, mode model.ParseMode) model.CanonicalResult {
	return model.CanonicalResult{
		ID:                uuid.NewString(),
		PostID:            post.ID,
		Title:             post.Title,
		Provider:          provider,
		ParseMode:         mode,
		ParseRecoveryUsed: mode != model.ParseJSON,
		Timestamp:         now,
		Analysis: model.Analysis{
			ShootIdeas:   []model.ShootEntry{},
			PROutline:    []model.PREntry{},
			KeyTakeaways: []string{},
		},
	}
}

func rawResult(text string, post model.Post, provider model.ProviderKind, now time.Time) model.CanonicalResult {
	r := newResult(post, provider, now, model.ParseRaw)
	r.Analysis = model.Analysis{
		WhyViral:     firstRunes(text, rawPreviewRunes),
		ShootIdeas:   []model.ShootEntry{model.TextShoot(Placeholder)},
		PROutline:    []model.PREntry{model.TextPR(Placeholder)},
		KeyTakeaways: []string{Placeholder},
	}
	r.FullResponse = text
	return r
}

func firstRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// decodeItems tries the whole text, then bracket-delimited spans inside it.
func decodeItems(s string) ([]item, bool) {
	if items, ok := decodeValue(s); ok {
		return items, true
	}
	for _, open := range []byte{'{', '['} {
		if span := bracketSpan(s, open); span != "" && span != s {
			if items, ok := decodeValue(span); ok {
				return items, true
			}
		}
	}
	return nil, false
}

func bracketSpan(s string, open byte) string {
	closer := byte('}')
	if open == '[' {
		closer = ']'
	}
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, closer)
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// decodeValue accepts an array of results, an object with a results field,
// or a single result object.
func decodeValue(s string) ([]item, bool) {
	b := bytes.TrimSpace([]byte(s))
	if len(b) == 0 || !json.Valid(b) {
		return nil, false
	}
	switch b[0] {
	case '[':
		return decodeArray(b)
	case '{':
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(b, &envelope); err != nil {
			return nil, false
		}
		if raw, ok := envelope["results"]; ok {
			if rb := bytes.TrimSpace(raw); len(rb) > 0 && rb[0] == '[' {
				return decodeArray(rb)
			}
		}
		var it item
		if err := json.Unmarshal(b, &it); err != nil {
			return nil, false
		}
		return []item{it}, true
	}
	return nil, false
}

func decodeArray(b []byte) ([]item, bool) {
	var raws []json.RawMessage
	if err := json.Unmarshal(b, &raws); err != nil {
		return nil, false
	}
	items := make([]item, 0, len(raws))
	for _, raw := range raws {
		var it item
		if err := json.Unmarshal(raw, &it); err != nil {
			continue
		}
		items = append(items, it)
	}
	if len(raws) > 0 && len(items) == 0 {
		return nil, false
	}
	return items, true
}
