package parse

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/abelbrown/viralscope/internal/model"
)

// item is one result object as models tend to write it. Both camelCase and
// snake_case keys are accepted, and the fields may sit under "analysis".
type item struct {
	Title        flexText  `json:"title"`
	WhyViral     flexText  `json:"whyViral"`
	ShootIdeas   shootList `json:"shootIdeas"`
	PROutline    prList    `json:"prOutline"`
	KeyTakeaways textList  `json:"keyTakeaways"`
	Analysis     *item     `json:"analysis"`

	WhyViralSnake     flexText  `json:"why_viral"`
	ShootIdeasSnake   shootList `json:"shoot_ideas"`
	PROutlineSnake    prList    `json:"pr_outline"`
	KeyTakeawaysSnake textList  `json:"key_takeaways"`
}

func (it item) merged() item {
	out := it
	if it.Analysis != nil {
		inner := it.Analysis.merged()
		if out.WhyViral == "" {
			out.WhyViral = inner.WhyViral
		}
		if out.ShootIdeas == nil {
			out.ShootIdeas = inner.ShootIdeas
		}
		if out.PROutline == nil {
			out.PROutline = inner.PROutline
		}
		if out.KeyTakeaways == nil {
			out.KeyTakeaways = inner.KeyTakeaways
		}
	}
	if out.WhyViral == "" {
		out.WhyViral = it.WhyViralSnake
	}
	if out.ShootIdeas == nil {
		out.ShootIdeas = it.ShootIdeasSnake
	}
	if out.PROutline == nil {
		out.PROutline = it.PROutlineSnake
	}
	if out.KeyTakeaways == nil {
		out.KeyTakeaways = it.KeyTakeawaysSnake
	}
	return out
}

func (it item) result(post model.Post, provider model.ProviderKind, now time.Time) model.CanonicalResult {
	m := it.merged()
	r := newResult(post, provider, now, model.ParseJSON)
	if m.Title != "" {
		r.Title = string(m.Title)
	}
	r.Analysis.WhyViral = string(m.WhyViral)

	shoots := []model.ShootEntry(m.ShootIdeas)
	if len(shoots) > model.MaxShootIdeas {
		shoots = shoots[:model.MaxShootIdeas]
	}
	if shoots != nil {
		r.Analysis.ShootIdeas = shoots
	}
	if m.PROutline != nil {
		r.Analysis.PROutline = []model.PREntry(m.PROutline)
	}
	takeaways := []string(m.KeyTakeaways)
	if len(takeaways) > model.MaxKeyTakeaways {
		takeaways = takeaways[:model.MaxKeyTakeaways]
	}
	if takeaways != nil {
		r.Analysis.KeyTakeaways = takeaways
	}
	return r
}

// flexText accepts a string, an array of strings (joined), or any other
// scalar (kept verbatim).
type flexText string

func (f *flexText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*f = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexText(s)
	case b[0] == '[':
		var parts textList
		if err := json.Unmarshal(b, &parts); err != nil {
			return err
		}
		*f = flexText(strings.Join(parts, " "))
	case b[0] == '{':
		*f = flexText(objectText(b))
	default:
		*f = flexText(b)
	}
	return nil
}

// textList accepts an array of strings or objects, or a lone string.
type textList []string

func (l *textList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}
	if b[0] != '[' {
		var s flexText
		if err := s.UnmarshalJSON(b); err != nil {
			return err
		}
		*l = textList{string(s)}
		return nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(b, &raws); err != nil {
		return err
	}
	out := make(textList, 0, len(raws))
	for _, raw := range raws {
		var s flexText
		if err := s.UnmarshalJSON(raw); err != nil {
			return err
		}
		out = append(out, string(s))
	}
	*l = out
	return nil
}

// objectText picks the most descriptive string field of an object.
func objectText(b []byte) string {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return string(b)
	}
	for _, k := range []string{"text", "description", "takeaway", "lesson", "title"} {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return string(b)
}

type shootList []model.ShootEntry

// UnmarshalJSON decodes entry by entry. A structured entry that does not fit
// ShootIdea is kept as its most descriptive text instead of failing the item.
func (l *shootList) UnmarshalJSON(b []byte) error {
	raws, err := entries(b)
	if err != nil || raws == nil {
		*l = nil
		return err
	}
	out := make(shootList, 0, len(raws))
	for _, raw := range raws {
		var e model.ShootEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			e = model.TextShoot(objectText(raw))
		}
		out = append(out, e)
	}
	*l = out
	return nil
}

type prList []model.PREntry

func (l *prList) UnmarshalJSON(b []byte) error {
	raws, err := entries(b)
	if err != nil || raws == nil {
		*l = nil
		return err
	}
	out := make(prList, 0, len(raws))
	for _, raw := range raws {
		var e model.PREntry
		if err := json.Unmarshal(raw, &e); err != nil {
			e = model.TextPR(objectText(raw))
		}
		out = append(out, e)
	}
	*l = out
	return nil
}

// entries splits a list field into its elements. A single value counts as
// a one-element list; null gives nil.
func entries(b []byte) ([]json.RawMessage, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil, nil
	}
	if b[0] != '[' {
		return []json.RawMessage{b}, nil
	}
	raws := []json.RawMessage{}
	if err := json.Unmarshal(b, &raws); err != nil {
		return nil, err
	}
	return raws, nil
}
