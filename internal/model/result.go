package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// ProviderKind is the closed set of AI backends.
type ProviderKind string

const (
	ProviderOpenAI ProviderKind = "openai"
	ProviderClaude ProviderKind = "claude"
	ProviderGemini ProviderKind = "gemini"
	ProviderGrok   ProviderKind = "grok"
)

// PriorityOrder is the fixed fallback order used when no preferred provider
// is given or the preferred one fails.
var PriorityOrder = []ProviderKind{ProviderOpenAI, ProviderClaude, ProviderGemini, ProviderGrok}

// ParseProviderKind maps a name (with a few common aliases) to a ProviderKind.
func ParseProviderKind(s string) (ProviderKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openai", "gpt", "chatgpt":
		return ProviderOpenAI, true
	case "claude", "anthropic":
		return ProviderClaude, true
	case "gemini", "google":
		return ProviderGemini, true
	case "grok", "xai", "x.ai":
		return ProviderGrok, true
	}
	return "", false
}

// AnalysisMode selects how verbose the requested analysis is.
type AnalysisMode string

const (
	ModeFull  AnalysisMode = "full"
	ModeQuick AnalysisMode = "quick"
)

// ParseAnalysisMode accepts "full" or "quick"; empty means full.
func ParseAnalysisMode(s string) (AnalysisMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "full":
		return ModeFull, true
	case "quick":
		return ModeQuick, true
	}
	return "", false
}

// ParseMode records which rung of the parser ladder produced a result.
type ParseMode string

const (
	ParseJSON      ParseMode = "json"
	ParseHeuristic ParseMode = "heuristic"
	ParseRaw       ParseMode = "raw"
)

// Placeholder fills list fields when a reply could not be structured.
const Placeholder = "See full analysis..."

// Caps applied to analysis lists. Lists are truncated, never padded.
const (
	MaxShootIdeas   = 5
	MaxKeyTakeaways = 3
)

// CanonicalResult is one provider answer, normalized.
type CanonicalResult struct {
	ID                string       `json:"id"`
	PostID            string       `json:"postId"`
	Title             string       `json:"title,omitempty"`
	Provider          ProviderKind `json:"provider"`
	Analysis          Analysis     `json:"analysis"`
	FullResponse      string       `json:"fullResponse,omitempty"`
	ParseMode         ParseMode    `json:"parseMode"`
	ParseRecoveryUsed bool         `json:"parseRecoveryUsed"`
	Timestamp         time.Time    `json:"timestamp"`
}

// Analysis holds the creative recommendations for one post.
type Analysis struct {
	WhyViral     string       `json:"whyViral"`
	ShootIdeas   []ShootEntry `json:"shootIdeas"`
	PROutline    []PREntry    `json:"prOutline"`
	KeyTakeaways []string     `json:"keyTakeaways"`
}

// Clone returns a deep copy.
func (r CanonicalResult) Clone() CanonicalResult {
	out := r
	out.Analysis.ShootIdeas = nil
	out.Analysis.PROutline = nil
	if r.Analysis.ShootIdeas != nil {
		out.Analysis.ShootIdeas = make([]ShootEntry, len(r.Analysis.ShootIdeas))
		for i, e := range r.Analysis.ShootIdeas {
			out.Analysis.ShootIdeas[i] = e.clone()
		}
	}
	if r.Analysis.PROutline != nil {
		out.Analysis.PROutline = make([]PREntry, len(r.Analysis.PROutline))
		for i, e := range r.Analysis.PROutline {
			out.Analysis.PROutline[i] = e.clone()
		}
	}
	out.Analysis.KeyTakeaways = cloneStrings(r.Analysis.KeyTakeaways)
	return out
}

// ShootIdea is the structured form of a photography shoot idea.
type ShootIdea struct {
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description"`
	Technical   *ShootTechnical `json:"technical,omitempty"`
	References  []string        `json:"references,omitempty"`
}

// ShootTechnical is the optional technical block of a ShootIdea.
type ShootTechnical struct {
	Lighting    string          `json:"lighting,omitempty"`
	Angle       string          `json:"angle,omitempty"`
	Composition string          `json:"composition,omitempty"`
	Equipment   []string        `json:"equipment,omitempty"`
	Camera      *CameraSettings `json:"cameraSettings,omitempty"`
}

// CameraSettings is a suggested exposure setup.
type CameraSettings struct {
	Aperture     string `json:"aperture"`
	ShutterSpeed string `json:"shutterSpeed"`
	ISO          int    `json:"iso"`
	WhiteBalance string `json:"whiteBalance"`
}

// UnmarshalJSON accepts an ISO written as a number or a numeric string.
func (c *CameraSettings) UnmarshalJSON(b []byte) error {
	type alias CameraSettings
	var raw struct {
		alias
		ISO json.RawMessage `json:"iso"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*c = CameraSettings(raw.alias)
	c.ISO = looseInt(raw.ISO)
	return nil
}

// looseInt reads 3, 3.0, "3" or " 3 " as 3. Anything else is 0.
func looseInt(b json.RawMessage) int {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return 0
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return 0
		}
		s = strings.TrimSpace(s)
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return int(f)
	}
	return 0
}

// ShootEntry is either a plain string or a structured ShootIdea.
type ShootEntry struct {
	Text string
	Idea *ShootIdea
}

// TextShoot wraps a plain string entry.
func TextShoot(s string) ShootEntry { return ShootEntry{Text: s} }

// Structured reports whether the entry carries a ShootIdea.
func (e ShootEntry) Structured() bool { return e.Idea != nil }

// String returns the entry's human-readable description.
func (e ShootEntry) String() string {
	if e.Idea != nil {
		return e.Idea.Description
	}
	return e.Text
}

func (e ShootEntry) MarshalJSON() ([]byte, error) {
	if e.Idea != nil {
		return json.Marshal(e.Idea)
	}
	return json.Marshal(e.Text)
}

func (e *ShootEntry) UnmarshalJSON(b []byte) error {
	*e = ShootEntry{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	switch b[0] {
	case '"':
		return json.Unmarshal(b, &e.Text)
	case '{':
		var idea ShootIdea
		if err := json.Unmarshal(b, &idea); err != nil {
			return err
		}
		e.Idea = &idea
		return nil
	}
	e.Text = string(b)
	return nil
}

func (e ShootEntry) clone() ShootEntry {
	if e.Idea == nil {
		return e
	}
	idea := *e.Idea
	idea.References = cloneStrings(e.Idea.References)
	if e.Idea.Technical != nil {
		tech := *e.Idea.Technical
		tech.Equipment = cloneStrings(e.Idea.Technical.Equipment)
		if e.Idea.Technical.Camera != nil {
			cam := *e.Idea.Technical.Camera
			tech.Camera = &cam
		}
		idea.Technical = &tech
	}
	return ShootEntry{Text: e.Text, Idea: &idea}
}

// PRStep is the structured form of one PR campaign step.
type PRStep struct {
	Step        int      `json:"step"`
	Description string   `json:"description"`
	Timeline    string   `json:"timeline,omitempty"`
	Actions     []string `json:"actions,omitempty"`
	Targets     []string `json:"targets,omitempty"`
	Templates   []string `json:"templates,omitempty"`
	Metrics     []string `json:"metrics,omitempty"`
}

// UnmarshalJSON accepts "action" or "title" when "description" is absent,
// and a step number written as a string.
func (s *PRStep) UnmarshalJSON(b []byte) error {
	type alias PRStep
	var raw struct {
		alias
		Step   json.RawMessage `json:"step"`
		Action string          `json:"action"`
		Title  string          `json:"title"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = PRStep(raw.alias)
	s.Step = looseInt(raw.Step)
	if s.Description == "" {
		s.Description = raw.Action
	}
	if s.Description == "" {
		s.Description = raw.Title
	}
	return nil
}

// PREntry is either a plain string or a structured PRStep.
type PREntry struct {
	Text string
	Step *PRStep
}

// TextPR wraps a plain string entry.
func TextPR(s string) PREntry { return PREntry{Text: s} }

// Structured reports whether the entry carries a PRStep.
func (e PREntry) Structured() bool { return e.Step != nil }

// String returns the entry's human-readable description.
func (e PREntry) String() string {
	if e.Step != nil {
		return e.Step.Description
	}
	return e.Text
}

func (e PREntry) MarshalJSON() ([]byte, error) {
	if e.Step != nil {
		return json.Marshal(e.Step)
	}
	return json.Marshal(e.Text)
}

func (e *PREntry) UnmarshalJSON(b []byte) error {
	*e = PREntry{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	switch b[0] {
	case '"':
		return json.Unmarshal(b, &e.Text)
	case '{':
		var step PRStep
		if err := json.Unmarshal(b, &step); err != nil {
			return err
		}
		e.Step = &step
		return nil
	}
	e.Text = string(b)
	return nil
}

func (e PREntry) clone() PREntry {
	if e.Step == nil {
		return e
	}
	step := *e.Step
	step.Actions = cloneStrings(e.Step.Actions)
	step.Targets = cloneStrings(e.Step.Targets)
	step.Templates = cloneStrings(e.Step.Templates)
	step.Metrics = cloneStrings(e.Step.Metrics)
	return PREntry{Text: e.Text, Step: &step}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
