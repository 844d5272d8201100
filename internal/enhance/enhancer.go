// Package enhance expands terse analysis entries into structured shoot
// ideas and PR steps using fixed template catalogs.
package enhance

import (
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/abelbrown/viralscope/internal/model"
)

// Enhancer is safe for concurrent use. Randomness only changes descriptive
// content, never how many ideas or steps come out.
type Enhancer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns an Enhancer drawing from rng. A nil rng is seeded from the clock.
func New(rng *rand.Rand) *Enhancer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Enhancer{rng: rng}
}

// NewSeeded returns an Enhancer with a deterministic source.
func NewSeeded(seed int64) *Enhancer {
	return New(rand.New(rand.NewSource(seed)))
}

// Enhance returns an enriched copy of r. r itself is not modified.
func (e *Enhancer) Enhance(r model.CanonicalResult) model.CanonicalResult {
	out := r.Clone()

	e.mu.Lock()
	defer e.mu.Unlock()

	out.Analysis.ShootIdeas = e.shootIdeas(out.Analysis.ShootIdeas)
	out.Analysis.PROutline = prOutline(out.Analysis.PROutline)
	if len(out.Analysis.KeyTakeaways) > model.MaxKeyTakeaways {
		out.Analysis.KeyTakeaways = out.Analysis.KeyTakeaways[:model.MaxKeyTakeaways]
	}
	return out
}

func (e *Enhancer) shootIdeas(in []model.ShootEntry) []model.ShootEntry {
	if len(in) == 0 {
		out := make([]model.ShootEntry, len(defaultIdeas))
		for i, idea := range defaultIdeas {
			out[i] = model.ShootEntry{Idea: e.expandIdea(idea)}
		}
		return out
	}
	if len(in) > model.MaxShootIdeas {
		in = in[:model.MaxShootIdeas]
	}
	out := make([]model.ShootEntry, len(in))
	for i, entry := range in {
		if entry.Structured() || entry.Text == model.Placeholder || strings.TrimSpace(entry.Text) == "" {
			out[i] = entry
			continue
		}
		out[i] = model.ShootEntry{Idea: e.expandIdea(entry.Text)}
	}
	return out
}

func (e *Enhancer) expandIdea(idea string) *model.ShootIdea {
	idea = strings.TrimSpace(idea)
	lighting := pick(e.rng, lightingCatalog)
	angle := pick(e.rng, angleCatalog)
	composition := pick(e.rng, compositionCatalog)
	equipment := pick(e.rng, equipmentCatalog)

	kw := Keyword(idea)
	return &model.ShootIdea{
		Title: idea,
		Description: fmt.Sprintf("%s, shot %s under %s and composed with %s.",
			strings.TrimRight(idea, ". "), angle, lighting, composition),
		Technical: &model.ShootTechnical{
			Lighting:    lighting,
			Angle:       angle,
			Composition: composition,
			Equipment:   append([]string(nil), equipment...),
			Camera: &model.CameraSettings{
				Aperture:     pick(e.rng, apertures),
				ShutterSpeed: pick(e.rng, shutterSpeeds),
				ISO:          pick(e.rng, isoValues),
				WhiteBalance: pick(e.rng, whiteBalances),
			},
		},
		References: References(kw),
	}
}

// References returns the two lookup URLs for a keyword.
func References(keyword string) []string {
	return []string{
		"https://unsplash.com/s/photos/" + url.PathEscape(strings.ReplaceAll(keyword, " ", "-")),
		"https://www.pinterest.com/search/pins/?q=" + url.QueryEscape(keyword+" photography"),
	}
}

// Keyword extracts up to two significant lowercase words from s.
func Keyword(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	var kept []string
	for _, w := range words {
		w = strings.Trim(w, "-")
		if len(w) < 3 || stopwords[w] {
			continue
		}
		kept = append(kept, w)
		if len(kept) == 2 {
			break
		}
	}
	if len(kept) == 0 {
		return "photography"
	}
	return strings.Join(kept, " ")
}

func prOutline(in []model.PREntry) []model.PREntry {
	if len(in) == 0 {
		out := make([]model.PREntry, len(defaultCampaign))
		for i, desc := range defaultCampaign {
			out[i] = model.PREntry{Step: buildStep(i, desc)}
		}
		return out
	}
	out := make([]model.PREntry, len(in))
	for i, entry := range in {
		switch {
		case entry.Structured():
			step := *entry.Step
			fillStep(i, &step)
			out[i] = model.PREntry{Step: &step}
		case entry.Text == model.Placeholder:
			out[i] = entry
		default:
			out[i] = model.PREntry{Step: buildStep(i, entry.Text)}
		}
	}
	return out
}

func buildStep(i int, desc string) *model.PRStep {
	step := &model.PRStep{Description: strings.TrimSpace(desc)}
	fillStep(i, step)
	return step
}

// fillStep numbers the step and fills any empty detail from its category.
func fillStep(i int, step *model.PRStep) {
	step.Step = i + 1
	if step.Timeline == "" {
		step.Timeline = Timeline(i + 1)
	}
	cat := classifyStep(step.Description)
	if len(step.Actions) == 0 {
		step.Actions = append([]string(nil), cat.actions...)
	}
	if len(step.Targets) == 0 {
		step.Targets = append([]string(nil), cat.targets...)
	}
	if len(step.Templates) == 0 {
		step.Templates = append([]string(nil), cat.templates...)
	}
	if len(step.Metrics) == 0 {
		step.Metrics = append([]string(nil), cat.metrics...)
	}
}

// Timeline returns the day range for a 1-based step number.
func Timeline(step int) string {
	idx := step - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(timelineBuckets) {
		idx = len(timelineBuckets) - 1
	}
	return timelineBuckets[idx]
}

func classifyStep(desc string) prCategory {
	lower := strings.ToLower(desc)
	for _, cat := range prCategories[:len(prCategories)-1] {
		for _, kw := range cat.keywords {
			if strings.Contains(lower, kw) {
				return cat
			}
		}
	}
	return prCategories[len(prCategories)-1]
}

func pick[T any](rng *rand.Rand, items []T) T {
	return items[rng.Intn(len(items))]
}
