package parse

import (
	"regexp"
	"strings"

	"github.com/abelbrown/viralscope/internal/logging"
	"github.com/abelbrown/viralscope/internal/model"
)

var (
	// "WHY IT'S VIRAL:", "**KEY TAKEAWAYS:**", "2. PR CAMPAIGN OUTLINE:"
	headingRe = regexp.MustCompile(`^(?:#+\s*)?(?:\*\*)?(?:\d+[.)]\s*)?(?:\*\*)?[A-Z][A-Z0-9'’&/() -]*:`)
	// "1. ...", "2) ..."
	numberedRe = regexp.MustCompile(`^(?:#+\s*)?(?:\*\*)?\d+[.)](?:\s|$)`)
	// "2. Photography shoot ideas:" captures the label before the colon
	numberedLabelRe = regexp.MustCompile(`^(?:#+\s*)?(?:\*\*)?\d+[.)]\s*(?:\*\*)?([^:]{1,60}):`)
	// leading list marker on an item line
	markerRe = regexp.MustCompile(`^(?:[-•*]+|\d+[.)])\s*`)
	// bullets that continue on the same line: "- A - B", "* A * B"
	inlineDashRe = regexp.MustCompile(`\s+-\s+`)
	inlineStarRe = regexp.MustCompile(`\s+\*\s+`)
	prWordRe = regexp.MustCompile(`\bpr\b`)
)

type category int

const (
	catNone category = iota
	catViral
	catShoot
	catPR
	catTakeaway
)

func (c category) String() string {
	switch c {
	case catViral:
		return "whyViral"
	case catShoot:
		return "shootIdeas"
	case catPR:
		return "prOutline"
	case catTakeaway:
		return "keyTakeaways"
	}
	return "none"
}

type section struct {
	lines   []string
	heading bool // first line starts with a label to drop
}

// classify applies first-match-wins keyword precedence:
// viral, then photo/shoot, then pr/campaign, then takeaway/lesson.
func classify(text string) category {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "viral"):
		return catViral
	case strings.Contains(lower, "photo") || strings.Contains(lower, "shoot"):
		return catShoot
	case prWordRe.MatchString(lower) || strings.Contains(lower, "campaign"):
		return catPR
	case strings.Contains(lower, "takeaway") || strings.Contains(lower, "lesson"):
		return catTakeaway
	}
	return catNone
}

// isNumberedLabel reports whether a numbered line opens with a label naming a
// section, as in "3. PR campaign outline:". A numbered item such as
// "1. Pitch local press: call editors" is not a label.
func isNumberedLabel(line string) bool {
	m := numberedLabelRe.FindStringSubmatch(line)
	return m != nil && classify(m[1]) != catNone
}

func splitSections(text string) ([]section, bool) {
	var (
		sections []section
		cur      *section
		found    bool
	)
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		isHeading := headingRe.MatchString(trimmed) || isNumberedLabel(trimmed)
		if isHeading || numberedRe.MatchString(trimmed) {
			found = true
			sections = append(sections, section{heading: isHeading})
			cur = &sections[len(sections)-1]
		} else if cur == nil {
			sections = append(sections, section{})
			cur = &sections[len(sections)-1]
		}
		cur.lines = append(cur.lines, trimmed)
	}
	return sections, found
}

// parseSections is the heading-split rung. It reports false when the text
// has no section starts or nothing usable was extracted.
func parseSections(text string) (model.Analysis, bool) {
	a := model.Analysis{
		ShootIdeas:   []model.ShootEntry{},
		PROutline:    []model.PREntry{},
		KeyTakeaways: []string{},
	}

	sections, found := splitSections(text)
	if !found {
		return a, false
	}

	prev := catNone
	for _, sec := range sections {
		cat := classify(strings.Join(sec.lines, "\n"))
		if cat == catNone {
			// Unlabelled numbered items continue the list above them.
			cat = prev
		}
		prev = cat

		switch cat {
		case catViral:
			if a.WhyViral == "" {
				a.WhyViral = viralText(sec)
			}
		case catShoot:
			for _, s := range listItems(sec) {
				if len(a.ShootIdeas) < model.MaxShootIdeas {
					a.ShootIdeas = append(a.ShootIdeas, model.TextShoot(s))
				}
			}
		case catPR:
			for _, s := range listItems(sec) {
				a.PROutline = append(a.PROutline, model.TextPR(s))
			}
		case catTakeaway:
			for _, s := range listItems(sec) {
				if len(a.KeyTakeaways) < model.MaxKeyTakeaways {
					a.KeyTakeaways = append(a.KeyTakeaways, s)
				}
			}
		}
		logging.Debug("Classified section", "category", cat, "lines", len(sec.lines))
	}

	if a.WhyViral == "" && len(a.ShootIdeas) == 0 {
		return a, false
	}
	return a, true
}

// viralText drops the label before the first colon and joins the rest.
func viralText(sec section) string {
	lines := append([]string(nil), sec.lines...)
	if len(lines) > 0 {
		first := cleanLine(lines[0])
		if i := strings.Index(first, ":"); i >= 0 {
			first = first[i+1:]
		}
		lines[0] = first
	}
	var parts []string
	for _, l := range lines {
		if l = cleanLine(l); l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, " ")
}

// listItems returns one item per bullet with list markers removed. The
// section label on the first line is dropped, and bullets that share a line
// are split apart.
func listItems(sec section) []string {
	var items []string
	for i, l := range sec.lines {
		l = stripDecor(l)
		if i == 0 && sec.heading {
			if j := strings.Index(l, ":"); j >= 0 {
				l = strings.TrimSpace(l[j+1:])
			}
		}
		for _, part := range splitInline(l) {
			if part = cleanLine(part); part != "" {
				items = append(items, part)
			}
		}
	}
	return items
}

// splitInline breaks "- A - B" and "• A • B" into separate bullets. A line
// that does not open with a bullet is kept whole, so prose hyphens survive.
func splitInline(l string) []string {
	switch {
	case strings.Count(l, "•") > 1:
		return strings.Split(l, "•")
	case strings.HasPrefix(l, "- "):
		return inlineDashRe.Split(l, -1)
	case strings.HasPrefix(l, "* "):
		return inlineStarRe.Split(l, -1)
	}
	return []string{l}
}

func stripDecor(l string) string {
	l = strings.TrimSpace(l)
	l = strings.TrimLeft(l, "# ")
	l = strings.ReplaceAll(l, "**", "")
	return strings.TrimSpace(l)
}

func cleanLine(l string) string {
	l = stripDecor(l)
	l = markerRe.ReplaceAllString(l, "")
	return strings.TrimSpace(l)
}
