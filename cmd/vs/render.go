package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/abelbrown/viralscope/internal/coord"
	"github.com/abelbrown/viralscope/internal/model"
	"github.com/abelbrown/viralscope/internal/store"
)

// renderResponse formats a full analysis response.
func renderResponse(resp *coord.Response, width int) string {
	var b strings.Builder

	header := ProviderBadge.Render(string(resp.Provider)) +
		MetaText.Render(fmt.Sprintf("%s analysis, %d results", resp.AnalysisType, len(resp.Results)))
	if resp.DemoPosts {
		header += " " + DemoBadge.Render("demo posts")
	}
	b.WriteString(header + "\n\n")

	for _, r := range resp.Results {
		b.WriteString(renderResult(r, width))
		b.WriteString("\n")
	}
	return b.String()
}

// renderResult formats one canonical result as a card.
func renderResult(r model.CanonicalResult, width int) string {
	var b strings.Builder

	title := r.Title
	if title == "" {
		title = r.PostID
	}
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n")
	meta := fmt.Sprintf("%s · parsed as %s", r.Provider, r.ParseMode)
	if r.ParseRecoveryUsed {
		meta += " (recovered)"
	}
	b.WriteString(MetaText.Render(meta))
	b.WriteString("\n")

	b.WriteString(SectionHeader.Render("Why it went viral"))
	b.WriteString("\n")
	b.WriteString(placeholderAware(r.Analysis.WhyViral))
	b.WriteString("\n")

	if len(r.Analysis.ShootIdeas) > 0 {
		b.WriteString(SectionHeader.Render("Shoot ideas"))
		b.WriteString("\n")
		for i, e := range r.Analysis.ShootIdeas {
			b.WriteString(fmt.Sprintf("%d. %s\n", i+1, placeholderAware(shootLine(e))))
		}
	}

	if len(r.Analysis.PROutline) > 0 {
		b.WriteString(SectionHeader.Render("PR outline"))
		b.WriteString("\n")
		for i, e := range r.Analysis.PROutline {
			line := e.String()
			if e.Step != nil && e.Step.Timeline != "" {
				line += MetaText.Render(" [" + e.Step.Timeline + "]")
			}
			b.WriteString(fmt.Sprintf("%d. %s\n", i+1, placeholderAware(line)))
		}
	}

	if len(r.Analysis.KeyTakeaways) > 0 {
		b.WriteString(SectionHeader.Render("Key takeaways"))
		b.WriteString("\n")
		for _, t := range r.Analysis.KeyTakeaways {
			b.WriteString("• " + placeholderAware(t) + "\n")
		}
	}

	card := ResultCard
	if width > 4 {
		card = card.Width(width - 4)
	}
	return card.Render(strings.TrimRight(b.String(), "\n"))
}

func shootLine(e model.ShootEntry) string {
	if e.Idea == nil {
		return e.Text
	}
	line := e.Idea.Description
	if e.Idea.Title != "" {
		line = e.Idea.Title + ": " + line
	}
	if t := e.Idea.Technical; t != nil && t.Lighting != "" {
		line += MetaText.Render(" (" + t.Lighting + ")")
	}
	return line
}

func placeholderAware(s string) string {
	if s == "" || s == model.Placeholder {
		return MutedText.Render(model.Placeholder)
	}
	return s
}

// renderPosts formats posts as a compact list.
func renderPosts(posts []model.Post, demo bool, now time.Time) string {
	var b strings.Builder
	if demo {
		b.WriteString(DemoBadge.Render("demo posts") + "\n")
	}
	for i, p := range posts {
		b.WriteString(fmt.Sprintf("%2d. %s\n", i+1, TitleStyle.Render(p.Title)))
		meta := fmt.Sprintf("    %s · %s · %s views · %s likes · %.1f%% engagement",
			p.Platform, p.Author,
			humanize.Comma(p.Metrics.Views),
			humanize.Comma(p.Metrics.Likes),
			p.EngagementRate)
		if !p.PublishedAt.IsZero() {
			meta += " · " + humanize.RelTime(p.PublishedAt, now, "ago", "from now")
		}
		b.WriteString(MetaText.Render(meta) + "\n")
		b.WriteString(MetaText.Render("    id "+p.ID) + "\n")
	}
	return b.String()
}

// renderHistory formats stored analyses for one post, newest first.
func renderHistory(records []store.AnalysisRecord, now time.Time) string {
	if len(records) == 0 {
		return MutedText.Render("no stored analyses") + "\n"
	}
	var b strings.Builder
	for _, rec := range records {
		b.WriteString(fmt.Sprintf("%s %s %s\n",
			ProviderBadge.Render(string(rec.Provider)),
			MetaText.Render(humanize.RelTime(rec.CreatedAt, now, "ago", "from now")),
			MetaText.Render(rec.Model+" · "+string(rec.ParseMode))))
		why := rec.Result.Analysis.WhyViral
		if why == "" {
			why = model.Placeholder
		}
		b.WriteString("  " + placeholderAware(why) + "\n")
	}
	return b.String()
}
