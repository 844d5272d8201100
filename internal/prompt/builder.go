// Package prompt renders analysis instructions for the AI providers.
package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/abelbrown/viralscope/internal/model"
)

// System is the system-role instruction sent alongside every prompt.
const System = "You are a social media strategist and creative director. " +
	"You study viral posts and return practical, specific recommendations. " +
	"Always answer with valid JSON and nothing else."

// Section headings requested from the model. The response parser keys on
// the same words when a reply is not valid JSON.
const (
	SectionWhyViral   = "WHY IT'S VIRAL"
	SectionShootIdeas = "PHOTOGRAPHY SHOOT IDEAS"
	SectionPROutline  = "PR CAMPAIGN OUTLINE"
	SectionTakeaways  = "KEY TAKEAWAYS"
)

const (
	quickDirective = "Keep every answer short: one or two sentences per item."
	fullDirective  = "Be as specific as possible: name concrete techniques, equipment, timings and numbers."
)

// MaxTokens returns the completion budget for mode.
func MaxTokens(mode model.AnalysisMode) int {
	if mode == model.ModeQuick {
		return 1000
	}
	return 2000
}

// Build renders the analysis prompt for posts. Output depends only on its
// inputs. Unknown modes are treated as full.
func Build(posts []model.Post, mode model.AnalysisMode) string {
	var b strings.Builder

	if len(posts) == 1 {
		b.WriteString("Analyze the following viral social media post and explain what made it succeed.\n\n")
	} else {
		fmt.Fprintf(&b, "Analyze the following %d viral social media posts and explain what made each one succeed.\n\n", len(posts))
	}

	for i, p := range posts {
		writePost(&b, i+1, p)
	}

	b.WriteString("For each post provide these sections:\n")
	fmt.Fprintf(&b, "1. %s: the psychological, emotional and platform factors behind its performance.\n", SectionWhyViral)
	fmt.Fprintf(&b, "2. %s: exactly %d shoot ideas to recreate this success, each with lighting, camera angle and composition guidance.\n", SectionShootIdeas, model.MaxShootIdeas)
	fmt.Fprintf(&b, "3. %s: a step-by-step PR campaign with a timeline for each step.\n", SectionPROutline)
	fmt.Fprintf(&b, "4. %s: exactly %d lessons other creators can apply.\n\n", SectionTakeaways, model.MaxKeyTakeaways)

	b.WriteString("Respond with JSON only, no markdown, using this structure:\n")
	b.WriteString(`{"results":[{"postId":"<id>","title":"<post title>","whyViral":"...",` +
		`"shootIdeas":["...","...","...","...","..."],"prOutline":["step 1 ...","step 2 ..."],` +
		`"keyTakeaways":["...","...","..."]}]}`)
	b.WriteString("\n\n")

	if mode == model.ModeQuick {
		b.WriteString(quickDirective)
	} else {
		b.WriteString(fullDirective)
	}
	b.WriteString("\n")
	return b.String()
}

func writePost(b *strings.Builder, n int, p model.Post) {
	fmt.Fprintf(b, "POST %d (id: %s)\n", n, p.ID)
	fmt.Fprintf(b, "Title: %s\n", p.Title)
	if p.Description != "" {
		fmt.Fprintf(b, "Description: %s\n", p.Description)
	}
	fmt.Fprintf(b, "Platform: %s\n", p.Platform)
	if p.Author != "" {
		fmt.Fprintf(b, "Author: %s\n", p.Author)
	}
	b.WriteString("Metrics:\n")
	b.WriteString("- Views: " + strconv.FormatInt(p.Metrics.Views, 10) + "\n")
	b.WriteString("- Likes: " + strconv.FormatInt(p.Metrics.Likes, 10) + "\n")
	b.WriteString("- Comments: " + strconv.FormatInt(p.Metrics.Comments, 10) + "\n")
	b.WriteString("- Shares: " + strconv.FormatInt(p.Metrics.Shares, 10) + "\n")
	fmt.Fprintf(b, "- Engagement rate: %.2f%%\n\n", model.EngagementRate(p.Metrics))
}
