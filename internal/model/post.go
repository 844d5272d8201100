package model

import (
	"math"
	"strings"
	"time"
)

// Platform identifies where a post was published.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformDemo      Platform = "demo"
)

// Platforms lists every known platform.
var Platforms = []Platform{
	PlatformYouTube,
	PlatformTikTok,
	PlatformInstagram,
	PlatformLinkedIn,
	PlatformDemo,
}

// ParsePlatform maps a case-insensitive name to a Platform.
func ParsePlatform(s string) (Platform, bool) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Platforms {
		if p == known {
			return p, true
		}
	}
	return "", false
}

// Metrics are the engagement counters reported for a post.
type Metrics struct {
	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Shares   int64 `json:"shares"`
}

// Post is a normalized social media content record.
// Posts are immutable once a Source returns them.
type Post struct {
	ID             string    `json:"id"`
	Platform       Platform  `json:"platform"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	URL            string    `json:"url"`
	ThumbnailURL   string    `json:"thumbnailUrl"`
	Author         string    `json:"author"`
	PublishedAt    time.Time `json:"publishedAt"`
	Metrics        Metrics   `json:"metrics"`
	EngagementRate float64   `json:"engagementRate"`
}

// EngagementRate returns (likes+comments+shares)/views as a percentage
// rounded to two decimals. Zero views yields zero.
func EngagementRate(m Metrics) float64 {
	if m.Views <= 0 {
		return 0
	}
	interactions := float64(clampNonNegative(m.Likes) + clampNonNegative(m.Comments) + clampNonNegative(m.Shares))
	rate := interactions / float64(m.Views) * 100
	return math.Round(rate*100) / 100
}

// Normalized returns a copy with negative counters clamped to zero and
// the engagement rate recomputed.
func (p Post) Normalized() Post {
	p.Metrics = Metrics{
		Views:    clampNonNegative(p.Metrics.Views),
		Likes:    clampNonNegative(p.Metrics.Likes),
		Comments: clampNonNegative(p.Metrics.Comments),
		Shares:   clampNonNegative(p.Metrics.Shares),
	}
	p.EngagementRate = EngagementRate(p.Metrics)
	return p
}

func clampNonNegative(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}
