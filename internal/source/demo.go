package source

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/abelbrown/viralscope/internal/model"
)

// nicheTemplates holds the title and description pools for one niche.
// Titles take a topic via %s.
type nicheTemplates struct {
	topics       []string
	titles       []string
	descriptions []string
	authors      []string
}

var niches = map[string]nicheTemplates{
	"fitness": {
		topics: []string{"HIIT", "mobility", "kettlebell", "morning run", "home workout", "protein"},
		titles: []string{
			"I Tried %s Every Day for 30 Days",
			"The %s Routine Nobody Talks About",
			"Stop Doing %s Like This",
			"%s in 10 Minutes: Full Follow-Along",
		},
		descriptions: []string{
			"Real results, no filters. Save this for your next training day.",
			"Coach-approved form cues you can use today.",
			"The small change that doubled my progress.",
		},
		authors: []string{"liftwithlena", "coachmarco", "fitbydana", "strongstartkai"},
	},
	"food": {
		topics: []string{"sourdough", "one-pan pasta", "meal prep", "street tacos", "ramen", "air fryer"},
		titles: []string{
			"The Only %s Recipe You Need",
			"%s for Under $5",
			"I Made %s Like a Michelin Chef",
			"Viral %s Hack Actually Works",
		},
		descriptions: []string{
			"Ingredients and timings in the comments.",
			"Weeknight friendly and ready in 20 minutes.",
			"My grandmother's method with one modern twist.",
		},
		authors: []string{"panandplate", "chefnoor", "tinykitchentom", "saltyspoon"},
	},
	"travel": {
		topics: []string{"Lisbon", "Kyoto", "Iceland", "Bali", "the Dolomites", "Mexico City"},
		titles: []string{
			"48 Hours in %s on a Budget",
			"Hidden Spots in %s Locals Love",
			"Don't Visit %s Before Watching This",
			"%s Sunrise You Have to See",
		},
		descriptions: []string{
			"Full itinerary and map pins below.",
			"Shot on a phone, no drone needed.",
			"Best time to go, where to stay, what to skip.",
		},
		authors: []string{"wanderwithjo", "passportpablo", "northboundnina", "slowtravelsam"},
	},
	"tech": {
		topics: []string{"AI tools", "desk setup", "mechanical keyboards", "home lab", "smartphone camera", "productivity apps"},
		titles: []string{
			"%s That Feel Illegal to Know",
			"My 2026 %s Tour",
			"%s: What Actually Matters",
			"I Replaced My Laptop With %s",
		},
		descriptions: []string{
			"Links to everything mentioned are in the description.",
			"Honest take after three months of daily use.",
			"Setup guide and settings at the end.",
		},
		authors: []string{"bytebrandon", "techwithtara", "setupsunday", "gadgetgrace"},
	},
	"fashion": {
		topics: []string{"capsule wardrobe", "thrift flip", "street style", "linen", "vintage denim", "layering"},
		titles: []string{
			"Building a %s From Scratch",
			"%s Outfits for Every Body",
			"How to Style %s Five Ways",
			"%s Trends Worth Keeping",
		},
		descriptions: []string{
			"Every piece linked or thrifted.",
			"Sustainable swaps that still look sharp.",
			"Styling tips from a working stylist.",
		},
		authors: []string{"stylebysol", "threadcount", "closetcurator", "denimdiaries"},
	},
	"beauty": {
		topics: []string{"skincare", "glass skin", "no-makeup makeup", "SPF", "brow lamination", "night routine"},
		titles: []string{
			"My %s Routine That Cleared Everything",
			"Dermatologist Reacts to %s",
			"%s on a Drugstore Budget",
			"The %s Mistake Everyone Makes",
		},
		descriptions: []string{
			"Products and order of application below.",
			"Before and after with no filter.",
			"Gentle routine for sensitive skin.",
		},
		authors: []string{"glowwithgia", "skinbyava", "beautybeacon", "dewdropdev"},
	},
	"business": {
		topics: []string{"side hustle", "cold email", "personal brand", "pricing", "first hire", "LinkedIn growth"},
		titles: []string{
			"How My %s Hit $10k a Month",
			"The %s Framework I Wish I Knew",
			"%s Lessons From Year One",
			"Stop Underpricing: %s Explained",
		},
		descriptions: []string{
			"Numbers, mistakes and what I'd do differently.",
			"Template in the comments.",
			"A thread-style breakdown you can steal.",
		},
		authors: []string{"foundernotes", "growthwithgabe", "solofounderana", "pitchperfectpat"},
	},
	"default": {
		topics: []string{"daily routine", "behind the scenes", "storytime", "challenge", "before and after", "tutorial"},
		titles: []string{
			"My Honest %s",
			"The %s Everyone Is Talking About",
			"%s That Went Completely Wrong",
			"A Simple %s Anyone Can Do",
		},
		descriptions: []string{
			"Thanks for watching, more like this every week.",
			"Tell me in the comments what to try next.",
			"Part two drops soon.",
		},
		authors: []string{"everydayeli", "creatorcam", "studiosky", "dailydrew"},
	},
}

// metricRange bounds view counts per platform.
type metricRange struct {
	minViews, maxViews int64
}

var platformRanges = map[model.Platform]metricRange{
	model.PlatformYouTube:   {minViews: 250_000, maxViews: 8_000_000},
	model.PlatformTikTok:    {minViews: 500_000, maxViews: 25_000_000},
	model.PlatformInstagram: {minViews: 100_000, maxViews: 5_000_000},
	model.PlatformLinkedIn:  {minViews: 20_000, maxViews: 900_000},
	model.PlatformDemo:      {minViews: 50_000, maxViews: 2_000_000},
}

// demoRotation is used when a query names no platform.
var demoRotation = []model.Platform{
	model.PlatformYouTube,
	model.PlatformTikTok,
	model.PlatformInstagram,
	model.PlatformLinkedIn,
}

// Niches lists the niches with dedicated demo templates.
func Niches() []string {
	return []string{"fitness", "food", "travel", "tech", "fashion", "beauty", "business"}
}

// Demo synthesizes plausible posts. Output depends only on the random
// source and the clock, both injectable. Safe for concurrent use.
type Demo struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewDemo returns a generator drawing from rng. A nil rng is seeded from the clock.
func NewDemo(rng *rand.Rand) *Demo {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Demo{rng: rng, now: time.Now}
}

// NewSeededDemo returns a deterministic generator.
func NewSeededDemo(seed int64) *Demo {
	return NewDemo(rand.New(rand.NewSource(seed)))
}

func (d *Demo) Name() string { return "demo" }

// Posts never fails except on cancellation.
func (d *Demo) Posts(ctx context.Context, q Query) ([]model.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tpl, ok := niches[strings.ToLower(strings.TrimSpace(q.Niche))]
	if !ok {
		tpl = niches["default"]
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	n := q.limit()
	posts := make([]model.Post, 0, n)
	for i := 0; i < n; i++ {
		platform := q.Platform
		if platform == "" {
			platform = demoRotation[i%len(demoRotation)]
		}
		posts = append(posts, d.post(i, platform, tpl, now))
	}
	return posts, nil
}

func (d *Demo) post(i int, platform model.Platform, tpl nicheTemplates, now time.Time) model.Post {
	topic := pick(d.rng, tpl.topics)
	author := pick(d.rng, tpl.authors)
	id := fmt.Sprintf("demo-%s-%d-%06d", platform, i+1, d.rng.Intn(1_000_000))

	metrics := d.metrics(platform)
	post := model.Post{
		ID:           id,
		Platform:     platform,
		Title:        fmt.Sprintf(pick(d.rng, tpl.titles), topic),
		Description:  pick(d.rng, tpl.descriptions),
		URL:          demoURL(platform, author, id),
		ThumbnailURL: "https://picsum.photos/seed/" + id + "/640/360",
		Author:       author,
		PublishedAt:  now.Add(-time.Duration(1+d.rng.Intn(14*24)) * time.Hour).UTC(),
		Metrics:      metrics,
	}
	post.EngagementRate = model.EngagementRate(metrics)
	return post
}

func (d *Demo) metrics(platform model.Platform) model.Metrics {
	r, ok := platformRanges[platform]
	if !ok {
		r = platformRanges[model.PlatformDemo]
	}
	views := r.minViews + d.rng.Int63n(r.maxViews-r.minViews)
	likes := int64(float64(views) * (0.02 + d.rng.Float64()*0.10))
	comments := int64(float64(likes) * (0.02 + d.rng.Float64()*0.08))
	shares := int64(float64(likes) * (0.05 + d.rng.Float64()*0.20))
	return model.Metrics{Views: views, Likes: likes, Comments: comments, Shares: shares}
}

func demoURL(platform model.Platform, author, id string) string {
	switch platform {
	case model.PlatformYouTube:
		return "https://www.youtube.com/watch?v=" + id
	case model.PlatformTikTok:
		return "https://www.tiktok.com/@" + author + "/video/" + id
	case model.PlatformInstagram:
		return "https://www.instagram.com/p/" + id + "/"
	case model.PlatformLinkedIn:
		return "https://www.linkedin.com/posts/" + author + "_" + id
	}
	return "https://example.com/posts/" + id
}

func pick(rng *rand.Rand, pool []string) string {
	return pool[rng.Intn(len(pool))]
}
