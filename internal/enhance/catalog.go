package enhance

// Template catalogs. Selection from these is cosmetic only.

var lightingCatalog = []string{
	"soft natural window light",
	"golden hour backlight",
	"a dramatic single-source side light",
	"bright high-key studio light",
	"moody low-key light with deep shadows",
	"an even ring light on the subject",
	"neon practicals for colored accents",
}

var angleCatalog = []string{
	"at eye level",
	"from a low angle looking up",
	"from a high angle looking down",
	"as an overhead flat lay",
	"from a three-quarter 45-degree view",
	"as a tight close-up",
	"as a wide establishing shot",
}

var compositionCatalog = []string{
	"the rule of thirds",
	"centered symmetry",
	"strong leading lines",
	"a frame within a frame",
	"generous negative space",
	"layered foreground for depth",
	"dynamic diagonals",
}

var equipmentCatalog = [][]string{
	{"50mm f/1.8 prime", "5-in-1 reflector"},
	{"24-70mm zoom", "LED panel"},
	{"85mm portrait lens", "softbox"},
	{"smartphone on gimbal", "clip-on LED"},
	{"35mm prime", "ring light"},
	{"macro lens", "diffusion scrim"},
}

var (
	apertures     = []string{"f/1.8", "f/2.8", "f/4", "f/5.6", "f/8"}
	shutterSpeeds = []string{"1/60", "1/125", "1/250", "1/500", "1/1000"}
	isoValues     = []int{100, 200, 400, 800, 1600}
	whiteBalances = []string{"Daylight (5600K)", "Cloudy (6500K)", "Tungsten (3200K)", "Auto"}
)

// defaultIdeas are used when a result has no shoot ideas at all.
var defaultIdeas = []string{
	"Hero shot of the creator or product in its signature moment",
	"Behind-the-scenes look at how the content gets made",
	"Testimonial portrait of a real fan or customer",
}

// timelineBuckets is indexed by step order; later steps share the last bucket.
var timelineBuckets = []string{
	"Days 1-2",
	"Days 3-5",
	"Days 6-10",
	"Days 11-14",
	"Days 15-21",
	"Days 22-30",
}

// defaultCampaign is used when a result has no PR outline at all.
var defaultCampaign = []string{
	"Announce the story with a press release",
	"Pitch journalists and creators through targeted media outreach",
	"Launch a social campaign that repurposes the viral clip",
	"Monitor mentions and measure campaign results",
}

type prCategory struct {
	name      string
	keywords  []string
	actions   []string
	targets   []string
	templates []string
	metrics   []string
}

// prCategories are matched in order; the last one is the fallback.
var prCategories = []prCategory{
	{
		name:      "press",
		keywords:  []string{"press", "release"},
		actions:   []string{"Draft a release around the viral moment", "Assemble a media kit with stats and visuals", "Distribute through a newswire"},
		targets:   []string{"Trade publications", "Local news desks", "Niche bloggers"},
		templates: []string{"Headline, hook statistic, founder quote, boilerplate"},
		metrics:   []string{"Pickups", "Referral traffic", "Share of voice"},
	},
	{
		name:      "social",
		keywords:  []string{"social", "media"},
		actions:   []string{"Cut the clip into platform-native formats", "Schedule posts at peak hours", "Engage with every early comment"},
		targets:   []string{"TikTok", "Instagram Reels", "YouTube Shorts"},
		templates: []string{"Hook, payoff, call to action caption"},
		metrics:   []string{"Reach", "Engagement rate", "Follower growth"},
	},
	{
		name:      "outreach",
		keywords:  []string{"email", "outreach"},
		actions:   []string{"Build a shortlist of relevant contacts", "Send personalized pitches", "Follow up after three days"},
		targets:   []string{"Journalists", "Newsletter editors", "Collaborating creators"},
		templates: []string{"Three-sentence pitch: why them, why now, what's in it for them"},
		metrics:   []string{"Open rate", "Reply rate", "Placements secured"},
	},
	{
		name:      "general",
		actions:   []string{"Define the goal and owner for this step", "Execute and document results"},
		targets:   []string{"Core audience"},
		templates: []string{"One-page brief"},
		metrics:   []string{"Mentions", "Sentiment", "Conversions"},
	},
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true, "that": true,
	"this": true, "your": true, "their": true, "into": true, "its": true, "how": true,
	"shot": true, "shots": true, "photo": true, "photos": true, "shoot": true,
	"image": true, "look": true, "gets": true, "made": true, "real": true,
}
