package parse

import (
	"encoding/json"
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/abelbrown/viralscope/internal/model"
)

var testPost = model.Post{ID: "post-1", Title: "Morning routine", Platform: model.PlatformTikTok}

func TestParseFencedResultsEnvelope(t *testing.T) {
	results := Parse("```json\n{\"results\":[{\"title\":\"A\"}]}\n```", testPost, model.ProviderOpenAI)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.Title != "A" {
		t.Errorf("Title = %q, want %q", r.Title, "A")
	}
	if r.ParseMode != model.ParseJSON || r.ParseRecoveryUsed {
		t.Errorf("mode = %s recovery = %v, want json/false", r.ParseMode, r.ParseRecoveryUsed)
	}
	if r.PostID != "post-1" {
		t.Errorf("PostID = %q, want post-1", r.PostID)
	}
	if r.Provider != model.ProviderOpenAI {
		t.Errorf("Provider = %q, want openai", r.Provider)
	}
	if r.Timestamp.IsZero() || r.ID == "" {
		t.Error("timestamp and id must be set")
	}
}

func TestParseRoundTrip(t *testing.T) {
	want := model.Analysis{
		WhyViral: "Relatable hook in the first second and a loopable ending.",
		ShootIdeas: []model.ShootEntry{
			model.TextShoot("Overhead flat lay of the routine"),
			{Idea: &model.ShootIdea{
				Description: "Golden hour silhouette",
				Technical: &model.ShootTechnical{
					Lighting:  "Backlit sun",
					Angle:     "Low angle",
					Equipment: []string{"50mm prime"},
					Camera:    &model.CameraSettings{Aperture: "f/2.8", ShutterSpeed: "1/500", ISO: 100, WhiteBalance: "Daylight"},
				},
				References: []string{"https://unsplash.com/s/photos/silhouette"},
			}},
		},
		PROutline: []model.PREntry{
			model.TextPR("Seed clips with micro creators"),
			{Step: &model.PRStep{Step: 2, Description: "Press release", Timeline: "Days 3-5", Actions: []string{"Write it"}}},
		},
		KeyTakeaways: []string{"Hook fast", "Loop the ending", "Post at 7am"},
	}

	body, err := json.Marshal(map[string]any{"results": []model.Analysis{want}})
	if err != nil {
		t.Fatal(err)
	}

	results := Parse(string(body), testPost, model.ProviderClaude)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if got := results[0].Analysis; !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch\n got: %+v\nwant: %+v", got, want)
	}
}

func TestParseJSONShapes(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantCount int
		wantWhy   string
	}{
		{"bare object", `{"whyViral":"timing"}`, 1, "timing"},
		{"array", `[{"whyViral":"a"},{"whyViral":"b"}]`, 2, "a"},
		{"empty results", `{"results":[]}`, 0, ""},
		{"snake case", `{"why_viral":"snake"}`, 1, "snake"},
		{"nested analysis", `{"postId":"x","analysis":{"whyViral":"nested"}}`, 1, "nested"},
		{"prose around json", "Sure! Here you go:\n{\"whyViral\":\"embedded\"}\nHope it helps.", 1, "embedded"},
		{"fence without tag", "```\n{\"whyViral\":\"plain fence\"}\n```", 1, "plain fence"},
		{"array of strings joined", `{"whyViral":["one","two"]}`, 1, "one two"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := Parse(tt.in, testPost, model.ProviderGemini)
			if len(results) != tt.wantCount {
				t.Fatalf("got %d results, want %d", len(results), tt.wantCount)
			}
			if tt.wantCount > 0 && results[0].Analysis.WhyViral != tt.wantWhy {
				t.Errorf("WhyViral = %q, want %q", results[0].Analysis.WhyViral, tt.wantWhy)
			}
			for _, r := range results {
				if r.ParseMode != model.ParseJSON {
					t.Errorf("ParseMode = %s, want json", r.ParseMode)
				}
			}
		})
	}
}

func TestParseJSONTruncatesLists(t *testing.T) {
	in := `{"shootIdeas":["1","2","3","4","5","6","7"],"keyTakeaways":["a","b","c","d"],"prOutline":["1","2","3","4","5","6","7"]}`
	r := Parse(in, testPost, model.ProviderGrok)[0]
	if len(r.Analysis.ShootIdeas) != 5 {
		t.Errorf("shootIdeas = %d, want 5", len(r.Analysis.ShootIdeas))
	}
	if len(r.Analysis.KeyTakeaways) != 3 {
		t.Errorf("keyTakeaways = %d, want 3", len(r.Analysis.KeyTakeaways))
	}
	if len(r.Analysis.PROutline) != 7 {
		t.Errorf("prOutline = %d, want 7 (uncapped)", len(r.Analysis.PROutline))
	}
}

func TestParseLooselyTypedEntries(t *testing.T) {
	text := `{"results":[{"title":"A","whyViral":"hook",
		"shootIdeas":[
			{"description":"Golden hour hero","technical":{"cameraSettings":{"aperture":"f/2.8","iso":"400"}}},
			{"title":"Flat lay","technical":"bright and airy"}
		],
		"prOutline":[{"step":"1","description":"Pitch press"},{"step":2.0,"action":"Seed creators"}],
		"keyTakeaways":["hook fast"]}]}`

	r := Parse(text, testPost, model.ProviderOpenAI)[0]
	if r.ParseMode != model.ParseJSON || r.ParseRecoveryUsed {
		t.Fatalf("mode = %s recovery = %v, want json/false", r.ParseMode, r.ParseRecoveryUsed)
	}
	if r.Analysis.WhyViral != "hook" {
		t.Errorf("WhyViral = %q, want %q", r.Analysis.WhyViral, "hook")
	}

	shoots := r.Analysis.ShootIdeas
	if len(shoots) != 2 {
		t.Fatalf("got %d shoot ideas, want 2", len(shoots))
	}
	if !shoots[0].Structured() || shoots[0].Idea.Technical == nil || shoots[0].Idea.Technical.Camera == nil {
		t.Fatalf("first shoot idea lost its camera settings: %+v", shoots[0])
	}
	if iso := shoots[0].Idea.Technical.Camera.ISO; iso != 400 {
		t.Errorf("ISO = %d, want 400", iso)
	}
	if shoots[1].Structured() || shoots[1].Text != "Flat lay" {
		t.Errorf("undecodable idea = %+v, want text %q", shoots[1], "Flat lay")
	}

	pr := r.Analysis.PROutline
	if len(pr) != 2 || !pr[0].Structured() || !pr[1].Structured() {
		t.Fatalf("PROutline = %+v, want 2 structured steps", pr)
	}
	if pr[0].Step.Step != 1 || pr[0].Step.Description != "Pitch press" {
		t.Errorf("step 1 = %+v", *pr[0].Step)
	}
	if pr[1].Step.Step != 2 || pr[1].Step.Description != "Seed creators" {
		t.Errorf("step 2 = %+v", *pr[1].Step)
	}
}

func TestParseHeuristicSections(t *testing.T) {
	text := `Here is my analysis.

WHY IT'S VIRAL: The creator opens with a relatable problem
and pays it off in under ten seconds.

PHOTOGRAPHY SHOOT IDEAS:
- Overhead kitchen shot
• Close-up of hands
* Mirror selfie with ring light

PR CAMPAIGN OUTLINE:
1. Send a press release to lifestyle blogs
2. Pitch three podcasts

KEY TAKEAWAYS:
- Hook in the first second
- Keep it under 30 seconds
- Reply to comments
- Extra takeaway that gets cut`

	results := Parse(text, testPost, model.ProviderOpenAI)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.ParseMode != model.ParseHeuristic || !r.ParseRecoveryUsed {
		t.Errorf("mode = %s recovery = %v, want heuristic/true", r.ParseMode, r.ParseRecoveryUsed)
	}
	wantWhy := "The creator opens with a relatable problem and pays it off in under ten seconds."
	if r.Analysis.WhyViral != wantWhy {
		t.Errorf("WhyViral = %q, want %q", r.Analysis.WhyViral, wantWhy)
	}
	wantShoot := []string{"Overhead kitchen shot", "Close-up of hands", "Mirror selfie with ring light"}
	if got := shootStrings(r.Analysis.ShootIdeas); !reflect.DeepEqual(got, wantShoot) {
		t.Errorf("ShootIdeas = %q, want %q", got, wantShoot)
	}
	wantPR := []string{"Send a press release to lifestyle blogs", "Pitch three podcasts"}
	if got := prStrings(r.Analysis.PROutline); !reflect.DeepEqual(got, wantPR) {
		t.Errorf("PROutline = %q, want %q", got, wantPR)
	}
	wantTake := []string{"Hook in the first second", "Keep it under 30 seconds", "Reply to comments"}
	if !reflect.DeepEqual(r.Analysis.KeyTakeaways, wantTake) {
		t.Errorf("KeyTakeaways = %q, want %q", r.Analysis.KeyTakeaways, wantTake)
	}
	if r.FullResponse != text {
		t.Error("FullResponse should keep the raw reply")
	}
}

func TestParseNumberedTitleCaseHeadings(t *testing.T) {
	text := "1. Why it's viral: Strong hook in the first second\n" +
		"2. Photography shoot ideas:\n- Golden hour hero\n- Flat lay\n" +
		"3. PR campaign outline:\n- Pitch local press\n" +
		"4. Key takeaways:\n- Hook fast\n- Post daily\n- Reply to comments"

	r := Parse(text, testPost, model.ProviderOpenAI)[0]
	if r.ParseMode != model.ParseHeuristic {
		t.Fatalf("mode = %s, want heuristic", r.ParseMode)
	}
	if want := "Strong hook in the first second"; r.Analysis.WhyViral != want {
		t.Errorf("WhyViral = %q, want %q", r.Analysis.WhyViral, want)
	}
	if got, want := shootStrings(r.Analysis.ShootIdeas), []string{"Golden hour hero", "Flat lay"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ShootIdeas = %q, want %q", got, want)
	}
	if got, want := prStrings(r.Analysis.PROutline), []string{"Pitch local press"}; !reflect.DeepEqual(got, want) {
		t.Errorf("PROutline = %q, want %q", got, want)
	}
	if want := []string{"Hook fast", "Post daily", "Reply to comments"}; !reflect.DeepEqual(r.Analysis.KeyTakeaways, want) {
		t.Errorf("KeyTakeaways = %q, want %q", r.Analysis.KeyTakeaways, want)
	}
}

func TestParseNumberedItemIsNotLabel(t *testing.T) {
	text := "PR CAMPAIGN OUTLINE:\n1. Pitch local press: call three editors\n2. Run a giveaway\n" +
		"PHOTOGRAPHY SHOOT IDEAS:\n- Overhead flat lay"

	r := Parse(text, testPost, model.ProviderOpenAI)[0]
	want := []string{"Pitch local press: call three editors", "Run a giveaway"}
	if got := prStrings(r.Analysis.PROutline); !reflect.DeepEqual(got, want) {
		t.Errorf("PROutline = %q, want %q", got, want)
	}
}

func TestParseInlineBullets(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"dash", "PHOTOGRAPHY SHOOT IDEAS: - Hero shot - Flat lay - Mirror selfie", []string{"Hero shot", "Flat lay", "Mirror selfie"}},
		{"bullet", "PHOTOGRAPHY SHOOT IDEAS: • Hero shot • Flat lay", []string{"Hero shot", "Flat lay"}},
		{"star", "PHOTOGRAPHY SHOOT IDEAS:\n* Hero shot * Flat lay", []string{"Hero shot", "Flat lay"}},
		{"prose hyphen kept", "PHOTOGRAPHY SHOOT IDEAS: Golden hour - backlit subject", []string{"Golden hour - backlit subject"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Parse(tt.text, testPost, model.ProviderOpenAI)[0]
			if got := shootStrings(r.Analysis.ShootIdeas); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ShootIdeas = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyPrecedence(t *testing.T) {
	tests := []struct {
		in   string
		want category
	}{
		{"Why it went VIRAL: photo of the shoot", catViral},
		{"PHOTO IDEAS: a PR stunt", catShoot},
		{"PR PLAN: lessons learned", catPR},
		{"Campaign lessons", catPR},
		{"LESSONS: be consistent", catTakeaway},
		{"An approach to improve products", catNone},
	}
	for _, tt := range tests {
		if got := classify(tt.in); got != tt.want {
			t.Errorf("classify(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseRawFallback(t *testing.T) {
	text := strings.Repeat("This clip worked because people could not stop rewatching it. ", 8)

	results := Parse(text, testPost, model.ProviderGemini)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.ParseMode != model.ParseRaw || !r.ParseRecoveryUsed {
		t.Errorf("mode = %s recovery = %v, want raw/true", r.ParseMode, r.ParseRecoveryUsed)
	}
	if r.FullResponse != text {
		t.Error("FullResponse should hold the full text")
	}
	if r.Analysis.WhyViral != string([]rune(text)[:200]) {
		t.Errorf("WhyViral should be the first 200 characters, got %d", utf8.RuneCountInString(r.Analysis.WhyViral))
	}
	if len(r.Analysis.ShootIdeas) != 1 || r.Analysis.ShootIdeas[0].Text != Placeholder {
		t.Errorf("ShootIdeas = %+v, want placeholder", r.Analysis.ShootIdeas)
	}
	if len(r.Analysis.PROutline) != 1 || r.Analysis.PROutline[0].Text != Placeholder {
		t.Errorf("PROutline = %+v, want placeholder", r.Analysis.PROutline)
	}
	if !reflect.DeepEqual(r.Analysis.KeyTakeaways, []string{Placeholder}) {
		t.Errorf("KeyTakeaways = %q, want placeholder", r.Analysis.KeyTakeaways)
	}
}

func TestParseHeadingsWithoutContentFallsBackToRaw(t *testing.T) {
	text := "PR CAMPAIGN OUTLINE:\n1. Pitch podcasts"
	r := Parse(text, testPost, model.ProviderClaude)[0]
	if r.ParseMode != model.ParseRaw {
		t.Errorf("ParseMode = %s, want raw (no whyViral and no shoot ideas)", r.ParseMode)
	}
}

func TestParseIsTotal(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	inputs := []string{
		"", " ", "null", "42", `"just a string"`, "[1,2,3]", `{"results": 5}`,
		`{"whyViral": `, "```", "```json", "```json\n{\"results\":[{\"title\":",
		"{{{{", "]]]]", `{"shootIdeas": {"description": 7}}`, "\x00\xff\xfe",
	}
	for i := 0; i < 50; i++ {
		b := make([]byte, rng.Intn(300))
		rng.Read(b)
		inputs = append(inputs, string(b))
	}

	for _, in := range inputs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("Parse panicked on %q: %v", in, r)
				}
			}()
			for _, r := range Parse(in, testPost, model.ProviderOpenAI) {
				if r.PostID != testPost.ID {
					t.Errorf("PostID = %q, want %q", r.PostID, testPost.ID)
				}
			}
		}()
	}
}

func TestStripFence(t *testing.T) {
	tests := []struct{ in, want string }{
		{"```json\n{}\n```", "{}"},
		{"```\n[1]\n```", "[1]"},
		{"```json{}```", "{}"},
		{"  {\"a\":1}  ", "{\"a\":1}"},
		{"no fence", "no fence"},
	}
	for _, tt := range tests {
		if got := StripFence(tt.in); got != tt.want {
			t.Errorf("StripFence(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func shootStrings(in []model.ShootEntry) []string {
	out := make([]string, len(in))
	for i, e := range in {
		out[i] = e.String()
	}
	return out
}

func prStrings(in []model.PREntry) []string {
	out := make([]string, len(in))
	for i, e := range in {
		out[i] = e.String()
	}
	return out
}
