package coord

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abelbrown/viralscope/internal/brain"
	"github.com/abelbrown/viralscope/internal/enhance"
	"github.com/abelbrown/viralscope/internal/metrics"
	"github.com/abelbrown/viralscope/internal/model"
	"github.com/abelbrown/viralscope/internal/otel"
	"github.com/abelbrown/viralscope/internal/parse"
	"github.com/abelbrown/viralscope/internal/source"
)

// fakeRouter answers each post with a parsed JSON reply after a delay that
// shrinks with post order, so completion order is the reverse of input.
type fakeRouter struct {
	configured []model.ProviderKind
	failPost   string
	answeredBy map[string]model.ProviderKind // post id -> provider, default claude
	reply      string
	failures   []brain.Failure

	mu        sync.Mutex
	preferred []model.ProviderKind
	prompts   []string
	inflight  atomic.Int32
	peak      atomic.Int32
}

func (f *fakeRouter) Configured() []model.ProviderKind { return f.configured }

func (f *fakeRouter) Analyze(ctx context.Context, req brain.Request, preferred model.ProviderKind, post model.Post) (*brain.Outcome, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	f.mu.Lock()
	f.preferred = append(f.preferred, preferred)
	f.prompts = append(f.prompts, req.UserPrompt)
	f.mu.Unlock()

	if post.ID == f.failPost {
		err := &brain.HTTPError{Provider: model.ProviderGrok, Status: 502}
		return nil, &brain.AllProvidersFailedError{
			Last: model.ProviderGrok, Err: err,
			Failures: []brain.Failure{{Provider: model.ProviderGrok, Err: err}},
		}
	}

	select {
	case <-time.After(time.Duration(20-len(post.ID)%20) * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	reply := f.reply
	if reply == "" {
		reply = `{"title":"` + post.Title + `","whyViral":"because ` + post.ID + `","shootIdeas":["overhead flat lay"],"prOutline":["pitch bloggers"],"keyTakeaways":["a","b","c","d"]}`
	}
	kind := model.ProviderClaude
	if k, ok := f.answeredBy[post.ID]; ok {
		kind = k
	}
	return &brain.Outcome{
		Provider: kind,
		Model:    string(kind) + "-test",
		Results:  parse.Parse(reply, post, kind),
		Raw:      brain.RawResponse{Provider: kind, Status: 200},
		Failures: f.failures,
	}, nil
}

type fakePosts struct {
	posts []model.Post
	demo  bool
	err   error
	query source.Query
}

func (f *fakePosts) Fetch(_ context.Context, q source.Query) ([]model.Post, bool, error) {
	f.query = q
	return f.posts, f.demo, f.err
}

type fakeHistory struct {
	mu    sync.Mutex
	saved []model.CanonicalResult
	err   error
}

func (f *fakeHistory) SaveAnalyses(_ string, results []model.CanonicalResult) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, results...)
	return len(results), f.err
}

func posts(ids ...string) []model.Post {
	out := make([]model.Post, len(ids))
	for i, id := range ids {
		out[i] = model.Post{ID: id, Title: "Post " + id, Metrics: model.Metrics{Views: 1000, Likes: 50}}
	}
	return out
}

func newTestCoordinator(r *fakeRouter, p *fakePosts, h *fakeHistory) *Coordinator {
	cfg := Config{
		Router:   r,
		Posts:    p,
		Enhancer: enhance.NewSeeded(1),
		Metrics:  metrics.New("test"),
		Events:   otel.NewNullLogger(),
	}
	if h != nil {
		cfg.History = h
	}
	return New(cfg)
}

func TestAnalyzePreservesPostOrder(t *testing.T) {
	r := &fakeRouter{configured: []model.ProviderKind{model.ProviderClaude}}
	ids := []string{"a", "bb", "ccc", "dddd", "eeeee", "ffffff"}
	p := &fakePosts{posts: posts(ids...), demo: true}
	h := &fakeHistory{}
	c := newTestCoordinator(r, p, h)

	resp, err := c.Analyze(context.Background(), Request{Niche: "Food", Limit: 6})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if !resp.Success || resp.Provider != model.ProviderClaude || resp.AnalysisType != model.ModeFull || !resp.DemoPosts {
		t.Errorf("response = %+v", resp)
	}
	if len(resp.Results) != len(ids) {
		t.Fatalf("got %d results, want %d", len(resp.Results), len(ids))
	}
	for i, r := range resp.Results {
		if r.PostID != ids[i] {
			t.Errorf("results[%d].PostID = %s, want %s", i, r.PostID, ids[i])
		}
		if len(r.Analysis.KeyTakeaways) != 3 {
			t.Errorf("results[%d] takeaways = %v", i, r.Analysis.KeyTakeaways)
		}
		if len(r.Analysis.ShootIdeas) != 1 || !r.Analysis.ShootIdeas[0].Structured() {
			t.Errorf("results[%d] shoot ideas not enhanced: %+v", i, r.Analysis.ShootIdeas)
		}
	}
	if p.query.Niche != "food" || p.query.Limit != 6 {
		t.Errorf("query = %+v", p.query)
	}
	if len(h.saved) != len(ids) {
		t.Errorf("history saved %d results", len(h.saved))
	}
	if peak := r.peak.Load(); peak > DefaultConcurrency {
		t.Errorf("peak concurrency = %d, limit %d", peak, DefaultConcurrency)
	}
}

func TestAnalyzeOnePromptPerPost(t *testing.T) {
	r := &fakeRouter{configured: []model.ProviderKind{model.ProviderOpenAI}}
	c := newTestCoordinator(r, &fakePosts{}, nil)

	_, err := c.Analyze(context.Background(), Request{
		Mode:     "quick",
		Provider: "anthropic",
		Posts:    posts("x", "y"),
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(r.prompts) != 2 {
		t.Fatalf("prompts = %d", len(r.prompts))
	}
	for _, p := range r.prompts {
		if strings.Count(p, "POST ") != 1 {
			t.Errorf("prompt should describe one post:\n%s", p)
		}
	}
	for _, pref := range r.preferred {
		if pref != model.ProviderClaude {
			t.Errorf("preferred = %s, want claude", pref)
		}
	}
}

func TestAnalyzeConfiguredDefaults(t *testing.T) {
	r := &fakeRouter{configured: []model.ProviderKind{model.ProviderOpenAI, model.ProviderGemini}}
	c := New(Config{
		Router:          r,
		Posts:           &fakePosts{posts: posts("x")},
		Enhancer:        enhance.NewSeeded(1),
		DefaultMode:     "quick",
		DefaultProvider: "gemini",
	})

	resp, err := c.Analyze(context.Background(), Request{Niche: "food"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if resp.AnalysisType != model.ModeQuick {
		t.Errorf("analysisType = %s, want quick", resp.AnalysisType)
	}
	if len(r.preferred) != 1 || r.preferred[0] != model.ProviderGemini {
		t.Errorf("preferred = %v, want gemini", r.preferred)
	}

	// explicit request values win
	resp, err = c.Analyze(context.Background(), Request{Niche: "food", Mode: "full", Provider: "openai"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if resp.AnalysisType != model.ModeFull || r.preferred[1] != model.ProviderOpenAI {
		t.Errorf("explicit values ignored: %s %v", resp.AnalysisType, r.preferred)
	}
}

func TestAnalyzeAllProvidersFailed(t *testing.T) {
	r := &fakeRouter{configured: []model.ProviderKind{model.ProviderGrok}, failPost: "bad"}
	c := newTestCoordinator(r, &fakePosts{posts: posts("ok1", "bad", "ok2")}, nil)

	_, err := c.Analyze(context.Background(), Request{Niche: "tech"})
	var allErr *brain.AllProvidersFailedError
	if !errors.As(err, &allErr) {
		t.Fatalf("err = %v, want AllProvidersFailedError", err)
	}
}

func TestAnalyzeNoProviderConfigured(t *testing.T) {
	p := &fakePosts{posts: posts("a")}
	c := newTestCoordinator(&fakeRouter{}, p, nil)

	_, err := c.Analyze(context.Background(), Request{Niche: "tech"})
	if !errors.Is(err, brain.ErrNoProviderConfigured) {
		t.Errorf("err = %v", err)
	}
	if p.query.Niche != "" {
		t.Error("source should not be queried without providers")
	}
}

func TestAnalyzeSourceError(t *testing.T) {
	p := &fakePosts{err: context.DeadlineExceeded}
	c := newTestCoordinator(&fakeRouter{configured: []model.ProviderKind{model.ProviderOpenAI}}, p, nil)

	if _, err := c.Analyze(context.Background(), Request{Niche: "tech"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v", err)
	}
}

func TestAnalyzeHistoryFailureIsNotFatal(t *testing.T) {
	r := &fakeRouter{configured: []model.ProviderKind{model.ProviderClaude}}
	h := &fakeHistory{err: errors.New("disk full")}
	c := newTestCoordinator(r, &fakePosts{posts: posts("a")}, h)

	resp, err := c.Analyze(context.Background(), Request{Niche: "tech"})
	if err != nil || len(resp.Results) != 1 {
		t.Errorf("resp = %+v, err = %v", resp, err)
	}
}

func TestAnalyzeRawReplyIsStillSuccess(t *testing.T) {
	r := &fakeRouter{
		configured: []model.ProviderKind{model.ProviderClaude},
		reply:      "The hook lands in the first second and the payoff is shareable.",
		failures:   []brain.Failure{{Provider: model.ProviderOpenAI, Err: &brain.TimeoutError{Provider: model.ProviderOpenAI}}},
	}
	c := newTestCoordinator(r, &fakePosts{posts: posts("a")}, nil)

	resp, err := c.Analyze(context.Background(), Request{Niche: "tech"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	res := resp.Results[0]
	if res.ParseMode != model.ParseRaw || !res.ParseRecoveryUsed || res.FullResponse == "" {
		t.Errorf("result = %+v", res)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{"missing niche", Request{}, "niche"},
		{"long niche", Request{Niche: strings.Repeat("x", 65)}, "niche"},
		{"bad platform", Request{Niche: "food", Platform: "myspace"}, "platform"},
		{"limit too high", Request{Niche: "food", Limit: 21}, "limit"},
		{"negative limit", Request{Niche: "food", Limit: -1}, "limit"},
		{"bad mode", Request{Niche: "food", Mode: "deep"}, "mode"},
		{"unknown provider", Request{Niche: "food", Provider: "llama"}, "provider"},
		{"too many posts", Request{Posts: make([]model.Post, 21)}, "posts"},
		{"untitled post", Request{Posts: []model.Post{{ID: "a", Title: "ok"}, {ID: "b"}}}, "posts[1].title"},
	}

	c := newTestCoordinator(&fakeRouter{configured: []model.ProviderKind{model.ProviderOpenAI}}, &fakePosts{}, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Analyze(context.Background(), tt.req)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if vErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", vErr.Field, tt.field)
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	v, err := validateRequest(Request{Niche: " Fitness ", Platform: "TikTok"}, MaxPosts)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if v.query.Niche != "fitness" || v.query.Platform != model.PlatformTikTok || v.query.Limit != DefaultPosts {
		t.Errorf("query = %+v", v.query)
	}
	if v.mode != model.ModeFull || v.preferred != "" {
		t.Errorf("mode = %s preferred = %s", v.mode, v.preferred)
	}

	v, err = validateRequest(Request{Posts: []model.Post{{Title: "t", Metrics: model.Metrics{Views: -5}}}}, MaxPosts)
	if err != nil {
		t.Fatalf("validate posts: %v", err)
	}
	if v.posts[0].ID == "" || v.posts[0].Metrics.Views != 0 {
		t.Errorf("post = %+v", v.posts[0])
	}
}

func TestPostsQuery(t *testing.T) {
	p := &fakePosts{posts: posts("a", "b"), demo: true}
	c := newTestCoordinator(&fakeRouter{}, p, nil)

	got, demo, err := c.Posts(context.Background(), "travel", "youtube", 2)
	if err != nil || !demo || len(got) != 2 {
		t.Errorf("posts = %d demo = %v err = %v", len(got), demo, err)
	}
	if _, _, err := c.Posts(context.Background(), "", "", 0); err == nil {
		t.Error("empty niche should fail validation")
	}
}

func TestFailureClass(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&brain.AuthError{Provider: model.ProviderOpenAI, Status: 401}, "auth"},
		{&brain.TimeoutError{Provider: model.ProviderOpenAI}, "timeout"},
		{&brain.HTTPError{Provider: model.ProviderOpenAI, Err: errors.New("refused")}, "network"},
		{&brain.HTTPError{Provider: model.ProviderOpenAI, Status: 500}, "http"},
		{brain.ErrCircuitOpen, "circuit_open"},
	}
	for _, tt := range tests {
		if got := failureClass(tt.err); got != tt.want {
			t.Errorf("failureClass(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestAnalyzeReportsProviderPerPost(t *testing.T) {
	r := &fakeRouter{
		configured: []model.ProviderKind{model.ProviderClaude, model.ProviderGemini},
		answeredBy: map[string]model.ProviderKind{"b": model.ProviderGemini},
	}
	c := newTestCoordinator(r, &fakePosts{posts: posts("a", "b", "c")}, nil)

	resp, err := c.Analyze(context.Background(), Request{Niche: "food"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if resp.Provider != model.ProviderClaude {
		t.Errorf("Provider = %s, want claude (first post)", resp.Provider)
	}
	want := []model.ProviderKind{model.ProviderClaude, model.ProviderGemini}
	if !slices.Equal(resp.Providers, want) {
		t.Errorf("Providers = %v, want %v", resp.Providers, want)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(resp.Results))
	}
	for i, wantKind := range []model.ProviderKind{model.ProviderClaude, model.ProviderGemini, model.ProviderClaude} {
		if got := resp.Results[i].Provider; got != wantKind {
			t.Errorf("Results[%d].Provider = %s, want %s", i, got, wantKind)
		}
	}
}

func TestWorstCase(t *testing.T) {
	tests := []struct {
		name        string
		configured  int
		concurrency int
		maxPosts    int
		want        time.Duration
	}{
		{"defaults, four providers", 4, 0, 0, 5 * 4 * time.Minute},
		{"one provider, uneven waves", 1, 4, 5, 2 * time.Minute},
		{"no provider still counts one call", 0, 2, 2, time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRouter{configured: model.PriorityOrder[:tt.configured]}
			c := New(Config{Router: r, Posts: &fakePosts{}, Concurrency: tt.concurrency, MaxPosts: tt.maxPosts})
			if got := c.WorstCase(time.Minute); got != tt.want {
				t.Errorf("WorstCase = %v, want %v", got, tt.want)
			}
		})
	}
}
