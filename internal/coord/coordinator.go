// Package coord runs an analysis request end to end: posts from the source,
// one prompt per post, provider routing, enhancement and persistence.
package coord

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/viralscope/internal/brain"
	"github.com/abelbrown/viralscope/internal/enhance"
	"github.com/abelbrown/viralscope/internal/logging"
	"github.com/abelbrown/viralscope/internal/metrics"
	"github.com/abelbrown/viralscope/internal/model"
	"github.com/abelbrown/viralscope/internal/otel"
	"github.com/abelbrown/viralscope/internal/prompt"
	"github.com/abelbrown/viralscope/internal/source"
)

// DefaultConcurrency limits parallel per-post analyses.
const DefaultConcurrency = 4

// analyzer interface for dependency injection (testing).
type analyzer interface {
	Analyze(ctx context.Context, req brain.Request, preferred model.ProviderKind, post model.Post) (*brain.Outcome, error)
	Configured() []model.ProviderKind
}

// postSource returns posts and whether they are synthetic.
type postSource interface {
	Fetch(ctx context.Context, q source.Query) ([]model.Post, bool, error)
}

// history persists finished results.
type history interface {
	SaveAnalyses(modelName string, results []model.CanonicalResult) (int, error)
}

// Config wires a Coordinator. Router, Posts and Enhancer are required;
// the rest may be nil.
type Config struct {
	Router      analyzer
	Posts       postSource
	Enhancer    *enhance.Enhancer
	History     history
	Metrics     *metrics.Collector
	Events      *otel.Logger
	Concurrency int
	MaxPosts    int

	// Applied when a request leaves mode or provider empty
	DefaultMode     string
	DefaultProvider string
}

// Coordinator is safe for concurrent use. It holds no per-request state.
type Coordinator struct {
	router      analyzer
	posts       postSource
	enhancer    *enhance.Enhancer
	history     history
	metrics     *metrics.Collector
	events      *otel.Logger
	concurrency int
	maxPosts    int
	defaultMode string
	defaultProv string
}

// New creates a Coordinator.
func New(cfg Config) *Coordinator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.MaxPosts <= 0 || cfg.MaxPosts > MaxPosts {
		cfg.MaxPosts = MaxPosts
	}
	return &Coordinator{
		router:      cfg.Router,
		posts:       cfg.Posts,
		enhancer:    cfg.Enhancer,
		history:     cfg.History,
		metrics:     cfg.Metrics,
		events:      cfg.Events,
		concurrency: cfg.Concurrency,
		maxPosts:    cfg.MaxPosts,
		defaultMode: cfg.DefaultMode,
		defaultProv: cfg.DefaultProvider,
	}
}

// Response is the consumer-facing result shape. Posts are routed one by one
// and may be answered by different providers. Provider is the one that
// answered the first post; Providers lists each provider used, in post order.
type Response struct {
	Success      bool                    `json:"success"`
	Provider     model.ProviderKind      `json:"provider"`
	Providers    []model.ProviderKind    `json:"providers"`
	AnalysisType model.AnalysisMode      `json:"analysisType"`
	Results      []model.CanonicalResult `json:"results"`
	DemoPosts    bool                    `json:"demoPosts"`
	RequestID    string                  `json:"requestId"`
}

// Providers lists configured providers in priority order.
func (c *Coordinator) Providers() []model.ProviderKind {
	return c.router.Configured()
}

// WorstCase is how long Analyze can run when every post of the largest
// allowed request walks the whole fallback chain and each call takes perCall.
func (c *Coordinator) WorstCase(perCall time.Duration) time.Duration {
	providers := max(len(c.router.Configured()), 1)
	waves := (c.maxPosts + c.concurrency - 1) / c.concurrency
	return time.Duration(waves*providers) * perCall
}

// Posts validates a query and returns posts plus the synthetic flag.
func (c *Coordinator) Posts(ctx context.Context, niche, platform string, limit int) ([]model.Post, bool, error) {
	q, err := validateQuery(niche, platform, limit, c.maxPosts)
	if err != nil {
		return nil, false, err
	}
	return c.fetchPosts(ctx, q, "")
}

// Analyze runs one request. Posts are analyzed independently and results
// keep post order. The first post that exhausts every provider cancels the
// rest and fails the request.
func (c *Coordinator) Analyze(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	rid := uuid.NewString()

	if req.Mode == "" {
		req.Mode = c.defaultMode
	}
	if req.Provider == "" {
		req.Provider = c.defaultProv
	}
	v, err := validateRequest(req, c.maxPosts)
	if err != nil {
		return nil, err
	}
	if len(c.router.Configured()) == 0 {
		c.finish(rid, v.mode, start, 0, brain.ErrNoProviderConfigured)
		return nil, brain.ErrNoProviderConfigured
	}

	c.events.Emit(otel.Event{
		Level: otel.LevelInfo, Kind: otel.KindAnalyzeStart, Comp: "coord", RequestID: rid,
		Provider: string(v.preferred), Msg: string(v.mode),
	})

	posts, demo := v.posts, false
	if len(posts) == 0 {
		posts, demo, err = c.fetchPosts(ctx, v.query, rid)
		if err != nil {
			c.finish(rid, v.mode, start, 0, err)
			return nil, err
		}
	}

	outcomes := make([][]model.CanonicalResult, len(posts))
	providers := make([]model.ProviderKind, len(posts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, post := range posts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results, kind, err := c.analyzePost(gctx, rid, post, v.mode, v.preferred)
			if err != nil {
				return err
			}
			outcomes[i] = results
			providers[i] = kind
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.finish(rid, v.mode, start, 0, err)
		return nil, err
	}

	results := make([]model.CanonicalResult, 0, len(posts))
	for _, r := range outcomes {
		results = append(results, r...)
	}

	resp := &Response{
		Success:      true,
		AnalysisType: v.mode,
		Results:      results,
		DemoPosts:    demo,
		RequestID:    rid,
	}
	if len(providers) > 0 {
		resp.Provider = providers[0]
	}
	for _, p := range providers {
		if !slices.Contains(resp.Providers, p) {
			resp.Providers = append(resp.Providers, p)
		}
	}

	c.finish(rid, v.mode, start, len(results), nil)
	return resp, nil
}

func (c *Coordinator) fetchPosts(ctx context.Context, q source.Query, rid string) ([]model.Post, bool, error) {
	posts, demo, err := c.posts.Fetch(ctx, q)
	if err != nil {
		return nil, false, err
	}
	if demo {
		c.metrics.SourceFallback()
		logging.Info("Serving demo posts", "niche", q.Niche, "platform", q.Platform, "count", len(posts), "rid", rid)
	}
	return posts, demo, nil
}

// analyzePost routes one post and enhances what comes back.
func (c *Coordinator) analyzePost(ctx context.Context, rid string, post model.Post, mode model.AnalysisMode, preferred model.ProviderKind) ([]model.CanonicalResult, model.ProviderKind, error) {
	req := brain.Request{
		SystemPrompt: prompt.System,
		UserPrompt:   prompt.Build([]model.Post{post}, mode),
		MaxTokens:    prompt.MaxTokens(mode),
		Temperature:  0.7,
	}

	out, err := c.router.Analyze(ctx, req, preferred, post)

	var failures []brain.Failure
	var allFailed *brain.AllProvidersFailedError
	switch {
	case out != nil:
		failures = out.Failures
	case errors.As(err, &allFailed):
		failures = allFailed.Failures
	}
	for _, f := range failures {
		c.metrics.ProviderAttempt(string(f.Provider), failureClass(f.Err))
		c.metrics.Fallback(string(f.Provider))
		c.events.Emit(otel.Event{
			Level: otel.LevelWarn, Kind: otel.KindProviderError, Comp: "router", RequestID: rid,
			Provider: string(f.Provider), PostID: post.ID, Status: failureStatus(f.Err), Err: f.Err.Error(),
		})
	}
	if err != nil {
		return nil, "", err
	}

	c.metrics.ProviderAttempt(string(out.Provider), "success")
	c.events.Raw(rid, string(out.Provider), post.ID, out.Raw.Status, out.Raw.Body)
	c.events.Emit(otel.Event{
		Level: otel.LevelInfo, Kind: otel.KindProviderAttempt, Comp: "router", RequestID: rid,
		Provider: string(out.Provider), PostID: post.ID, Status: out.Raw.Status,
		Dur: out.Raw.Latency, Count: len(out.Results),
	})
	if len(failures) > 0 {
		c.events.Emit(otel.Event{
			Level: otel.LevelInfo, Kind: otel.KindProviderFallback, Comp: "router", RequestID: rid,
			Provider: string(out.Provider), PostID: post.ID, Count: len(failures),
		})
	}

	results := make([]model.CanonicalResult, 0, len(out.Results))
	for _, r := range out.Results {
		c.metrics.ParseResult(string(r.ParseMode))
		if r.ParseRecoveryUsed {
			logging.Warn("Parser recovery used", "provider", r.Provider, "post", post.ID, "mode", r.ParseMode)
			c.events.Emit(otel.Event{
				Level: otel.LevelWarn, Kind: otel.KindParseRecovery, Comp: "parse", RequestID: rid,
				Provider: string(r.Provider), PostID: post.ID, Msg: string(r.ParseMode),
			})
		}
		results = append(results, c.enhancer.Enhance(r))
	}

	if c.history != nil && len(results) > 0 {
		if _, err := c.history.SaveAnalyses(out.Model, results); err != nil {
			logging.Error("Failed to save analyses", "post", post.ID, "error", err)
			c.events.Error(otel.KindStoreError, "store", err)
		}
	}

	return results, out.Provider, nil
}

func (c *Coordinator) finish(rid string, mode model.AnalysisMode, start time.Time, count int, err error) {
	dur := time.Since(start)
	if err != nil {
		status := "error"
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = "cancelled"
		}
		c.metrics.AnalysisDone(string(mode), status, dur)
		logging.Error("Analysis failed", "rid", rid, "error", err, "dur", dur.Round(time.Millisecond))
		c.events.Emit(otel.Event{
			Level: otel.LevelError, Kind: otel.KindAnalyzeError, Comp: "coord", RequestID: rid,
			Dur: dur, Err: err.Error(),
		})
		return
	}

	c.metrics.AnalysisDone(string(mode), "ok", dur)
	logging.Info("Analysis finished", "rid", rid, "results", count, "dur", dur.Round(time.Millisecond))
	c.events.Emit(otel.Event{
		Level: otel.LevelInfo, Kind: otel.KindAnalyzeComplete, Comp: "coord", RequestID: rid,
		Dur: dur, Count: count,
	})
}

// failureClass labels a provider error for metrics.
func failureClass(err error) string {
	var (
		authErr    *brain.AuthError
		timeoutErr *brain.TimeoutError
		httpErr    *brain.HTTPError
	)
	switch {
	case errors.Is(err, brain.ErrCircuitOpen):
		return "circuit_open"
	case errors.As(err, &authErr):
		return "auth"
	case errors.As(err, &timeoutErr):
		return "timeout"
	case errors.As(err, &httpErr) && httpErr.Status == 0:
		return "network"
	default:
		return "http"
	}
}

func failureStatus(err error) int {
	var (
		authErr *brain.AuthError
		httpErr *brain.HTTPError
	)
	switch {
	case errors.As(err, &authErr):
		return authErr.Status
	case errors.As(err, &httpErr):
		return httpErr.Status
	}
	return 0
}
