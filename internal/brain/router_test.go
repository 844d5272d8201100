package brain

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/abelbrown/viralscope/internal/config"
	"github.com/abelbrown/viralscope/internal/model"
	"github.com/abelbrown/viralscope/internal/parse"
)

// fakeProvider answers from memory and records what it was sent
type fakeProvider struct {
	kind       model.ProviderKind
	configured bool
	err        error
	text       string

	mu    sync.Mutex
	calls []Request
}

func (f *fakeProvider) Kind() model.ProviderKind { return f.kind }
func (f *fakeProvider) Configured() bool         { return f.configured }

func (f *fakeProvider) Analyze(ctx context.Context, req Request) (RawResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return RawResponse{}, err
	}
	if f.err != nil {
		return RawResponse{}, f.err
	}
	return RawResponse{Provider: f.kind, Model: string(f.kind) + "-model", Status: 200, Body: []byte(f.text)}, nil
}

func (f *fakeProvider) Normalize(raw RawResponse, post model.Post) []model.CanonicalResult {
	return parse.Parse(string(raw.Body), post, f.kind)
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func ok(kind model.ProviderKind) *fakeProvider {
	return &fakeProvider{kind: kind, configured: true, text: `{"whyViral":"from ` + string(kind) + `"}`}
}

func failing(kind model.ProviderKind, status int) *fakeProvider {
	return &fakeProvider{kind: kind, configured: true, err: &HTTPError{Provider: kind, Status: status}}
}

func newTestConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Providers.OpenAI = config.ProviderSettings{Enabled: true, APIKey: "sk-openai"}
	cfg.Providers.Claude = config.ProviderSettings{Enabled: false, APIKey: "sk-claude"}
	cfg.Providers.Gemini = config.ProviderSettings{Enabled: true, APIKey: "sk-gemini"}
	return cfg
}

func TestRouterFallsBackInPriorityOrder(t *testing.T) {
	openai := failing(model.ProviderOpenAI, 500)
	claude := failing(model.ProviderClaude, 503)
	gemini := ok(model.ProviderGemini)
	grok := ok(model.ProviderGrok)
	r := NewRouter(grok, gemini, claude, openai)

	out, err := r.Analyze(context.Background(), testRequest, "", testPost)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if out.Provider != model.ProviderGemini {
		t.Errorf("Provider = %s, want gemini", out.Provider)
	}
	if len(out.Failures) != 2 || out.Failures[0].Provider != model.ProviderOpenAI || out.Failures[1].Provider != model.ProviderClaude {
		t.Errorf("Failures = %+v", out.Failures)
	}
	if grok.callCount() != 0 {
		t.Error("grok should not be called after gemini succeeded")
	}
	if len(out.Results) != 1 || out.Results[0].Analysis.WhyViral != "from gemini" {
		t.Errorf("Results = %+v", out.Results)
	}
	if out.Model != "gemini-model" {
		t.Errorf("Model = %q", out.Model)
	}
}

func TestRouterSendsSameRequestToEveryProvider(t *testing.T) {
	openai := failing(model.ProviderOpenAI, 500)
	claude := ok(model.ProviderClaude)
	r := NewRouter(openai, claude)

	if _, err := r.Analyze(context.Background(), testRequest, "", testPost); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if openai.calls[0] != testRequest || claude.calls[0] != testRequest {
		t.Errorf("requests differ: %+v vs %+v", openai.calls[0], claude.calls[0])
	}
}

func TestRouterPreferredGoesFirst(t *testing.T) {
	openai := ok(model.ProviderOpenAI)
	grok := ok(model.ProviderGrok)
	r := NewRouter(openai, grok)

	out, err := r.Analyze(context.Background(), testRequest, model.ProviderGrok, testPost)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if out.Provider != model.ProviderGrok || openai.callCount() != 0 {
		t.Errorf("Provider = %s, openai calls = %d", out.Provider, openai.callCount())
	}
}

func TestRouterPlan(t *testing.T) {
	r := NewRouter(
		ok(model.ProviderOpenAI),
		&fakeProvider{kind: model.ProviderClaude},
		ok(model.ProviderGemini),
		ok(model.ProviderGrok),
	)

	tests := []struct {
		preferred model.ProviderKind
		want      []model.ProviderKind
	}{
		{"", []model.ProviderKind{model.ProviderOpenAI, model.ProviderGemini, model.ProviderGrok}},
		{model.ProviderGemini, []model.ProviderKind{model.ProviderGemini, model.ProviderOpenAI, model.ProviderGrok}},
		// unconfigured preference is ignored
		{model.ProviderClaude, []model.ProviderKind{model.ProviderOpenAI, model.ProviderGemini, model.ProviderGrok}},
	}

	for _, tt := range tests {
		got, err := r.Plan(tt.preferred)
		if err != nil {
			t.Fatalf("Plan(%q): %v", tt.preferred, err)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("Plan(%q) = %v, want %v", tt.preferred, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Plan(%q) = %v, want %v", tt.preferred, got, tt.want)
				break
			}
		}
	}
}

func TestRouterSkipsUnconfigured(t *testing.T) {
	claude := &fakeProvider{kind: model.ProviderClaude, text: "never"}
	gemini := ok(model.ProviderGemini)
	r := NewRouter(claude, gemini)

	out, err := r.Analyze(context.Background(), testRequest, "", testPost)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if claude.callCount() != 0 || out.Provider != model.ProviderGemini || len(out.Failures) != 0 {
		t.Errorf("claude calls = %d, provider = %s, failures = %v", claude.callCount(), out.Provider, out.Failures)
	}
}

func TestRouterAllProvidersFail(t *testing.T) {
	r := NewRouter(
		failing(model.ProviderOpenAI, 500),
		&fakeProvider{kind: model.ProviderClaude, configured: true, err: &AuthError{Provider: model.ProviderClaude, Status: 401}},
		&fakeProvider{kind: model.ProviderGrok, configured: true, err: &TimeoutError{Provider: model.ProviderGrok, After: time.Minute}},
	)

	_, err := r.Analyze(context.Background(), testRequest, "", testPost)
	var allErr *AllProvidersFailedError
	if !errors.As(err, &allErr) {
		t.Fatalf("err = %v, want AllProvidersFailedError", err)
	}
	if allErr.Last != model.ProviderGrok || len(allErr.Failures) != 3 {
		t.Errorf("Last = %s, failures = %d", allErr.Last, len(allErr.Failures))
	}
	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Error("last error should unwrap to the TimeoutError")
	}
}

func TestRouterNoProviderConfigured(t *testing.T) {
	r := NewRouter(&fakeProvider{kind: model.ProviderOpenAI})

	_, err := r.Analyze(context.Background(), testRequest, model.ProviderOpenAI, testPost)
	if !errors.Is(err, ErrNoProviderConfigured) {
		t.Errorf("err = %v, want ErrNoProviderConfigured", err)
	}
	if _, err := NewRouter().Plan(""); !errors.Is(err, ErrNoProviderConfigured) {
		t.Errorf("empty router: err = %v", err)
	}
}

func TestRouterEmptyResultsIsSuccess(t *testing.T) {
	openai := &fakeProvider{kind: model.ProviderOpenAI, configured: true, text: `{"results":[]}`}
	claude := ok(model.ProviderClaude)
	r := NewRouter(openai, claude)

	out, err := r.Analyze(context.Background(), testRequest, "", testPost)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if out.Provider != model.ProviderOpenAI || claude.callCount() != 0 {
		t.Errorf("Provider = %s, claude calls = %d", out.Provider, claude.callCount())
	}
}

func TestRouterStopsOnCancellation(t *testing.T) {
	openai := ok(model.ProviderOpenAI)
	r := NewRouter(openai)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Analyze(ctx, testRequest, "", testPost)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if openai.callCount() != 0 {
		t.Error("no provider should be called with a cancelled context")
	}
}

func TestRouterCircuitBreakerSkipsFailingProvider(t *testing.T) {
	openai := failing(model.ProviderOpenAI, 500)
	claude := ok(model.ProviderClaude)
	r := NewRouter(openai, claude)
	r.EnableCircuitBreakers(BreakerConfig{FailureThreshold: 1, Window: 1, Delay: time.Hour})

	if _, err := r.Analyze(context.Background(), testRequest, "", testPost); err != nil {
		t.Fatalf("first Analyze: %v", err)
	}
	out, err := r.Analyze(context.Background(), testRequest, "", testPost)
	if err != nil {
		t.Fatalf("second Analyze: %v", err)
	}

	if openai.callCount() != 1 {
		t.Errorf("openai calls = %d, want 1 (breaker open)", openai.callCount())
	}
	if len(out.Failures) != 1 || !errors.Is(out.Failures[0].Err, ErrCircuitOpen) {
		t.Errorf("Failures = %+v, want circuit open", out.Failures)
	}
	if out.Provider != model.ProviderClaude {
		t.Errorf("Provider = %s", out.Provider)
	}
}
