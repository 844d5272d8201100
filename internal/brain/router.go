package brain

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"

	"github.com/abelbrown/viralscope/internal/logging"
	"github.com/abelbrown/viralscope/internal/model"
)

// Outcome is a successful routed call
type Outcome struct {
	Provider model.ProviderKind
	Model    string
	Results  []model.CanonicalResult
	Raw      RawResponse
	Failures []Failure // providers that failed before this one
}

// BreakerConfig configures the optional per-provider circuit breakers
type BreakerConfig struct {
	FailureThreshold uint          // failures within Window that open the breaker
	Window           uint          // executions considered
	Delay            time.Duration // how long the breaker stays open
}

// DefaultBreakerConfig opens after 5 of the last 10 calls fail
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 5, Window: 10, Delay: 2 * time.Minute}
}

// Router picks providers in preference order and falls back on failure.
// Attempts are sequential; the first success wins.
type Router struct {
	mu        sync.RWMutex
	providers map[model.ProviderKind]Provider
	breakers  map[model.ProviderKind]circuitbreaker.CircuitBreaker[any]
}

// NewRouter creates a router over the given adapters
func NewRouter(providers ...Provider) *Router {
	r := &Router{
		providers: make(map[model.ProviderKind]Provider),
	}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces the adapter for p's kind
func (r *Router) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Kind()] = p
	logging.Debug("Registered provider", "provider", p.Kind(), "configured", p.Configured())
}

// EnableCircuitBreakers wraps each registered provider in a breaker so a
// provider that keeps failing is skipped for a while.
func (r *Router) EnableCircuitBreakers(cfg BreakerConfig) {
	if cfg.Window == 0 {
		cfg = DefaultBreakerConfig()
	}
	if cfg.FailureThreshold == 0 || cfg.FailureThreshold > cfg.Window {
		cfg.FailureThreshold = cfg.Window
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.breakers = make(map[model.ProviderKind]circuitbreaker.CircuitBreaker[any], len(r.providers))
	for kind := range r.providers {
		r.breakers[kind] = circuitbreaker.NewBuilder[any]().
			HandleIf(func(_ any, err error) bool { return IsProviderFailure(err) }).
			WithFailureThresholdRatio(cfg.FailureThreshold, cfg.Window).
			WithDelay(cfg.Delay).
			WithSuccessThreshold(1).
			OnStateChanged(func(event circuitbreaker.StateChangedEvent) {
				logging.Warn("Circuit breaker state change",
					"provider", kind,
					"from_state", event.OldState,
					"to_state", event.NewState)
			}).
			Build()
	}
}

// Configured lists providers with credentials, in priority order
func (r *Router) Configured() []model.ProviderKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var kinds []model.ProviderKind
	for _, kind := range model.PriorityOrder {
		if p, ok := r.providers[kind]; ok && p.Configured() {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

// Plan returns the attempt order. A configured preferred provider goes
// first; the rest follow priority order. An unconfigured preference is
// ignored.
func (r *Router) Plan(preferred model.ProviderKind) ([]model.ProviderKind, error) {
	configured := r.Configured()
	if len(configured) == 0 {
		return nil, ErrNoProviderConfigured
	}

	order := make([]model.ProviderKind, 0, len(configured))
	for _, kind := range configured {
		if kind == preferred {
			order = append(order, kind)
		}
	}
	if preferred != "" && len(order) == 0 {
		logging.Warn("Preferred provider not configured, using priority order", "preferred", preferred)
	}
	for _, kind := range configured {
		if kind != preferred {
			order = append(order, kind)
		}
	}
	return order, nil
}

// Analyze sends req to providers in plan order until one succeeds. The
// same request goes to every provider. A successful call with zero parsed
// results is still a success.
func (r *Router) Analyze(ctx context.Context, req Request, preferred model.ProviderKind, post model.Post) (*Outcome, error) {
	order, err := r.Plan(preferred)
	if err != nil {
		return nil, err
	}

	var failures []Failure
	for i, kind := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p := r.provider(kind)
		raw, err := r.call(ctx, p, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failures = append(failures, Failure{Provider: kind, Err: err})
			if i < len(order)-1 {
				logging.Warn("Provider failed, falling back", "provider", kind, "next", order[i+1], "error", err)
			}
			continue
		}

		results := p.Normalize(raw, post)
		logging.Info("Analysis complete", "provider", kind, "post", post.ID, "results", len(results), "fallbacks", len(failures))
		return &Outcome{
			Provider: kind,
			Model:    raw.Model,
			Results:  results,
			Raw:      raw,
			Failures: failures,
		}, nil
	}

	last := failures[len(failures)-1]
	logging.Error("All providers failed", "attempts", len(failures), "last", last.Provider, "error", last.Err)
	return nil, &AllProvidersFailedError{Last: last.Provider, Err: last.Err, Failures: failures}
}

func (r *Router) provider(kind model.ProviderKind) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[kind]
}

func (r *Router) breaker(kind model.ProviderKind) circuitbreaker.CircuitBreaker[any] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.breakers == nil {
		return nil
	}
	return r.breakers[kind]
}

func (r *Router) call(ctx context.Context, p Provider, req Request) (RawResponse, error) {
	cb := r.breaker(p.Kind())
	if cb == nil {
		return p.Analyze(ctx, req)
	}

	res, err := failsafe.With(cb).Get(func() (any, error) {
		return p.Analyze(ctx, req)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return RawResponse{}, ErrCircuitOpen
	}
	if err != nil {
		return RawResponse{}, err
	}
	raw, _ := res.(RawResponse)
	return raw, nil
}
