package brain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/abelbrown/viralscope/internal/logging"
	"github.com/abelbrown/viralscope/internal/model"
	"github.com/abelbrown/viralscope/internal/parse"
)

// Compile-time interface satisfaction check
var _ Provider = (*HTTPProvider)(nil)

// maxResponseBytes caps how much of a reply is read into memory
const maxResponseBytes = 4 << 20

// HTTPProvider is the adapter for every provider kind. Request shape and
// envelope extraction dispatch on the config's Kind.
type HTTPProvider struct {
	config ProviderConfig
	client *http.Client
}

// NewHTTPProvider creates a provider from config
func NewHTTPProvider(cfg ProviderConfig) *HTTPProvider {
	return &HTTPProvider{
		config: cfg,
		client: &http.Client{},
	}
}

// NewProviders builds one adapter per config
func NewProviders(configs []ProviderConfig) []Provider {
	providers := make([]Provider, 0, len(configs))
	for _, cfg := range configs {
		providers = append(providers, NewHTTPProvider(cfg))
	}
	return providers
}

func (p *HTTPProvider) Kind() model.ProviderKind {
	return p.config.Kind
}

func (p *HTTPProvider) Configured() bool {
	return p.config.IsConfigured()
}

// Model returns the configured model name
func (p *HTTPProvider) Model() string {
	return p.config.Model
}

func (p *HTTPProvider) Analyze(ctx context.Context, req Request) (RawResponse, error) {
	kind := p.config.Kind
	if !p.Configured() {
		logging.Warn("Provider not configured", "provider", kind)
		return RawResponse{}, &AuthError{Provider: kind}
	}

	body, err := p.buildBody(req)
	if err != nil {
		return RawResponse{}, err
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return RawResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.config.timeout())
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, p.requestURL(), bytes.NewReader(jsonBody))
	if err != nil {
		return RawResponse{}, &HTTPError{Provider: kind, Err: redactURL(err)}
	}
	p.setHeaders(httpReq)

	logging.Debug("Provider request", "provider", kind, "model", p.config.Model, "max_tokens", req.MaxTokens)

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return RawResponse{}, p.transportError(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return RawResponse{}, p.transportError(ctx, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		logging.Error("Credential rejected", "provider", kind, "status", resp.StatusCode)
		return RawResponse{}, &AuthError{Provider: kind, Status: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		snippet := truncate(string(respBody), 500)
		logging.Error("API error", "provider", kind, "status", resp.StatusCode, "body", snippet)
		return RawResponse{}, &HTTPError{Provider: kind, Status: resp.StatusCode, Body: snippet}
	}

	latency := time.Since(start)
	logging.Info("Provider response",
		"provider", kind,
		"model", p.config.Model,
		"bytes", len(respBody),
		"latency", latency.Round(time.Millisecond))

	return RawResponse{
		Provider: kind,
		Model:    p.config.Model,
		Status:   resp.StatusCode,
		Body:     respBody,
		Latency:  latency,
	}, nil
}

// Normalize extracts the answer text and hands it to the parser. An
// envelope that does not decode is parsed as-is so the raw body survives
// in fullResponse.
func (p *HTTPProvider) Normalize(raw RawResponse, post model.Post) []model.CanonicalResult {
	text, err := p.Text(raw)
	if err != nil {
		logging.Warn("Could not decode response envelope", "provider", p.config.Kind, "error", err)
		text = string(raw.Body)
	}
	return parse.Parse(text, post, p.config.Kind)
}

// Text locates the model's answer inside the provider envelope
func (p *HTTPProvider) Text(raw RawResponse) (string, error) {
	switch p.config.Kind {
	case model.ProviderOpenAI, model.ProviderGrok:
		return chatText(p.config, raw.Body)
	case model.ProviderClaude:
		return claudeText(p.config, raw.Body)
	case model.ProviderGemini:
		return geminiText(p.config, raw.Body)
	}
	return "", fmt.Errorf("unknown provider kind %q", p.config.Kind)
}

func (p *HTTPProvider) buildBody(req Request) (any, error) {
	switch p.config.Kind {
	case model.ProviderOpenAI, model.ProviderGrok:
		return buildChatBody(p.config, req), nil
	case model.ProviderClaude:
		return buildClaudeBody(p.config, req), nil
	case model.ProviderGemini:
		return buildGeminiBody(req), nil
	}
	return nil, fmt.Errorf("unknown provider kind %q", p.config.Kind)
}

func (p *HTTPProvider) requestURL() string {
	if p.config.Kind == model.ProviderGemini {
		return geminiURL(p.config)
	}
	return p.config.Endpoint
}

func (p *HTTPProvider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")

	switch p.config.Kind {
	case model.ProviderOpenAI, model.ProviderGrok:
		req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	case model.ProviderClaude:
		req.Header.Set("x-api-key", p.config.APIKey)
		req.Header.Set("anthropic-version", anthropicVersion)
	}
}

// transportError classifies a failed round trip. Cancellation of the
// caller's context is returned untouched so the router stops.
func (p *HTTPProvider) transportError(parent context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	err = redactURL(err)

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		logging.Warn("Provider timed out", "provider", p.config.Kind, "after", p.config.timeout())
		return &TimeoutError{Provider: p.config.Kind, After: p.config.timeout()}
	}

	logging.Error("Provider request failed", "provider", p.config.Kind, "error", err)
	return &HTTPError{Provider: p.config.Kind, Err: err}
}

// redactURL drops the request URL from transport errors; the Gemini URL
// carries the API key.
func redactURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}
