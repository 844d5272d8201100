package brain

import (
	"context"
	"time"

	"github.com/abelbrown/viralscope/internal/model"
)

// Provider is the adapter contract for one AI backend
type Provider interface {
	// Kind identifies the backend
	Kind() model.ProviderKind

	// Configured returns true if a credential is present
	Configured() bool

	// Analyze issues exactly one request. No retries happen here.
	Analyze(ctx context.Context, req Request) (RawResponse, error)

	// Normalize locates the answer text in the envelope and parses it
	Normalize(raw RawResponse, post model.Post) []model.CanonicalResult
}

// Request is a prompt request to an AI provider
type Request struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// RawResponse is a provider's undecoded reply
type RawResponse struct {
	Provider model.ProviderKind
	Model    string
	Status   int
	Body     []byte
	Latency  time.Duration
}
