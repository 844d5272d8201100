package brain

import (
	"errors"
	"fmt"
	"time"

	"github.com/abelbrown/viralscope/internal/model"
)

var (
	// ErrNoProviderConfigured means no adapter has a credential
	ErrNoProviderConfigured = errors.New("no AI provider is configured")

	// ErrCircuitOpen means the router skipped a provider that keeps failing
	ErrCircuitOpen = errors.New("provider temporarily disabled after repeated failures")
)

// AuthError is a missing or rejected credential
type AuthError struct {
	Provider model.ProviderKind
	Status   int // 0 when no credential was configured
}

func (e *AuthError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: no API key configured", e.Provider)
	}
	return fmt.Sprintf("%s: credential rejected (status %d)", e.Provider, e.Status)
}

// HTTPError is a non-2xx status or a transport failure (Status 0)
type HTTPError struct {
	Provider model.ProviderKind
	Status   int
	Body     string
	Err      error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: request failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: API error (status %d): %s", e.Provider, e.Status, e.Body)
}

func (e *HTTPError) Unwrap() error { return e.Err }

// TimeoutError is a call that exceeded the per-provider timeout
type TimeoutError struct {
	Provider model.ProviderKind
	After    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: no response within %s", e.Provider, e.After)
}

// Timeout lets callers treat this like a net.Error timeout
func (e *TimeoutError) Timeout() bool { return true }

// Failure records one failed attempt during routing
type Failure struct {
	Provider model.ProviderKind
	Err      error
}

// AllProvidersFailedError is returned when every configured provider failed
type AllProvidersFailedError struct {
	Last     model.ProviderKind
	Err      error
	Failures []Failure
}

func (e *AllProvidersFailedError) Error() string {
	return fmt.Sprintf("all %d providers failed, last %s: %v", len(e.Failures), e.Last, e.Err)
}

func (e *AllProvidersFailedError) Unwrap() error { return e.Err }

// IsProviderFailure reports whether err is one of the adapter failure kinds
func IsProviderFailure(err error) bool {
	var (
		authErr    *AuthError
		httpErr    *HTTPError
		timeoutErr *TimeoutError
	)
	return errors.As(err, &authErr) || errors.As(err, &httpErr) ||
		errors.As(err, &timeoutErr) || errors.Is(err, ErrCircuitOpen)
}
