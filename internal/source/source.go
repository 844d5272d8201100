// Package source supplies viral post records, either from live channel
// feeds or from a seeded demo generator.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/abelbrown/viralscope/internal/model"
)

// DefaultLimit is used when a query does not set one.
const DefaultLimit = 10

// Query selects posts.
type Query struct {
	Niche    string
	Platform model.Platform // empty means any
	Limit    int
}

func (q Query) limit() int {
	if q.Limit > 0 {
		return q.Limit
	}
	return DefaultLimit
}

// Source produces posts for a query.
type Source interface {
	Name() string
	Posts(ctx context.Context, q Query) ([]model.Post, error)
}

var (
	// ErrPlatformUnsupported means the source has no integration for the platform.
	ErrPlatformUnsupported = errors.New("platform not supported by this source")

	// ErrNoFeeds means no feed URLs are configured for the niche.
	ErrNoFeeds = errors.New("no feeds configured")

	// ErrNoPosts means the upstream answered but returned nothing usable.
	ErrNoPosts = errors.New("upstream returned no posts")
)

// SourceUnavailableError is a recoverable upstream failure. Callers may
// substitute demo posts.
type SourceUnavailableError struct {
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err is a SourceUnavailableError.
func IsUnavailable(err error) bool {
	var unavailable *SourceUnavailableError
	return errors.As(err, &unavailable)
}
