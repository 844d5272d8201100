package source

import (
	"context"
	"fmt"

	"github.com/abelbrown/viralscope/internal/logging"
	"github.com/abelbrown/viralscope/internal/model"
	"github.com/abelbrown/viralscope/internal/otel"
)

// Fallback serves posts from a live source and substitutes demo posts when
// the live source is unavailable.
type Fallback struct {
	live   Source
	demo   Source
	events *otel.Logger
}

// NewFallback wraps live with demo. live may be nil, in which case demo
// posts are always served. events may be nil.
func NewFallback(live, demo Source, events *otel.Logger) *Fallback {
	return &Fallback{live: live, demo: demo, events: events}
}

func (f *Fallback) Name() string { return "fallback" }

func (f *Fallback) Posts(ctx context.Context, q Query) ([]model.Post, error) {
	posts, _, err := f.Fetch(ctx, q)
	return posts, err
}

// Fetch returns posts and whether they are synthetic.
func (f *Fallback) Fetch(ctx context.Context, q Query) ([]model.Post, bool, error) {
	if f.live != nil {
		posts, err := f.live.Posts(ctx, q)
		if err == nil {
			f.events.Emit(otel.Event{
				Level: otel.LevelInfo, Kind: otel.KindSourceFetch, Comp: "source",
				Count: len(posts), Msg: f.live.Name(),
			})
			return posts, false, nil
		}
		if !IsUnavailable(err) {
			return nil, false, err
		}
		logging.Warn("Live source unavailable, serving demo posts", "source", f.live.Name(), "error", err)
		f.events.Emit(otel.Event{
			Level: otel.LevelWarn, Kind: otel.KindSourceFallback, Comp: "source",
			Err: err.Error(),
		})
	}

	posts, err := f.demo.Posts(ctx, q)
	if err != nil {
		return nil, true, fmt.Errorf("demo posts: %w", err)
	}
	return posts, true, nil
}
