package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/abelbrown/viralscope/internal/logging"
	"github.com/abelbrown/viralscope/internal/model"
)

// FeedConfig configures the live feed source.
type FeedConfig struct {
	// Feeds maps a niche to channel feed URLs. The "default" key is used
	// for niches without their own list.
	Feeds map[string][]string

	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultFeedConfig returns production retry settings.
func DefaultFeedConfig(feeds map[string][]string) FeedConfig {
	return FeedConfig{
		Feeds:      feeds,
		Timeout:    15 * time.Second,
		MaxRetries: 2,
		BaseDelay:  200 * time.Millisecond,
		MaxDelay:   2 * time.Second,
	}
}

// Feed reads YouTube channel Atom feeds. View and like counts come from
// the media:community block.
type Feed struct {
	feeds    map[string][]string
	client   *http.Client
	executor failsafe.Executor[*http.Response]
}

// NewFeed creates a live feed source.
func NewFeed(cfg FeedConfig) *Feed {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 200 * time.Millisecond
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}

	retry := retrypolicy.NewBuilder[*http.Response]().
		HandleIf(func(_ *http.Response, err error) bool { return shouldRetry(err) }).
		WithBackoff(cfg.BaseDelay, cfg.MaxDelay).
		WithMaxRetries(cfg.MaxRetries).
		WithJitterFactor(0.1).
		Build()

	return &Feed{
		feeds:    cfg.Feeds,
		client:   &http.Client{Timeout: cfg.Timeout},
		executor: failsafe.With(retry),
	}
}

func (f *Feed) Name() string { return "feed" }

// Posts fetches every feed configured for the niche and returns the most
// viewed entries. Individual feed failures are tolerated as long as one
// feed answers.
func (f *Feed) Posts(ctx context.Context, q Query) ([]model.Post, error) {
	if q.Platform != "" && q.Platform != model.PlatformYouTube {
		return nil, &SourceUnavailableError{Source: f.Name(), Err: ErrPlatformUnsupported}
	}

	urls := f.feeds[strings.ToLower(strings.TrimSpace(q.Niche))]
	if len(urls) == 0 {
		urls = f.feeds["default"]
	}
	if len(urls) == 0 {
		return nil, &SourceUnavailableError{Source: f.Name(), Err: ErrNoFeeds}
	}

	var (
		posts   []model.Post
		seen    = make(map[string]bool)
		lastErr error
	)
	for _, url := range urls {
		got, err := f.fetch(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logging.Warn("Feed fetch failed", "url", url, "error", err)
			lastErr = err
			continue
		}
		for _, p := range got {
			if !seen[p.ID] {
				seen[p.ID] = true
				posts = append(posts, p)
			}
		}
	}

	if len(posts) == 0 {
		if lastErr == nil {
			lastErr = ErrNoPosts
		}
		return nil, &SourceUnavailableError{Source: f.Name(), Err: lastErr}
	}

	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Metrics.Views > posts[j].Metrics.Views
	})
	if len(posts) > q.limit() {
		posts = posts[:q.limit()]
	}
	return posts, nil
}

func (f *Feed) fetch(ctx context.Context, url string) ([]model.Post, error) {
	resp, err := f.executor.WithContext(ctx).Get(func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, &statusError{err: err}
		}
		req.Header.Set("User-Agent", "viralscope/1.0")

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil, &statusError{status: resp.StatusCode}
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	posts := make([]model.Post, 0, len(feed.Items))
	now := time.Now()
	for _, item := range feed.Items {
		posts = append(posts, convertFeedItem(item, feed, now))
	}
	return posts, nil
}

// statusError is a non-200 reply or an unbuildable request.
type statusError struct {
	status int
	err    error
}

func (e *statusError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("HTTP error: %d %s", e.status, http.StatusText(e.status))
}

func (e *statusError) Unwrap() error { return e.err }

// shouldRetry retries network errors, 5xx and 429. Cancellation and other
// statuses are final.
func shouldRetry(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.status == http.StatusTooManyRequests || se.status >= 500
	}
	return true
}

// convertFeedItem maps one Atom entry to a Post.
func convertFeedItem(item *gofeed.Item, feed *gofeed.Feed, fetchTime time.Time) model.Post {
	published := fetchTime
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	author := feed.Title
	if item.Author != nil && item.Author.Name != "" {
		author = item.Author.Name
	}

	id := extValue(item.Extensions, "yt", "videoId")
	if id == "" {
		id = item.GUID
	}
	if id == "" {
		id = item.Link
	}

	group := extChild(item.Extensions["media"]["group"])
	description := item.Description
	if description == "" {
		description = childValue(group, "description")
	}

	thumbnail := ""
	if item.Image != nil {
		thumbnail = item.Image.URL
	}
	if thumbnail == "" {
		thumbnail = childAttr(group, "thumbnail", "url")
	}

	var metrics model.Metrics
	if community := extChild(group["community"]); community != nil {
		metrics.Views = parseCount(childAttr(community, "statistics", "views"))
		metrics.Likes = parseCount(childAttr(community, "starRating", "count"))
	}

	post := model.Post{
		ID:           id,
		Platform:     model.PlatformYouTube,
		Title:        item.Title,
		Description:  description,
		URL:          item.Link,
		ThumbnailURL: thumbnail,
		Author:       author,
		PublishedAt:  published.UTC(),
		Metrics:      metrics,
	}
	return post.Normalized()
}

func extValue(exts ext.Extensions, ns, name string) string {
	if list := exts[ns][name]; len(list) > 0 {
		return strings.TrimSpace(list[0].Value)
	}
	return ""
}

// extChild returns the children of the first extension in list.
func extChild(list []ext.Extension) map[string][]ext.Extension {
	if len(list) == 0 {
		return nil
	}
	return list[0].Children
}

func childValue(children map[string][]ext.Extension, name string) string {
	if list := children[name]; len(list) > 0 {
		return strings.TrimSpace(list[0].Value)
	}
	return ""
}

func childAttr(children map[string][]ext.Extension, name, attr string) string {
	if list := children[name]; len(list) > 0 {
		return list[0].Attrs[attr]
	}
	return ""
}

func parseCount(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
