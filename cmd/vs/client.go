package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/abelbrown/viralscope/internal/coord"
	"github.com/abelbrown/viralscope/internal/logging"
	"github.com/abelbrown/viralscope/internal/model"
	"github.com/abelbrown/viralscope/internal/store"
)

// apiClient talks to a viralscope server.
type apiClient struct {
	base string
	http *http.Client
}

// apiError is the error body every non-2xx response carries.
type apiError struct {
	Status     int    `json:"-"`
	Code       string `json:"error"`
	Message    string `json:"message"`
	Field      string `json:"field"`
	RetryAfter int    `json:"retryAfter"`
}

func (e *apiError) Error() string {
	msg := e.Code
	if e.Message != "" {
		msg = e.Message
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(" (retry in %ds)", e.RetryAfter)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, msg)
}

func newAPIClient(base string) *apiClient {
	return &apiClient{
		base: strings.TrimRight(base, "/"),
		// analysis walks the whole fallback chain; allow for it
		http: &http.Client{Timeout: 5 * time.Minute},
	}
}

type postsResponse struct {
	Posts []model.Post `json:"posts"`
	Demo  bool         `json:"demo"`
}

type providersResponse struct {
	Providers []string `json:"providers"`
	Priority  []string `json:"priority"`
}

type analysesResponse struct {
	Analyses []store.AnalysisRecord `json:"analyses"`
}

func (c *apiClient) Analyze(ctx context.Context, req coord.Request) (*coord.Response, []byte, error) {
	var out coord.Response
	raw, err := c.do(ctx, http.MethodPost, "/api/analyze", req, &out)
	if err != nil {
		return nil, nil, err
	}
	return &out, raw, nil
}

func (c *apiClient) Posts(ctx context.Context, niche, platform string, limit int) (*postsResponse, []byte, error) {
	q := url.Values{}
	q.Set("niche", niche)
	if platform != "" {
		q.Set("platform", platform)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	var out postsResponse
	raw, err := c.do(ctx, http.MethodGet, "/api/posts?"+q.Encode(), nil, &out)
	if err != nil {
		return nil, nil, err
	}
	return &out, raw, nil
}

func (c *apiClient) Providers(ctx context.Context) (*providersResponse, []byte, error) {
	var out providersResponse
	raw, err := c.do(ctx, http.MethodGet, "/api/providers", nil, &out)
	if err != nil {
		return nil, nil, err
	}
	return &out, raw, nil
}

func (c *apiClient) History(ctx context.Context, postID string, limit int) (*analysesResponse, []byte, error) {
	path := "/api/analyses/" + url.PathEscape(postID)
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	var out analysesResponse
	raw, err := c.do(ctx, http.MethodGet, path, nil, &out)
	if err != nil {
		return nil, nil, err
	}
	return &out, raw, nil
}

// do sends body as JSON (when non-nil) and decodes a 2xx reply into out.
// The raw reply is returned for --json output.
func (c *apiClient) do(ctx context.Context, method, path string, body, out any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logging.Error("API request failed", "method", method, "path", path, "error", err)
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	logging.Debug("API response", "method", method, "path", path, "status", resp.StatusCode,
		"latency", time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode}
		_ = json.Unmarshal(raw, apiErr)
		return nil, apiErr
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}
	return raw, nil
}
