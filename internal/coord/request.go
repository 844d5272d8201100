package coord

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/abelbrown/viralscope/internal/model"
	"github.com/abelbrown/viralscope/internal/source"
)

const (
	// MaxPosts caps posts per analysis request.
	MaxPosts = 20

	// DefaultPosts is used when a query gives no limit.
	DefaultPosts = 5

	maxNicheLen = 64
)

// Request asks for an analysis. When Posts is non-empty the source is
// skipped and those posts are analyzed as given.
type Request struct {
	Niche    string       `json:"niche"`
	Platform string       `json:"platform"`
	Limit    int          `json:"limit"`
	Mode     string       `json:"mode"`
	Provider string       `json:"provider"`
	Posts    []model.Post `json:"posts"`
}

// validated is a Request after parsing.
type validated struct {
	query     source.Query
	mode      model.AnalysisMode
	preferred model.ProviderKind
	posts     []model.Post
}

func validateRequest(req Request, maxPosts int) (validated, error) {
	var v validated

	mode, ok := model.ParseAnalysisMode(req.Mode)
	if !ok {
		return v, invalid("mode", "must be full or quick, got %q", req.Mode)
	}
	v.mode = mode

	if strings.TrimSpace(req.Provider) != "" {
		kind, ok := model.ParseProviderKind(req.Provider)
		if !ok {
			return v, invalid("provider", "unknown provider %q", req.Provider)
		}
		v.preferred = kind
	}

	if len(req.Posts) > 0 {
		if len(req.Posts) > maxPosts {
			return v, invalid("posts", "at most %d posts per request", maxPosts)
		}
		v.posts = make([]model.Post, len(req.Posts))
		for i, p := range req.Posts {
			if strings.TrimSpace(p.Title) == "" {
				return v, invalid(fmt.Sprintf("posts[%d].title", i), "required")
			}
			if p.ID == "" {
				p.ID = uuid.NewString()
			}
			v.posts[i] = p.Normalized()
		}
		return v, nil
	}

	q, err := validateQuery(req.Niche, req.Platform, req.Limit, maxPosts)
	if err != nil {
		return v, err
	}
	v.query = q
	return v, nil
}

// validateQuery checks a post query.
func validateQuery(niche, platform string, limit, maxPosts int) (source.Query, error) {
	var q source.Query

	niche = strings.ToLower(strings.TrimSpace(niche))
	if niche == "" {
		return q, invalid("niche", "required")
	}
	if utf8.RuneCountInString(niche) > maxNicheLen {
		return q, invalid("niche", "at most %d characters", maxNicheLen)
	}
	q.Niche = niche

	if strings.TrimSpace(platform) != "" {
		p, ok := model.ParsePlatform(platform)
		if !ok {
			return q, invalid("platform", "unknown platform %q", platform)
		}
		q.Platform = p
	}

	switch {
	case limit == 0:
		q.Limit = min(DefaultPosts, maxPosts)
	case limit < 1 || limit > maxPosts:
		return q, invalid("limit", "must be between 1 and %d", maxPosts)
	default:
		q.Limit = limit
	}
	return q, nil
}
