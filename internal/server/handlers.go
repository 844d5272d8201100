package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abelbrown/viralscope/internal/coord"
	"github.com/abelbrown/viralscope/internal/model"
	"github.com/abelbrown/viralscope/internal/otel"
	"github.com/abelbrown/viralscope/internal/store"
)

// Analyzer is the coordinator surface the handlers use.
type Analyzer interface {
	Analyze(ctx context.Context, req coord.Request) (*coord.Response, error)
	Posts(ctx context.Context, niche, platform string, limit int) ([]model.Post, bool, error)
	Providers() []model.ProviderKind
}

// History reads persisted analyses.
type History interface {
	Analyses(postID string, limit int) ([]store.AnalysisRecord, error)
}

const maxEventsReturned = 500

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"version":   s.cfg.Version,
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"providers": len(s.analyzer.Providers()),
	})
}

func (s *Server) providers(c *gin.Context) {
	configured := s.analyzer.Providers()
	names := make([]string, 0, len(configured))
	for _, k := range configured {
		names = append(names, string(k))
	}
	c.JSON(http.StatusOK, gin.H{
		"providers": names,
		"priority":  model.PriorityOrder,
	})
}

func (s *Server) posts(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(c, &coord.ValidationError{Field: "limit", Reason: "must be a number"})
			return
		}
		limit = n
	}

	posts, demo, err := s.analyzer.Posts(c.Request.Context(), c.Query("niche"), c.Query("platform"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if posts == nil {
		posts = []model.Post{}
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts, "demo": demo})
}

func (s *Server) analyze(c *gin.Context) {
	var req coord.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, &coord.ValidationError{Field: "body", Reason: "invalid JSON: " + err.Error()})
		return
	}

	resp, err := s.analyzer.Analyze(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) analyses(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusOK, gin.H{"analyses": []store.AnalysisRecord{}})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	records, err := s.history.Analyses(c.Param("postId"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if records == nil {
		records = []store.AnalysisRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"analyses": records})
}

func (s *Server) listSaved(c *gin.Context) {
	if !s.savedEnabled(c) {
		return
	}
	items, err := s.saved.List(c.Request.Context(), c.Param("user"))
	if err != nil {
		writeError(c, err)
		return
	}
	if items == nil {
		items = []store.SavedItem{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) save(c *gin.Context) {
	if !s.savedEnabled(c) {
		return
	}
	var item store.SavedItem
	if err := c.ShouldBindJSON(&item); err != nil {
		writeError(c, &coord.ValidationError{Field: "body", Reason: "invalid JSON: " + err.Error()})
		return
	}
	saved, err := s.saved.Save(c.Request.Context(), c.Param("user"), item)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (s *Server) deleteSaved(c *gin.Context) {
	if !s.savedEnabled(c) {
		return
	}
	if err := s.saved.Delete(c.Request.Context(), c.Param("user"), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) savedEnabled(c *gin.Context) bool {
	if s.saved != nil {
		return true
	}
	c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"error": "saved_items_disabled"})
	return false
}

func (s *Server) listEvents(c *gin.Context) {
	if s.ring == nil {
		c.JSON(http.StatusOK, gin.H{"events": []otel.Event{}})
		return
	}
	n, _ := strconv.Atoi(c.DefaultQuery("n", "100"))
	if n <= 0 || n > maxEventsReturned {
		n = maxEventsReturned
	}
	events := s.ring.Filter(c.Query("kind"), n)
	if events == nil {
		events = []otel.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "stats": s.ring.Stats()})
}
