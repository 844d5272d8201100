package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/abelbrown/viralscope/internal/model"
)

// AnalysisRecord is one persisted canonical result.
type AnalysisRecord struct {
	ID        string                `json:"id"`
	PostID    string                `json:"postId"`
	Provider  model.ProviderKind    `json:"provider"`
	Model     string                `json:"model"`
	ParseMode model.ParseMode       `json:"parseMode"`
	Result    model.CanonicalResult `json:"result"`
	CreatedAt time.Time             `json:"createdAt"`
}

// SaveAnalyses stores results, returning the count of new rows.
// Results already stored (by id) are ignored.
// Thread-safe: acquires write lock.
func (s *Store) SaveAnalyses(modelName string, results []model.CanonicalResult) (int, error) {
	if len(results) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO analyses (
			id, post_id, provider, model, parse_mode, title, result, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	newCount := 0
	for _, r := range results {
		data, err := json.Marshal(r)
		if err != nil {
			return 0, fmt.Errorf("encode result %s: %w", r.ID, err)
		}
		created := r.Timestamp
		if created.IsZero() {
			created = s.now()
		}

		res, err := stmt.Exec(r.ID, r.PostID, string(r.Provider), modelName,
			string(r.ParseMode), r.Title, string(data), created.UnixNano())
		if err != nil {
			return 0, err
		}
		if affected, _ := res.RowsAffected(); affected > 0 {
			newCount++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return newCount, nil
}

// Analyses returns stored results for a post, newest first.
// Thread-safe: acquires read lock.
func (s *Store) Analyses(postID string, limit int) ([]AnalysisRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, post_id, provider, model, parse_mode, result, created_at
		FROM analyses
		WHERE post_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, postID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []AnalysisRecord
	for rows.Next() {
		var (
			rec      AnalysisRecord
			provider string
			mode     string
			data     string
			created  int64
		)
		if err := rows.Scan(&rec.ID, &rec.PostID, &provider, &rec.Model, &mode, &data, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &rec.Result); err != nil {
			return nil, fmt.Errorf("decode result %s: %w", rec.ID, err)
		}
		rec.Provider = model.ProviderKind(provider)
		rec.ParseMode = model.ParseMode(mode)
		rec.CreatedAt = time.Unix(0, created).UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}

// AnalysisCount returns the total number of stored results.
func (s *Store) AnalysisCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM analyses").Scan(&n)
	return n, err
}
