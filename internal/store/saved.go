package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultSavedTTL is how long a saved item lives.
const DefaultSavedTTL = 30 * 24 * time.Hour

var (
	// ErrNotFound means the user has no saved item with that id.
	ErrNotFound = errors.New("saved item not found")

	// ErrInvalidKey means a user or item id is empty or malformed.
	ErrInvalidKey = errors.New("user and item id are required")
)

// SavedItem is something a user bookmarked: a post or an analysis.
type SavedItem struct {
	ID        string          `json:"id"`
	Title     string          `json:"title,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	SavedAt   time.Time       `json:"savedAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// SavedStore is a per-user key-value store with TTL eviction.
type SavedStore interface {
	Save(ctx context.Context, user string, item SavedItem) (SavedItem, error)
	List(ctx context.Context, user string) ([]SavedItem, error)
	Delete(ctx context.Context, user, id string) error
}

func validKey(user, id string) error {
	if strings.TrimSpace(user) == "" || strings.TrimSpace(id) == "" || strings.ContainsAny(user+id, ":*?[]") {
		return ErrInvalidKey
	}
	return nil
}

// Compile-time interface satisfaction check
var _ SavedStore = (*SQLiteSaved)(nil)

// SQLiteSaved keeps saved items in the analyses database. Expired rows
// are hidden on read and removed by Purge.
type SQLiteSaved struct {
	store *Store
	ttl   time.Duration
}

// NewSQLiteSaved returns a saved-items store. ttl <= 0 uses DefaultSavedTTL.
func NewSQLiteSaved(s *Store, ttl time.Duration) *SQLiteSaved {
	if ttl <= 0 {
		ttl = DefaultSavedTTL
	}
	return &SQLiteSaved{store: s, ttl: ttl}
}

// Save inserts or replaces the item and restarts its TTL.
func (s *SQLiteSaved) Save(ctx context.Context, user string, item SavedItem) (SavedItem, error) {
	if err := validKey(user, item.ID); err != nil {
		return SavedItem{}, err
	}
	if len(item.Payload) == 0 {
		item.Payload = json.RawMessage("null")
	}

	now := s.store.now()
	item.SavedAt = now.UTC()
	item.ExpiresAt = now.Add(s.ttl).UTC()

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	_, err := s.store.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO saved_items (user_id, item_id, title, payload, saved_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, user, item.ID, item.Title, string(item.Payload), item.SavedAt.UnixNano(), item.ExpiresAt.UnixNano())
	if err != nil {
		return SavedItem{}, fmt.Errorf("save item: %w", err)
	}
	return item, nil
}

// List returns the user's live items, newest first.
func (s *SQLiteSaved) List(ctx context.Context, user string) ([]SavedItem, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT item_id, title, payload, saved_at, expires_at
		FROM saved_items
		WHERE user_id = ? AND expires_at > ?
		ORDER BY saved_at DESC
	`, user, s.store.now().UnixNano())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []SavedItem{}
	for rows.Next() {
		var (
			item           SavedItem
			payload        string
			saved, expires int64
		)
		if err := rows.Scan(&item.ID, &item.Title, &payload, &saved, &expires); err != nil {
			return nil, err
		}
		item.Payload = json.RawMessage(payload)
		item.SavedAt = time.Unix(0, saved).UTC()
		item.ExpiresAt = time.Unix(0, expires).UTC()
		items = append(items, item)
	}
	return items, rows.Err()
}

// Delete removes one item. Expired items count as missing.
func (s *SQLiteSaved) Delete(ctx context.Context, user, id string) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	res, err := s.store.db.ExecContext(ctx,
		"DELETE FROM saved_items WHERE user_id = ? AND item_id = ? AND expires_at > ?",
		user, id, s.store.now().UnixNano())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Purge deletes expired rows and returns how many were removed.
func (s *SQLiteSaved) Purge(ctx context.Context) (int64, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	res, err := s.store.db.ExecContext(ctx, "DELETE FROM saved_items WHERE expires_at <= ?", s.store.now().UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
