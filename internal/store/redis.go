package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/abelbrown/viralscope/internal/logging"
)

// Compile-time interface satisfaction check
var _ SavedStore = (*RedisSaved)(nil)

// RedisSaved keeps each saved item under its own key with a native TTL:
// viralscope:saved:<user>:<id>.
type RedisSaved struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisSaved returns a Redis-backed saved-items store. ttl <= 0 uses
// DefaultSavedTTL.
func NewRedisSaved(client goredis.UniversalClient, ttl time.Duration) *RedisSaved {
	if ttl <= 0 {
		ttl = DefaultSavedTTL
	}
	return &RedisSaved{client: client, prefix: "viralscope:saved:", ttl: ttl, now: time.Now}
}

func (r *RedisSaved) key(user, id string) string {
	return r.prefix + user + ":" + id
}

func (r *RedisSaved) Save(ctx context.Context, user string, item SavedItem) (SavedItem, error) {
	if err := validKey(user, item.ID); err != nil {
		return SavedItem{}, err
	}
	now := r.now()
	item.SavedAt = now.UTC()
	item.ExpiresAt = now.Add(r.ttl).UTC()

	data, err := json.Marshal(item)
	if err != nil {
		return SavedItem{}, fmt.Errorf("encode item: %w", err)
	}
	if err := r.client.Set(ctx, r.key(user, item.ID), data, r.ttl).Err(); err != nil {
		return SavedItem{}, fmt.Errorf("save item: %w", err)
	}
	return item, nil
}

func (r *RedisSaved) List(ctx context.Context, user string) ([]SavedItem, error) {
	if err := validKey(user, "list"); err != nil {
		return nil, err
	}

	items := []SavedItem{}
	pattern := r.prefix + user + ":*"
	cursor := uint64(0)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}

		for _, key := range keys {
			value, err := r.client.Get(ctx, key).Result()
			if errors.Is(err, goredis.Nil) {
				continue // expired between SCAN and GET
			}
			if err != nil {
				return nil, err
			}
			var item SavedItem
			if err := json.Unmarshal([]byte(value), &item); err != nil {
				logging.Warn("Skipping undecodable saved item", "key", key, "error", err)
				continue
			}
			items = append(items, item)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].SavedAt.After(items[j].SavedAt)
	})
	return items, nil
}

func (r *RedisSaved) Delete(ctx context.Context, user, id string) error {
	if err := validKey(user, id); err != nil {
		return err
	}
	n, err := r.client.Del(ctx, r.key(user, id)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
