package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"idscore/internal/training/models"
)

// DefaultKey is the well-known key of the training history list.
const DefaultKey = "markov:training:history"

// RedisStore keeps history as a Redis list, newest at the head, trimmed to
// the cap on every append.
type RedisStore struct {
	client *redis.Client
	key    string
	limit  int
}

func NewRedis(client *redis.Client, limit int) *RedisStore {
	if limit <= 0 {
		limit = models.DefaultConfig().HistoryLimit
	}
	return &RedisStore{client: client, key: DefaultKey, limit: limit}
}

func (s *RedisStore) Append(ctx context.Context, entry models.HistoryEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, s.key, raw)
		pipe.LTrim(ctx, s.key, 0, int64(s.limit-1))
		return nil
	})
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (s *RedisStore) Recent(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}
	raws, err := s.client.LRange(ctx, s.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	out := make([]models.HistoryEntry, 0, len(raws))
	for _, raw := range raws {
		var e models.HistoryEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}
