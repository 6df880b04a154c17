package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"idscore/internal/experiment/models"
	"idscore/pkg/platform/sentinel"
)

// Well-known keys of the experiment config and the promotion history.
const (
	ActiveKey  = "markov:experiment:active"
	HistoryKey = "markov:experiment:history"
)

// createScript stores the new config unless the stored one is enabled.
var createScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current then
	local ok, decoded = pcall(cjson.decode, current)
	if ok and decoded["enabled"] == true then
		return 0
	end
end
redis.call("SET", KEYS[1], ARGV[1])
return 1
`)

// RedisStore keeps the experiment as a JSON string and promotions as a
// capped list, newest at the head.
type RedisStore struct {
	client *redis.Client
	limit  int
}

func NewRedis(client *redis.Client, historyLimit int) *RedisStore {
	if historyLimit <= 0 {
		historyLimit = models.DefaultConfig().PromotionHistory
	}
	return &RedisStore{client: client, limit: historyLimit}
}

func (s *RedisStore) Current(ctx context.Context) (*models.Experiment, error) {
	raw, err := s.client.Get(ctx, ActiveKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get experiment: %w", err)
	}
	var exp models.Experiment
	if err := json.Unmarshal(raw, &exp); err != nil {
		return nil, fmt.Errorf("decode experiment: %w", err)
	}
	return &exp, nil
}

func (s *RedisStore) Create(ctx context.Context, exp models.Experiment) error {
	raw, err := json.Marshal(exp)
	if err != nil {
		return fmt.Errorf("encode experiment: %w", err)
	}
	created, err := createScript.Run(ctx, s.client, []string{ActiveKey}, raw).Int()
	if err != nil {
		return fmt.Errorf("create experiment: %w", err)
	}
	if created == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *RedisStore) Save(ctx context.Context, exp models.Experiment) error {
	raw, err := json.Marshal(exp)
	if err != nil {
		return fmt.Errorf("encode experiment: %w", err)
	}
	if err := s.client.Set(ctx, ActiveKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("save experiment: %w", err)
	}
	return nil
}

func (s *RedisStore) AppendPromotion(ctx context.Context, rec models.PromotionRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode promotion: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, HistoryKey, raw)
		pipe.LTrim(ctx, HistoryKey, 0, int64(s.limit-1))
		return nil
	})
	if err != nil {
		return fmt.Errorf("append promotion: %w", err)
	}
	return nil
}

func (s *RedisStore) Promotions(ctx context.Context, limit int) ([]models.PromotionRecord, error) {
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}
	raws, err := s.client.LRange(ctx, HistoryKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read promotions: %w", err)
	}
	out := make([]models.PromotionRecord, 0, len(raws))
	for _, raw := range raws {
		var rec models.PromotionRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode promotion: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}
