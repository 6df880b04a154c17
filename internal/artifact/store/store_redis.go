package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"idscore/internal/artifact"
	"idscore/pkg/platform/sentinel"
)

const (
	fieldData = "data"
	fieldMeta = "meta"
)

// RedisStore keeps each artifact in a hash {data, meta} and the production
// pointer as a JSON string.
type RedisStore struct {
	client      *redis.Client
	readLatency prometheus.Histogram
}

type Option func(*RedisStore)

// WithMetrics registers the artifact read latency histogram on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *RedisStore) {
		s.readLatency = promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "idscore_artifact_read_duration_ms",
			Help:    "Latency of artifact reads from Redis in milliseconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100},
		})
	}
}

func NewRedis(client *redis.Client, opts ...Option) *RedisStore {
	s := &RedisStore{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put writes all artifacts in one MULTI/EXEC so readers never see a partial
// era.
func (s *RedisStore) Put(ctx context.Context, arts ...artifact.Artifact) error {
	if len(arts) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, a := range arts {
			meta, err := json.Marshal(a.Meta)
			if err != nil {
				return fmt.Errorf("encode meta %s: %w", a.Meta.Ref(), err)
			}
			pipe.HSet(ctx, a.Meta.Ref().Key(), fieldData, a.Data, fieldMeta, meta)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("put artifacts: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, ref artifact.Ref) (*artifact.Artifact, error) {
	if s.readLatency != nil {
		start := time.Now()
		defer func() {
			s.readLatency.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
		}()
	}

	vals, err := s.client.HMGet(ctx, ref.Key(), fieldData, fieldMeta).Result()
	if err != nil {
		return nil, fmt.Errorf("get artifact %s: %w", ref, err)
	}
	data, okData := vals[0].(string)
	meta, okMeta := vals[1].(string)
	if !okData || !okMeta {
		return nil, sentinel.ErrNotFound
	}

	a := &artifact.Artifact{Data: []byte(data)}
	if err := json.Unmarshal([]byte(meta), &a.Meta); err != nil {
		return nil, fmt.Errorf("decode meta %s: %w", ref, err)
	}
	return a, nil
}

func (s *RedisStore) Delete(ctx context.Context, refs ...artifact.Ref) error {
	if len(refs) == 0 {
		return nil
	}
	keys := make([]string, len(refs))
	for i, ref := range refs {
		keys[i] = ref.Key()
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete artifacts: %w", err)
	}
	return nil
}

func (s *RedisStore) Pointer(ctx context.Context) (*artifact.Pointer, error) {
	raw, err := s.client.Get(ctx, artifact.PointerKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get production pointer: %w", err)
	}
	var p artifact.Pointer
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode production pointer: %w", err)
	}
	return &p, nil
}

func (s *RedisStore) SetPointer(ctx context.Context, p artifact.Pointer) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode production pointer: %w", err)
	}
	if err := s.client.Set(ctx, artifact.PointerKey, raw, 0).Err(); err != nil {
		return fmt.Errorf("set production pointer: %w", err)
	}
	return nil
}
