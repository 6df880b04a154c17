// Package kafka writes audit events to a Kafka topic. Events are keyed by
// subject so every event about one model version lands on one partition in
// order.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "idscore/pkg/platform/audit"
	"idscore/pkg/platform/circuit"
)

// ErrCircuitOpen is returned while the breaker is refusing produce attempts.
var ErrCircuitOpen = errors.New("audit sink circuit open")

// Producer is the subset of *kgo.Client the store uses.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

type Store struct {
	producer Producer
	topic    string
	breaker  *circuit.Breaker
	metrics  *Metrics
	logger   *slog.Logger
	timeout  time.Duration
}

type Option func(*Store)

func WithMetrics(m *Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithBreaker overrides the failure threshold and cooldown.
func WithBreaker(threshold int, cooldown time.Duration) Option {
	return func(s *Store) {
		s.breaker = newBreaker(threshold, cooldown)
	}
}

// WithProduceTimeout bounds each synchronous produce.
func WithProduceTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func newBreaker(threshold int, cooldown time.Duration) *circuit.Breaker {
	return circuit.New("audit-kafka", circuit.WithFailureThreshold(threshold), circuit.WithCooldown(cooldown))
}

func New(producer Producer, topic string, opts ...Option) (*Store, error) {
	if producer == nil {
		return nil, errors.New("kafka producer is required")
	}
	if topic == "" {
		return nil, errors.New("audit topic is required")
	}
	s := &Store{
		producer: producer,
		topic:    topic,
		breaker:  newBreaker(0, 0),
		logger:   slog.Default(),
		timeout:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if !s.breaker.Allow() {
		s.metrics.incDropped()
		return ErrCircuitOpen
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.Subject),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "category", Value: []byte(event.Category)},
			{Key: "action", Value: []byte(event.Action)},
		},
		Timestamp: event.Timestamp,
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		s.metrics.incFailures()
		if _, change := s.breaker.RecordFailure(); change.Opened {
			s.metrics.setOpen(true)
			s.logger.WarnContext(ctx, "audit sink circuit opened", "topic", s.topic, "error", err)
		}
		return fmt.Errorf("produce audit event: %w", err)
	}
	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.metrics.setOpen(false)
	}
	s.metrics.incProduced(string(event.Category))
	return nil
}
