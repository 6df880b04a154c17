package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "idscore/pkg/platform/audit"
	"idscore/pkg/platform/circuit"
)

type fakeProducer struct {
	err     error
	records []*kgo.Record
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	out := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		if f.err == nil {
			f.records = append(f.records, r)
		}
		out = append(out, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return out
}

func newTestStore(t *testing.T, p Producer, opts ...Option) (*Store, *Metrics) {
	t.Helper()
	m := NewMetrics(prometheus.NewRegistry())
	opts = append([]Option{WithMetrics(m), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	s, err := New(p, "idscore.audit", opts...)
	require.NoError(t, err)
	return s, m
}

func TestNew(t *testing.T) {
	_, err := New(nil, "topic")
	assert.Error(t, err)
	_, err = New(&fakeProducer{}, "")
	assert.Error(t, err)
}

func TestAppend_WritesKeyedRecord(t *testing.T) {
	p := &fakeProducer{}
	s, m := newTestStore(t, p)

	ev := audit.Event{
		Category:  audit.CategoryGovernance,
		Timestamp: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Subject:   "v2",
		Action:    string(audit.EventModelPromoted),
	}
	require.NoError(t, s.Append(context.Background(), ev))

	require.Len(t, p.records, 1)
	rec := p.records[0]
	assert.Equal(t, "idscore.audit", rec.Topic)
	assert.Equal(t, []byte("v2"), rec.Key)

	var decoded audit.Event
	require.NoError(t, json.Unmarshal(rec.Value, &decoded))
	assert.Equal(t, ev, decoded)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Produced.WithLabelValues("governance")))
}

func TestAppend_BreakerOpensAndRecovers(t *testing.T) {
	p := &fakeProducer{err: errors.New("broker down")}
	s, m := newTestStore(t, p)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.breaker = circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return now }))

	ctx := context.Background()
	ev := audit.Event{Subject: "v1", Action: string(audit.EventModelDeployed)}
	assert.Error(t, s.Append(ctx, ev))
	assert.Error(t, s.Append(ctx, ev))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.BreakerState))

	assert.ErrorIs(t, s.Append(ctx, ev), ErrCircuitOpen)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.BreakerDropped))

	now = now.Add(2 * time.Minute)
	p.err = nil
	require.NoError(t, s.Append(ctx, ev))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.BreakerState))
	assert.Len(t, p.records, 1)
}
