//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"idscore/internal/platform/config"
	"idscore/internal/platform/kafka"
	audit "idscore/pkg/platform/audit"
	auditkafka "idscore/pkg/platform/audit/store/kafka"
	"idscore/pkg/testutil/containers"
)

type KafkaSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
}

func TestKafkaSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSuite))
}

func (s *KafkaSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
}

func (s *KafkaSuite) TestEnsureTopicIsIdempotent() {
	ctx := context.Background()
	client, err := kafka.New(config.KafkaConfig{Brokers: s.redpanda.Brokers, AuditTopic: "idscore.audit.ensure"})
	s.Require().NoError(err)
	defer client.Close()

	s.Require().NoError(kafka.EnsureTopic(ctx, client, "idscore.audit.ensure", 1, 1))
	s.Require().NoError(kafka.EnsureTopic(ctx, client, "idscore.audit.ensure", 1, 1))
}

func (s *KafkaSuite) TestAuditEventsReachTopic() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	const topic = "idscore.audit.events"

	producer, err := kafka.New(config.KafkaConfig{Brokers: s.redpanda.Brokers, AuditTopic: topic})
	s.Require().NoError(err)
	defer producer.Close()
	s.Require().NoError(kafka.EnsureTopic(ctx, producer, topic, 1, 1))

	sink, err := auditkafka.New(producer, topic)
	s.Require().NoError(err)
	s.Require().NoError(sink.Append(ctx, audit.Event{
		Category:  audit.CategoryGovernance,
		Timestamp: time.Now().UTC(),
		Subject:   "20250102-150405-abcdef01",
		Action:    string(audit.EventModelDeployed),
	}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().NoError(fetches.Err())
	records := fetches.Records()
	s.Require().NotEmpty(records)

	var got audit.Event
	s.Require().NoError(json.Unmarshal(records[0].Value, &got))
	s.Equal("20250102-150405-abcdef01", string(records[0].Key))
	s.Equal(string(audit.EventModelDeployed), got.Action)
	s.Equal(audit.CategoryGovernance, got.Category)
}
