package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig().Server.Addr, cfg.Server.Addr)
	assert.Equal(t, 500, cfg.Training.MinSamples)
	assert.Equal(t, 10*time.Minute, cfg.Training.LockTTL)
	assert.Equal(t, 10, cfg.Experiment.TreatmentWeight)
	assert.InDelta(t, 0.05, cfg.Experiment.Thresholds.Alpha, 1e-12)
	assert.InDelta(t, 0.8, cfg.Anomaly.Threshold, 1e-12)
	assert.False(t, cfg.Kafka.Enabled())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("IDSCORE_SERVER_ADDR", ":9090")
	t.Setenv("IDSCORE_TRAINING_MIN_SAMPLES", "200")
	t.Setenv("IDSCORE_TRAINING_LOCK_TTL", "90s")
	t.Setenv("IDSCORE_EXPERIMENT_THRESHOLDS_ALPHA", "0.01")
	t.Setenv("IDSCORE_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 200, cfg.Training.MinSamples)
	assert.Equal(t, 90*time.Second, cfg.Training.LockTTL)
	assert.InDelta(t, 0.01, cfg.Experiment.Thresholds.Alpha, 1e-12)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idscore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
experiment:
  treatment_weight: 25
  auto_promote: true
anomaly:
  threshold: 0.6
labeling:
  quality:
    min_per_class: 10
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Experiment.TreatmentWeight)
	assert.True(t, cfg.Experiment.AutoPromote)
	assert.Equal(t, 24*time.Hour, cfg.Experiment.Duration, "unset keys keep defaults")
	assert.InDelta(t, 0.6, cfg.Anomaly.Threshold, 1e-12)
	assert.Equal(t, 10, cfg.Labeling.Quality.MinPerClass)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, DefaultConfig().Validate())
	})
	t.Run("treatment weight out of range", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Experiment.TreatmentWeight = 100
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "experiment.treatment_weight")
	})
	t.Run("zero anomaly threshold is rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Anomaly.Threshold = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "anomaly.threshold must be in (0,1]")
	})
	t.Run("anomaly threshold of one is allowed", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Anomaly.Threshold = 1
		assert.NoError(t, cfg.Validate())
	})
	t.Run("all problems are reported", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Redis.URL = ""
		cfg.Training.HoldoutRatio = 1
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis.url")
		assert.Contains(t, err.Error(), "training.holdout_ratio")
	})
}

func TestKafkaSeedBrokers(t *testing.T) {
	k := KafkaConfig{Brokers: []string{" k1:9092", "", "k1:9092", "k2:9092 "}}
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, k.SeedBrokers())
	assert.True(t, k.Enabled())

	assert.False(t, KafkaConfig{Brokers: []string{" "}}.Enabled())
}
