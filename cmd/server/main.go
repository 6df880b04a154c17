package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"idscore/internal/analytics"
	"idscore/internal/anomaly"
	"idscore/internal/artifact"
	artifactstore "idscore/internal/artifact/store"
	experimenthandler "idscore/internal/experiment/handler"
	experimentmetrics "idscore/internal/experiment/metrics"
	experimentservice "idscore/internal/experiment/service"
	experimentstore "idscore/internal/experiment/store"
	experimentworker "idscore/internal/experiment/worker"
	"idscore/internal/labeling"
	"idscore/internal/platform/config"
	"idscore/internal/platform/httpserver"
	"idscore/internal/platform/kafka"
	"idscore/internal/platform/logger"
	"idscore/internal/platform/metrics"
	"idscore/internal/platform/postgres"
	platformredis "idscore/internal/platform/redis"
	"idscore/internal/platform/tracing"
	scoringhandler "idscore/internal/scoring/handler"
	scoringmetrics "idscore/internal/scoring/metrics"
	scoringservice "idscore/internal/scoring/service"
	traininghandler "idscore/internal/training/handler"
	trainingmetrics "idscore/internal/training/metrics"
	trainingservice "idscore/internal/training/service"
	"idscore/internal/training/store/history"
	"idscore/internal/training/store/lock"
	trainingworker "idscore/internal/training/worker"
	httptransport "idscore/internal/transport/http"
	"idscore/internal/validation"
	"idscore/pkg/platform/audit"
	"idscore/pkg/platform/audit/publisher"
	auditkafka "idscore/pkg/platform/audit/store/kafka"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("idscore stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("idscore stopped")
}

// run wires the services and blocks until ctx is cancelled or a component
// fails.
func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := metrics.New()
	tracer := tracing.Tracer(cfg.Tracing)

	rc, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer rc.Close()

	pool, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()

	source, err := newAnalytics(ctx, cfg.Postgres, pool)
	if err != nil {
		return err
	}

	auditPublisher, closeAudit, err := newAuditPublisher(ctx, cfg.Kafka, reg, log)
	if err != nil {
		return err
	}
	defer closeAudit()

	registry, err := artifact.NewRegistry(
		artifactstore.NewRedis(rc.Client, artifactstore.WithMetrics(reg.Registry)),
		artifact.WithLogger(log),
	)
	if err != nil {
		return err
	}

	experiments := experimentstore.NewRedis(rc.Client, cfg.Experiment.PromotionHistory)
	governor, err := experimentservice.New(experiments, registry, source,
		experimentservice.WithLogger(log),
		experimentservice.WithAuditPublisher(auditPublisher),
		experimentservice.WithConfig(cfg.Experiment),
		experimentservice.WithMetrics(experimentmetrics.New(reg.Registry)),
	)
	if err != nil {
		return err
	}

	trainer, err := trainingservice.New(source,
		lock.NewRedis(rc.Client),
		history.NewRedis(rc.Client, cfg.Training.HistoryLimit),
		registry,
		trainingservice.WithLogger(log),
		trainingservice.WithAuditPublisher(auditPublisher),
		trainingservice.WithConfig(cfg.Training),
		trainingservice.WithMetrics(trainingmetrics.New(reg.Registry)),
		trainingservice.WithTracer(tracer),
		trainingservice.WithExperiments(governor),
		trainingservice.WithLabeler(labeling.NewLabeler(
			labeling.WithMinConfidence(cfg.Labeling.MinConfidence),
			labeling.WithFraudPatterns(cfg.Labeling.FraudPatterns),
		)),
		trainingservice.WithQualityGate(cfg.Labeling.Quality),
		trainingservice.WithAnomalyGate(anomaly.NewGate(cfg.Anomaly)),
		trainingservice.WithValidationGate(validation.NewGate(cfg.Validation)),
	)
	if err != nil {
		return err
	}

	scorer, err := scoringservice.New(registry,
		scoringservice.WithLogger(log),
		scoringservice.WithMetrics(scoringmetrics.New(reg.Registry)),
		scoringservice.WithExperiments(experiments),
	)
	if err != nil {
		return err
	}

	trainingWorker, err := trainingworker.New(trainer, cfg.Training.Interval, trainingworker.WithLogger(log))
	if err != nil {
		return err
	}
	experimentWorker, err := experimentworker.New(governor, cfg.Experiment.CheckInterval, log)
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:     log,
		Metrics:    reg,
		Tracer:     tracer,
		AdminToken: cfg.Server.AdminToken,
		Readiness: map[string]httptransport.ReadinessCheck{
			"redis":    rc.Health,
			"postgres": source.Ping,
		},
		Scoring:    scoringhandler.New(scorer, log),
		Training:   traininghandler.New(trainer, log),
		Experiment: experimenthandler.New(governor, log),
	})
	srv := httpserver.New(cfg.Server, router)

	if cfg.Server.AdminToken == "" {
		log.Warn("no admin token configured, admin endpoints are locked")
	}
	log.Info("starting idscore", "addr", cfg.Server.Addr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpserver.Run(gctx, srv, cfg.Server.ShutdownTimeout) })
	g.Go(func() error { return scorer.Start(gctx, cfg.Scoring.RefreshInterval) })
	g.Go(func() error { return trainingWorker.Start(gctx) })
	g.Go(func() error { return experimentWorker.Start(gctx) })
	return g.Wait()
}

func newAnalytics(ctx context.Context, cfg config.PostgresConfig, pool *pgxpool.Pool) (*analytics.PostgresSource, error) {
	var opts []analytics.Option
	if cfg.Table != "" {
		opts = append(opts, analytics.WithTable(cfg.Table))
	}
	source, err := analytics.NewPostgres(pool, opts...)
	if err != nil {
		return nil, err
	}
	if cfg.EnsureSchema {
		if err := source.EnsureSchema(ctx); err != nil {
			return nil, err
		}
	}
	return source, nil
}

// newAuditPublisher returns the Kafka-backed publisher, or nil when no
// brokers are configured, in which case audit events are only logged.
func newAuditPublisher(ctx context.Context, cfg config.KafkaConfig, reg *metrics.Registry, log *slog.Logger) (audit.Emitter, func(), error) {
	if !cfg.Enabled() {
		log.Info("kafka not configured, audit events are logged only")
		return nil, func() {}, nil
	}

	client, err := kafka.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := kafka.EnsureTopic(ctx, client, cfg.AuditTopic, cfg.Partitions, cfg.ReplicationFactor); err != nil {
		client.Close()
		return nil, nil, err
	}

	sink, err := auditkafka.New(client, cfg.AuditTopic,
		auditkafka.WithMetrics(auditkafka.NewMetrics(reg.Registry)),
		auditkafka.WithLogger(log),
		auditkafka.WithProduceTimeout(cfg.ProduceTimeout),
	)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	pub := publisher.NewPublisher(sink, publisher.WithAsyncBuffer(1024), publisher.WithLogger(log))
	return pub, func() {
		pub.Close()
		flushAndClose(client, cfg.ProduceTimeout)
	}, nil
}

func flushAndClose(client *kgo.Client, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_ = client.Flush(ctx)
	client.Close()
}
