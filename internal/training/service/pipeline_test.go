package service_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"idscore/internal/analytics"
	"idscore/internal/artifact"
	artifactstore "idscore/internal/artifact/store"
	"idscore/internal/ensemble"
	expmodels "idscore/internal/experiment/models"
	"idscore/internal/labeling"
	"idscore/internal/markov"
	"idscore/internal/training/models"
	"idscore/internal/training/service"
	"idscore/internal/training/service/mocks"
	"idscore/internal/training/store/history"
	"idscore/internal/training/store/lock"
	"idscore/internal/validation"
	"idscore/pkg/platform/audit/publisher"
	auditmemory "idscore/pkg/platform/audit/store/memory"
	"idscore/pkg/platform/sentinel"
	"idscore/pkg/testutil"
	"idscore/pkg/testutil/observations"
)

var pipelineNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// PipelineSuite runs whole pipelines against in-memory stores.
type PipelineSuite struct {
	suite.Suite
	ctx        context.Context
	source     *analytics.InMemorySource
	locker     *lock.InMemoryLocker
	history    *history.InMemoryStore
	artifacts  *artifactstore.InMemoryStore
	registry   *artifact.Registry
	auditStore *auditmemory.InMemoryStore
	logger     *slog.Logger
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineSuite))
}

func (s *PipelineSuite) SetupTest() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.source = analytics.NewInMemory()
	s.locker = lock.NewInMemory()
	s.history = history.NewInMemory(20)
	s.artifacts = artifactstore.NewInMemory()
	s.auditStore = auditmemory.NewInMemoryStore()
	var err error
	s.registry, err = artifact.NewRegistry(s.artifacts, artifact.WithLogger(s.logger))
	s.Require().NoError(err)
}

func (s *PipelineSuite) newService(opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithLogger(s.logger),
		service.WithAuditPublisher(publisher.NewPublisher(s.auditStore)),
		service.WithClock(func() time.Time { return pipelineNow }),
		service.WithSeed(11),
	}
	svc, err := service.New(s.source, s.locker, s.history, s.registry, append(base, opts...)...)
	s.Require().NoError(err)
	return svc
}

// seedTraffic adds 150 blocked random strings and 850 allowed names.
func (s *PipelineSuite) seedTraffic() {
	s.source.AddObservations(observations.Fraud(testutil.FraudLocalParts(150, 21), pipelineNow)...)
	s.source.AddObservations(observations.Legit(testutil.LegitLocalParts(850, 22), pipelineNow)...)
}

// seedInvertedProduction promotes an era whose class models are swapped, so
// any sensible candidate beats it.
func (s *PipelineSuite) seedInvertedProduction() {
	legit := testutil.LegitLocalParts(400, 31)
	fraud := testutil.FraudLocalParts(400, 32)
	pairs := make(map[int]ensemble.Pair)
	for _, order := range artifact.DefaultOrders {
		l, err := markov.New(order)
		s.Require().NoError(err)
		f, err := markov.New(order)
		s.Require().NoError(err)
		for _, id := range fraud {
			l.Train(id, markov.FullBatch)
		}
		for _, id := range legit {
			f.Train(id, markov.FullBatch)
		}
		pairs[order] = ensemble.Pair{Legit: l, Fraud: f}
	}
	e, err := ensemble.New(pairs)
	s.Require().NoError(err)
	s.Require().NoError(s.registry.SaveCandidate(s.ctx, "inverted", e, artifact.Info{}))
	_, err = s.registry.PromoteCandidate(s.ctx, "inverted", "seed")
	s.Require().NoError(err)
}

func (s *PipelineSuite) TestBootstrapDeploys() {
	s.seedTraffic()
	svc := s.newService()

	res, err := svc.RunPipeline(s.ctx, models.RunOptions{})
	s.Require().NoError(err)
	s.Require().True(res.Success, res.Message)
	s.Equal(models.ActionDeployed, res.Action)
	s.Equal(models.StateUnlocked, res.State)
	s.Empty(res.FailedAt)
	s.Equal(150, res.Batch.Fraud)
	s.Equal(850, res.Batch.Legit)
	s.Require().NotNil(res.Validation)
	s.Equal(validation.Deploy, res.Validation.Recommendation)
	s.Nil(res.Validation.Current)
	s.Equal(200, res.Validation.HoldoutSize)

	ptr, err := s.registry.Pointer(s.ctx)
	s.Require().NoError(err)
	s.Equal(res.Version, ptr.Version)
	s.Equal("bootstrap", ptr.Reason)

	prod, err := s.registry.LoadProduction(s.ctx)
	s.Require().NoError(err)
	verdict := prod.Ensemble.Classify("john.smith", ensemble.DefaultCascade())
	s.Equal(ensemble.Legit, verdict.Label)
	for _, m := range prod.Metas {
		s.Equal(120, m.FraudSamples)
		s.Equal(680, m.LegitSamples)
		s.Require().NotNil(m.F1)
	}

	entries, err := svc.History(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.True(entries[0].Succeeded())
	s.Equal(res.Version, entries[0].Version)

	s.Equal([]string{"model_deployed", "training_succeeded"}, s.auditStore.Actions())

	holder, err := s.locker.Holder(s.ctx)
	s.Require().NoError(err)
	s.Empty(holder, "lock is released")
}

func (s *PipelineSuite) TestSecondRunAgainstEqualProductionIsHeld() {
	s.seedTraffic()
	svc := s.newService()

	first, err := svc.RunPipeline(s.ctx, models.RunOptions{})
	s.Require().NoError(err)
	s.Require().Equal(models.ActionDeployed, first.Action)

	second, err := svc.RunPipeline(s.ctx, models.RunOptions{})
	s.Require().NoError(err)
	s.True(second.Success)
	s.Equal(models.ActionHeldForReview, second.Action)
	s.Require().NotNil(second.Validation)
	s.Equal(validation.ManualReview, second.Validation.Recommendation)
	s.Require().NotNil(second.Validation.Current)

	ptr, err := s.registry.Pointer(s.ctx)
	s.Require().NoError(err)
	s.Equal(first.Version, ptr.Version, "production is untouched")

	_, err = s.registry.Load(s.ctx, artifact.StatusCandidate, second.Version)
	s.NoError(err, "held candidate is kept for review")
}

func (s *PipelineSuite) TestIncrementalBuildsOnProduction() {
	s.seedTraffic()
	svc := s.newService()

	first, err := svc.RunPipeline(s.ctx, models.RunOptions{})
	s.Require().NoError(err)
	s.Require().Equal(models.ActionDeployed, first.Action)

	second, err := svc.RunPipeline(s.ctx, models.RunOptions{Incremental: true})
	s.Require().NoError(err)
	s.True(second.Incremental)
	s.Equal(models.ActionHeldForReview, second.Action)

	prod, err := s.registry.Load(s.ctx, artifact.StatusProduction, "")
	s.Require().NoError(err)
	candidate, err := s.registry.Load(s.ctx, artifact.StatusCandidate, second.Version)
	s.Require().NoError(err)

	prodCounts := map[string]int{}
	for _, m := range prod.Metas {
		prodCounts[fmt.Sprintf("%s/%d", m.Class, m.Order)] = m.TrainingCount
	}
	for _, m := range candidate.Metas {
		key := fmt.Sprintf("%s/%d", m.Class, m.Order)
		s.Greater(m.TrainingCount, prodCounts[key], "candidate %s extends production", key)
	}
}

func (s *PipelineSuite) TestIncrementalRunsRepeatWithSeed() {
	s.seedTraffic()
	svc := s.newService()

	_, err := svc.RunPipeline(s.ctx, models.RunOptions{})
	s.Require().NoError(err)

	counts := func() map[string]int {
		res, err := svc.RunPipeline(s.ctx, models.RunOptions{Incremental: true})
		s.Require().NoError(err)
		s.Require().True(res.Success, res.Message)
		loaded, err := s.registry.Load(s.ctx, artifact.StatusCandidate, res.Version)
		s.Require().NoError(err)
		out := map[string]int{}
		for _, m := range loaded.Metas {
			out[fmt.Sprintf("%s/%d", m.Class, m.Order)] = m.TrainingCount
		}
		return out
	}
	s.Equal(counts(), counts(), "same seed and production era skip the same samples")
}

func (s *PipelineSuite) TestCanaryStagedWhenProductionExists() {
	s.seedTraffic()
	s.seedInvertedProduction()

	ctrl := gomock.NewController(s.T())
	starter := mocks.NewMockExperimentStarter(ctrl)
	var staged string
	starter.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, version string) (*expmodels.Experiment, error) {
			staged = version
			return &expmodels.Experiment{ID: "exp-1", TreatmentVersion: version}, nil
		})

	svc := s.newService(service.WithExperiments(starter))
	res, err := svc.RunPipeline(s.ctx, models.RunOptions{})
	s.Require().NoError(err)
	s.Require().True(res.Success, res.Message)
	s.Equal(models.ActionCanaryStaged, res.Action)
	s.Equal("exp-1", res.ExperimentID)
	s.Equal(res.Version, staged)

	ptr, err := s.registry.Pointer(s.ctx)
	s.Require().NoError(err)
	s.Equal("inverted", ptr.Version, "production waits for the experiment")
}

func (s *PipelineSuite) TestActiveExperimentHoldsCandidate() {
	s.seedTraffic()
	s.seedInvertedProduction()

	ctrl := gomock.NewController(s.T())
	starter := mocks.NewMockExperimentStarter(ctrl)
	starter.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrConflict)

	svc := s.newService(service.WithExperiments(starter))
	res, err := svc.RunPipeline(s.ctx, models.RunOptions{})
	s.Require().NoError(err)
	s.True(res.Success)
	s.Equal(models.ActionHeldForReview, res.Action)
	s.Contains(s.auditStore.Actions(), "candidate_held_for_review")
}

func (s *PipelineSuite) TestExperimentsDisabledPromotesDirectly() {
	s.seedTraffic()
	s.seedInvertedProduction()

	ctrl := gomock.NewController(s.T())
	starter := mocks.NewMockExperimentStarter(ctrl)

	cfg := models.DefaultConfig()
	cfg.UseExperiments = false
	svc := s.newService(service.WithExperiments(starter), service.WithConfig(cfg))
	res, err := svc.RunPipeline(s.ctx, models.RunOptions{})
	s.Require().NoError(err)
	s.Equal(models.ActionDeployed, res.Action)

	ptr, err := s.registry.Pointer(s.ctx)
	s.Require().NoError(err)
	s.Equal(res.Version, ptr.Version)
	s.Equal("inverted", ptr.PreviousVersion)
}

func (s *PipelineSuite) TestIndistinguishableClassesFailValidation() {
	legit := testutil.LegitLocalParts(850, 22)
	seen := make(map[string]struct{}, len(legit))
	for _, id := range legit {
		seen[id] = struct{}{}
	}
	var fraud []string
	for _, id := range testutil.LegitLocalParts(2000, 99) {
		if _, ok := seen[id]; ok || slices.Contains(fraud, id) {
			continue
		}
		fraud = append(fraud, id)
		if len(fraud) == 150 {
			break
		}
	}
	s.Require().Len(fraud, 150)
	s.source.AddObservations(observations.Fraud(fraud, pipelineNow)...)
	s.source.AddObservations(observations.Legit(legit, pipelineNow)...)

	svc := s.newService()
	res, err := svc.RunPipeline(s.ctx, models.RunOptions{})
	s.Require().NoError(err)
	s.False(res.Success)
	s.Equal(models.ReasonValidationFailed, res.Reason)
	s.Require().NotNil(res.Validation)
	s.Equal(validation.Reject, res.Validation.Recommendation)
	s.Empty(s.artifacts.Keys(), "rejected candidates are never written")
	s.Contains(s.auditStore.Actions(), "validation_failed")
}

type gatedSource struct {
	*analytics.InMemorySource
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedSource) FetchObservations(ctx context.Context, since time.Time, limit int) ([]labeling.Observation, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return g.InMemorySource.FetchObservations(ctx, since, limit)
}

func (s *PipelineSuite) TestConcurrentRunIsRefused() {
	s.seedTraffic()
	gated := &gatedSource{InMemorySource: s.source, entered: make(chan struct{}), release: make(chan struct{})}
	svc, err := service.New(gated, s.locker, s.history, s.registry,
		service.WithLogger(s.logger),
		service.WithClock(func() time.Time { return pipelineNow }),
		service.WithSeed(11),
	)
	s.Require().NoError(err)

	type outcome struct {
		res *models.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := svc.RunPipeline(s.ctx, models.RunOptions{})
		done <- outcome{res, err}
	}()
	<-gated.entered

	second, err := svc.RunPipeline(s.ctx, models.RunOptions{})
	s.Require().NoError(err)
	s.Equal(models.ReasonAlreadyInProgress, second.Reason)
	s.Empty(s.artifacts.Keys())

	close(gated.release)
	first := <-done
	s.Require().NoError(first.err)
	s.Equal(models.ActionDeployed, first.res.Action)

	entries, err := s.history.Recent(s.ctx, 10)
	s.Require().NoError(err)
	s.Len(entries, 2)
}
