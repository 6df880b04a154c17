//go:build integration

package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/suite"

	"idscore/internal/analytics"
	expmodels "idscore/internal/experiment/models"
	"idscore/internal/labeling"
	"idscore/pkg/testutil/containers"
)

type PostgresSourceSuite struct {
	suite.Suite
	pg     *containers.PostgresContainer
	source *analytics.PostgresSource
	now    time.Time
}

func TestPostgresSourceSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresSourceSuite))
}

func (s *PostgresSourceSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	var err error
	s.source, err = analytics.NewPostgres(s.pg.Pool)
	s.Require().NoError(err)
	s.Require().NoError(s.source.EnsureSchema(context.Background()))
}

func (s *PostgresSourceSuite) SetupTest() {
	s.pg.Exec(s.T(), "TRUNCATE identifier_validations")
	s.now = time.Now().UTC().Truncate(time.Second)
}

func (s *PostgresSourceSuite) seed(rows [][]any) {
	_, err := s.pg.Pool.CopyFrom(context.Background(),
		pgx.Identifier{analytics.DefaultTable},
		[]string{"local_part", "decision", "risk_score", "pattern_family", "bot_score", "experiment_id", "variant", "model_prediction", "created_at"},
		pgx.CopyFromRows(rows),
	)
	s.Require().NoError(err)
}

func (s *PostgresSourceSuite) TestFetchObservations() {
	bot := 0.9
	s.seed([][]any{
		{"john.smith", "allow", 0.05, nil, &bot, nil, nil, nil, s.now},
		{"qp4k8j2mx", "block", 0.95, "random_string", nil, nil, nil, nil, s.now},
		{"stale.row", "allow", 0.05, nil, nil, nil, nil, nil, s.now.AddDate(0, 0, -30)},
	})

	got, err := s.source.FetchObservations(context.Background(), s.now.AddDate(0, 0, -7), 100)
	s.Require().NoError(err)
	s.Require().Len(got, 2)

	byPart := map[string]labeling.Observation{}
	for _, o := range got {
		byPart[o.LocalPart] = o
	}
	s.Equal(labeling.DecisionAllow, byPart["john.smith"].Decision)
	s.Require().NotNil(byPart["john.smith"].BotScore)
	s.InDelta(0.9, *byPart["john.smith"].BotScore, 1e-9)
	s.Equal("random_string", byPart["qp4k8j2mx"].PatternFamily)
	s.Nil(byPart["qp4k8j2mx"].BotScore)
	s.True(s.now.Equal(byPart["qp4k8j2mx"].ObservedAt))

	got, err = s.source.FetchObservations(context.Background(), s.now.AddDate(0, 0, -7), 1)
	s.Require().NoError(err)
	s.Len(got, 1)
}

func (s *PostgresSourceSuite) TestExperimentResults() {
	s.seed([][]any{
		{"a", "block", 0.9, nil, nil, "exp-1", "control", "fraud", s.now},
		{"b", "allow", 0.1, nil, nil, "exp-1", "control", "fraud", s.now},
		{"c", "allow", 0.1, nil, nil, "exp-1", "treatment", "legit", s.now},
		{"d", "block", 0.9, nil, nil, "exp-1", "treatment", "fraud", s.now},
		{"e", "block", 0.9, nil, nil, "exp-2", "treatment", "legit", s.now},
	})

	res, err := s.source.ExperimentResults(context.Background(), "exp-1", s.now.Add(-time.Hour))
	s.Require().NoError(err)
	s.Equal(expmodels.ArmResult{Samples: 2, Successes: 1}, res.Control)
	s.Equal(expmodels.ArmResult{Samples: 2, Successes: 2}, res.Treatment)
}
