package validation

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/suite"

	"idscore/internal/ensemble"
	"idscore/internal/labeling"
	"idscore/internal/markov"
	"idscore/pkg/testutil"
)

type GateSuite struct {
	suite.Suite
	strong  *ensemble.Ensemble
	swapped *ensemble.Ensemble
	holdout []labeling.Sample
	gate    *Gate
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateSuite))
}

func (s *GateSuite) buildEnsemble(legit, fraud []string) *ensemble.Ensemble {
	pairs := make(map[int]ensemble.Pair)
	for order := markov.MinOrder; order <= markov.MaxOrder; order++ {
		l, err := markov.New(order)
		s.Require().NoError(err)
		f, err := markov.New(order)
		s.Require().NoError(err)
		for _, id := range legit {
			l.Train(id, markov.FullBatch)
		}
		for _, id := range fraud {
			f.Train(id, markov.FullBatch)
		}
		pairs[order] = ensemble.Pair{Legit: l, Fraud: f}
	}
	e, err := ensemble.New(pairs)
	s.Require().NoError(err)
	return e
}

func labeled(ids []string, label ensemble.Label) []labeling.Sample {
	out := make([]labeling.Sample, len(ids))
	for i, id := range ids {
		out[i] = labeling.Sample{Identifier: id, Label: label}
	}
	return out
}

func (s *GateSuite) SetupSuite() {
	legit := testutil.LegitLocalParts(3000, 21)
	fraud := testutil.FraudLocalParts(3000, 22)
	s.strong = s.buildEnsemble(legit, fraud)
	s.swapped = s.buildEnsemble(fraud, legit)

	s.holdout = append(
		labeled(testutil.LegitLocalParts(500, 31), ensemble.Legit),
		labeled(testutil.FraudLocalParts(500, 32), ensemble.Fraud)...,
	)
}

func (s *GateSuite) SetupTest() {
	s.gate = NewGate(DefaultThresholds())
}

func (s *GateSuite) TestValidate() {
	s.Run("empty holdout is an error", func() {
		_, err := s.gate.Validate(s.strong, nil, nil)
		s.ErrorIs(err, ErrEmptyHoldout)
	})

	s.Run("bootstrap candidate clearing every floor deploys", func() {
		r, err := s.gate.Validate(s.strong, nil, s.holdout)
		s.Require().NoError(err)
		s.Nil(r.Current)
		s.Empty(r.Issues)
		s.Equal(Deploy, r.Recommendation)
		s.Equal(1000, r.HoldoutSize)
		s.Equal("weighted", r.Strategy)
	})

	s.Run("candidate dominating production deploys", func() {
		r, err := s.gate.Validate(s.strong, s.swapped, s.holdout)
		s.Require().NoError(err)
		s.Require().NotNil(r.Current)
		s.Greater(r.New.F1, r.Current.F1)
		s.Greater(r.New.Accuracy, r.Current.Accuracy)
		s.Less(r.New.FalsePositiveRate, r.Current.FalsePositiveRate)
		s.Equal(Deploy, r.Recommendation)
	})

	s.Run("candidate worse than production never deploys", func() {
		r, err := s.gate.Validate(s.swapped, s.strong, s.holdout)
		s.Require().NoError(err)
		s.NotEqual(Deploy, r.Recommendation)
		s.Equal(Reject, r.Recommendation)
	})

	s.Run("identical candidate lacks improvement", func() {
		r, err := s.gate.Validate(s.strong, s.strong, s.holdout)
		s.Require().NoError(err)
		s.Equal(ManualReview, r.Recommendation)
		s.Require().Len(r.Issues, 1)
		s.Equal("f1_improvement", r.Issues[0].Check)
	})
}

func good() Metrics {
	return Metrics{Accuracy: 0.97, Precision: 0.95, Recall: 0.92, F1: 0.935, FalsePositiveRate: 0.02}
}

func (s *GateSuite) TestAssess() {
	s.Run("no issues deploys", func() {
		_, rec := s.gate.assess(good(), nil)
		s.Equal(Deploy, rec)
	})

	s.Run("small shortfall needs review", func() {
		current := good()
		current.F1 = 0.93
		issues, rec := s.gate.assess(good(), &current)
		s.Len(issues, 1)
		s.Equal(ManualReview, rec)
	})

	s.Run("low accuracy rejects outright", func() {
		m := good()
		m.Accuracy = 0.84
		issues, rec := s.gate.assess(m, nil)
		s.Len(issues, 1)
		s.Equal(Reject, rec)
	})

	s.Run("three issues reject", func() {
		m := good()
		m.Precision, m.Recall, m.FalsePositiveRate = 0.8, 0.8, 0.1
		issues, rec := s.gate.assess(m, nil)
		s.GreaterOrEqual(len(issues), 3)
		s.Equal(Reject, rec)
	})

	s.Run("severe f1 drop rejects", func() {
		current := good()
		current.F1 = 0.99
		_, rec := s.gate.assess(good(), &current)
		s.Equal(Reject, rec)
	})

	s.Run("fpr rise is a regression", func() {
		current := good()
		current.F1 = 0.9
		current.FalsePositiveRate = 0.0
		m := good()
		m.FalsePositiveRate = 0.03
		issues, rec := s.gate.assess(m, &current)
		s.Require().Len(issues, 1)
		s.Equal("false_positive_rate_regression", issues[0].Check)
		s.Equal(ManualReview, rec)
	})
}

func TestFromConfusion(t *testing.T) {
	m := FromConfusion(ConfusionMatrix{TruePositives: 90, FalsePositives: 10, TrueNegatives: 880, FalseNegatives: 20})
	cases := map[string][2]float64{
		"accuracy":  {m.Accuracy, 0.97},
		"precision": {m.Precision, 0.9},
		"recall":    {m.Recall, 90.0 / 110.0},
		"fpr":       {m.FalsePositiveRate, 10.0 / 890.0},
	}
	for name, c := range cases {
		if d := c[0] - c[1]; d > 1e-12 || d < -1e-12 {
			t.Errorf("%s = %v, want %v", name, c[0], c[1])
		}
	}

	empty := FromConfusion(ConfusionMatrix{})
	if empty.F1 != 0 || empty.Precision != 0 {
		t.Errorf("empty matrix should yield zero metrics, got %+v", empty)
	}
}

func TestSplit(t *testing.T) {
	samples := labeled(testutil.LegitLocalParts(100, 1), ensemble.Legit)
	train, holdout := Split(samples, 0.2, rand.New(rand.NewPCG(1, 2)))
	if len(train) != 80 || len(holdout) != 20 {
		t.Fatalf("split sizes = %d/%d, want 80/20", len(train), len(holdout))
	}
	seen := make(map[string]int)
	for _, s := range append(train, holdout...) {
		seen[s.Identifier]++
	}
	for _, s := range samples {
		seen[s.Identifier]--
	}
	for id, n := range seen {
		if n != 0 {
			t.Fatalf("identifier %q count off by %d after split", id, n)
		}
	}
}
