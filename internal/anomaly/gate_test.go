package anomaly

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"idscore/internal/ensemble"
	"idscore/internal/labeling"
	"idscore/pkg/testutil"
)

// =============================================================================
// Anomaly Gate Test Suite
// =============================================================================
// Justification for unit tests: the gate is the only defense against a
// poisoned batch, and each scenario below is an attack shape that must be
// refused (or a normal batch that must not be).

type GateSuite struct {
	suite.Suite
	gate    *Gate
	history []Volume
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateSuite))
}

func (s *GateSuite) SetupTest() {
	s.gate = NewGate(DefaultConfig())
	s.history = []Volume{{Fraud: 150, Legit: 850}}
}

func batch(fraud, legit []string) labeling.Batch {
	b := labeling.Batch{}
	for _, id := range fraud {
		b.Fraud = append(b.Fraud, labeling.Sample{Identifier: id, Label: ensemble.Fraud})
	}
	for _, id := range legit {
		b.Legit = append(b.Legit, labeling.Sample{Identifier: id, Label: ensemble.Legit})
	}
	return b
}

func (s *GateSuite) TestNormalBatchIsSafe() {
	b := batch(testutil.FraudLocalParts(140, 1), testutil.LegitLocalParts(860, 2))
	r := s.gate.Check(b, s.history)

	s.True(r.Safe)
	s.Less(r.Score, 0.5)
	s.Empty(r.Alerts)
	s.Require().NotNil(r.Baseline)
	s.InDelta(150.0, r.Baseline.Fraud, 1e-9)
}

func (s *GateSuite) TestIdenticalFraudFlood() {
	b := batch(testutil.Repeat("abc123xyz", 900), testutil.LegitLocalParts(100, 2))
	r := s.gate.Check(b, s.history)

	s.False(r.Safe)
	s.True(r.HasAlert(AlertLowDiversity))
	s.True(r.HasAlert(AlertVolumeSpike))
	s.True(r.HasAlert(AlertDistributionShift))
	s.InDelta(1.0, r.Score, 1e-9)
}

func (s *GateSuite) TestVolumeSpike() {
	s.Run("ten times the fraud average is unsafe", func() {
		b := batch(testutil.FraudLocalParts(1500, 3), testutil.LegitLocalParts(850, 4))
		r := s.gate.Check(b, s.history)
		s.False(r.Safe)
		s.True(r.HasAlert(AlertVolumeSpike))
	})

	s.Run("ten times both classes is unsafe", func() {
		b := batch(testutil.FraudLocalParts(1500, 3), testutil.LegitLocalParts(8500, 4))
		r := s.gate.Check(b, s.history)
		s.False(r.Safe)
		s.False(r.HasAlert(AlertDistributionShift))
	})

	s.Run("historical average volume is safe", func() {
		b := batch(testutil.FraudLocalParts(150, 5), testutil.LegitLocalParts(850, 6))
		r := s.gate.Check(b, s.history)
		s.True(r.Safe)
		s.Zero(r.Score)
	})

	s.Run("spike contribution is capped", func() {
		b := batch(testutil.FraudLocalParts(150, 5), testutil.LegitLocalParts(850*30, 6))
		r := s.gate.Check(b, []Volume{{Fraud: 150, Legit: 850}})
		s.Require().True(r.HasAlert(AlertVolumeSpike))
		for _, a := range r.Alerts {
			if a.Type == AlertVolumeSpike {
				s.InDelta(0.6, a.Score, 1e-9)
			}
		}
	})

	s.Run("baseline averages every run", func() {
		history := []Volume{{Fraud: 100, Legit: 800}, {Fraud: 200, Legit: 900}}
		b := batch(testutil.FraudLocalParts(150, 7), testutil.LegitLocalParts(850, 8))
		r := s.gate.Check(b, history)
		s.Require().NotNil(r.Baseline)
		s.Equal(2, r.Baseline.Runs)
		s.InDelta(850.0, r.Baseline.Legit, 1e-9)
	})
}

func (s *GateSuite) TestNoHistorySkipsVolume() {
	b := batch(testutil.FraudLocalParts(150, 9), testutil.LegitLocalParts(850, 10))
	r := s.gate.Check(b, nil)
	s.True(r.Safe)
	s.Nil(r.Baseline)
}

func (s *GateSuite) TestDistributionShiftAlone() {
	b := batch(testutil.FraudLocalParts(400, 11), testutil.LegitLocalParts(600, 12))
	r := s.gate.Check(b, nil)
	s.True(r.HasAlert(AlertDistributionShift))
	s.InDelta(0.3, r.Score, 1e-9)
	s.True(r.Safe)
}

func (s *GateSuite) TestConfigurableThreshold() {
	strict := NewGate(Config{Threshold: 0.5})
	b := batch(testutil.Repeat("aaaa1111", 200), testutil.LegitLocalParts(800, 13))
	r := strict.Check(b, nil)
	s.True(r.HasAlert(AlertLowDiversity))
	s.InDelta(0.5, r.Score, 1e-9)
	s.False(r.Safe)

	relaxed := s.gate.Check(b, nil)
	s.True(relaxed.Safe)
}

func TestPattern(t *testing.T) {
	cases := map[string]string{
		"john.smith87": "aaaa.aaaaaNN",
		"user_123":     "aaaa_NNN",
		"":             "",
	}
	for in, want := range cases {
		if got := Pattern(in); got != want {
			t.Errorf("Pattern(%q) = %q, want %q", in, got, want)
		}
	}

	if d := PatternDiversity([]string{"ab12", "cd34", "ef"}); d < 0.66 || d > 0.67 {
		t.Errorf("PatternDiversity = %v, want 2/3", d)
	}
}
