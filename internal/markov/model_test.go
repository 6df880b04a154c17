package markov

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/suite"

	"idscore/pkg/testutil"
)

// =============================================================================
// Markov Model Test Suite
// =============================================================================
// Justification for unit tests: the model is the numeric core every decision
// rests on. Counting, smoothing and snapshot fidelity must hold exactly, and
// none of it is observable through the HTTP surface.

type ModelSuite struct {
	suite.Suite
}

func TestModelSuite(t *testing.T) {
	suite.Run(t, new(ModelSuite))
}

func seeded(seed uint64) Option {
	return WithRand(rand.New(rand.NewPCG(seed, seed+1)))
}

func (s *ModelSuite) trained(order int, samples []string) *Model {
	m, err := New(order, seeded(7))
	s.Require().NoError(err)
	for _, sample := range samples {
		m.Train(sample, FullBatch)
	}
	return m
}

func (s *ModelSuite) TestNew() {
	s.Run("rejects orders outside 1..3", func() {
		for _, order := range []int{0, 4, -1} {
			_, err := New(order)
			s.ErrorIs(err, ErrInvalidOrder)
		}
	})

	s.Run("starts empty", func() {
		m, err := New(2)
		s.Require().NoError(err)
		s.Equal(2, m.Order())
		s.Zero(m.TrainingCount())
		s.Zero(m.StateCount())
	})
}

func (s *ModelSuite) TestTrain() {
	s.Run("counts every transition of the sample", func() {
		m := s.trained(2, []string{"abab"})
		s.Equal(1, m.TrainingCount())
		s.Equal(uint32(2), m.states["a"].next['b'])
		s.Equal(uint32(1), m.states["b"].next['a'])
		s.Equal(uint32(2), m.states["a"].total)
	})

	s.Run("normalizes before counting", func() {
		m := s.trained(2, []string{"A!B"})
		s.Equal(uint32(1), m.states["a"].next['b'])
	})

	s.Run("ignores samples shorter than the order", func() {
		m, err := New(3)
		s.Require().NoError(err)
		s.False(m.Train("ab", FullBatch))
		s.Zero(m.TrainingCount())
	})

	s.Run("totals always equal the sum of counts", func() {
		for order := MinOrder; order <= MaxOrder; order++ {
			m := s.trained(order, testutil.LegitLocalParts(500, 3))
			for context, st := range m.states {
				var sum uint32
				for _, n := range st.next {
					sum += n
				}
				s.Equal(sum, st.total, "order %d context %q", order, context)
			}
		}
	})

	s.Run("full batch never skips", func() {
		m := s.trained(2, testutil.Repeat("aaaa", 200))
		s.Equal(200, m.TrainingCount())
		s.True(m.Train("aaaa", FullBatch))
	})

	s.Run("rate one skips samples the model already predicts well", func() {
		m := s.trained(2, testutil.Repeat("aaaa", 200))
		s.Less(m.CrossEntropy("aaaa"), DefaultSkipThreshold)
		s.False(m.Train("aaaa", 1.0))
		s.Equal(200, m.TrainingCount())
	})

	s.Run("rate one still counts surprising samples", func() {
		m := s.trained(2, testutil.Repeat("aaaa", 200))
		s.True(m.Train("zx9q", 1.0))
	})

	s.Run("first sample is always counted", func() {
		m, err := New(2, seeded(1))
		s.Require().NoError(err)
		s.True(m.Train("abc", 1.0))
	})
}

func (s *ModelSuite) TestCrossEntropy() {
	s.Run("short samples score infinity", func() {
		m := s.trained(3, []string{"abcdef"})
		s.True(math.IsInf(m.CrossEntropy("ab"), 1))
		s.True(math.IsInf(m.CrossEntropy(""), 1))
	})

	s.Run("empty model scores uniform surprise", func() {
		m, err := New(2)
		s.Require().NoError(err)
		s.InDelta(math.Log2(vocabularySize), m.CrossEntropy("abc"), 1e-12)
	})

	s.Run("seen shapes score lower than unseen ones", func() {
		m := s.trained(2, testutil.LegitLocalParts(2000, 11))
		seen := m.CrossEntropy("john.smith")
		unseen := m.CrossEntropy("x9z8q7")
		s.False(math.IsInf(seen, 0))
		s.Less(seen, unseen)
	})
}

func (s *ModelSuite) TestClone() {
	m := s.trained(2, []string{"abc"})
	c := m.Clone()
	c.Train("abd", FullBatch)

	s.Equal(1, m.TrainingCount())
	s.Equal(2, c.TrainingCount())
	s.Zero(m.states["b"].next['d'])
	s.Equal(uint32(1), c.states["b"].next['d'])
}

func (s *ModelSuite) TestCloneWithRandSkipsReproducibly() {
	seen := testutil.LegitLocalParts(400, 7)
	base := s.trained(3, seen)
	count := base.TrainingCount()
	again := testutil.LegitLocalParts(200, 7)

	run := func(seed uint64) []bool {
		c := base.Clone(WithRand(rand.New(rand.NewPCG(seed, seed^1))))
		out := make([]bool, 0, len(again))
		for _, id := range again {
			out = append(out, c.Train(id, 0.5))
		}
		return out
	}
	s.Equal(run(3), run(3))
	s.Equal(count, base.TrainingCount())
}

func (s *ModelSuite) TestSnapshot() {
	samples := append(testutil.LegitLocalParts(300, 5), testutil.FraudLocalParts(300, 6)...)

	s.Run("round trip scores bit for bit", func() {
		for order := MinOrder; order <= MaxOrder; order++ {
			m := s.trained(order, samples)
			data, err := json.Marshal(m)
			s.Require().NoError(err)

			loaded, err := FromJSON(data)
			s.Require().NoError(err)
			s.Equal(m.TrainingCount(), loaded.TrainingCount())
			s.Equal(m.StateCount(), loaded.StateCount())
			for _, id := range []string{"john.smith", "qp4k8j2mx", "a", "zz"} {
				want, got := m.CrossEntropy(id), loaded.CrossEntropy(id)
				s.Equal(math.Float64bits(want), math.Float64bits(got), "order %d id %q", order, id)
			}
		}
	})

	s.Run("encoding is deterministic", func() {
		m := s.trained(3, samples)
		first, err := json.Marshal(m)
		s.Require().NoError(err)
		second, err := json.Marshal(m)
		s.Require().NoError(err)
		s.Equal(first, second)
	})

	s.Run("uses the documented wire shape", func() {
		m := s.trained(2, []string{"ab"})
		data, err := json.Marshal(m)
		s.Require().NoError(err)
		s.JSONEq(`{"order":2,"trainingCount":1,"states":[{"context":"a","nextChars":[["b",1]],"totalTransitions":1}]}`, string(data))
	})

	s.Run("rejects totals that disagree with counts", func() {
		_, err := FromJSON([]byte(`{"order":2,"trainingCount":1,"states":[{"context":"a","nextChars":[["b",1]],"totalTransitions":5}]}`))
		s.ErrorIs(err, ErrCorruptSnapshot)
	})

	s.Run("rejects contexts that do not match the order", func() {
		_, err := FromJSON([]byte(`{"order":3,"trainingCount":1,"states":[{"context":"a","nextChars":[["b",1]],"totalTransitions":1}]}`))
		s.ErrorIs(err, ErrCorruptSnapshot)
	})

	s.Run("rejects malformed pairs", func() {
		_, err := FromJSON([]byte(`{"order":2,"trainingCount":1,"states":[{"context":"a","nextChars":[["bc",1]],"totalTransitions":1}]}`))
		s.ErrorIs(err, ErrCorruptSnapshot)
	})

	s.Run("rejects invalid order", func() {
		_, err := FromJSON([]byte(`{"order":9,"trainingCount":0,"states":[]}`))
		s.ErrorIs(err, ErrInvalidOrder)
	})
}

func TestLocalPart(t *testing.T) {
	cases := map[string]string{
		"John.Doe@Example.com":           "john.doe",
		"<mailto:John..Doe@x.com>,":      "john.doe",
		`"jane smith"@corp.io`:           "janesmith",
		"  bob+news@mail.net ; ":         "bob+news",
		"no-at-sign":                     "no-at-sign",
		"weird@local@host.com":           "weirdlocal",
		"[qp4k8j2mx@throwaway.example]":  "qp4k8j2mx",
		"":                               "",
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			if got := LocalPart(in); got != want {
				t.Errorf("LocalPart(%q) = %q, want %q", in, got, want)
			}
		})
	}
}
