// Package markov implements the character-level n-gram model that scores how
// natural an identifier's local part looks to one class (legit or fraud).
//
// A Model is mutated only while a pipeline run trains it. Once published as an
// artifact it is treated as immutable: readers load a fresh copy with FromJSON
// and incremental training works on a Clone.
package markov

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

const (
	MinOrder = 1
	MaxOrder = 3

	// DefaultSkipThreshold is the cross-entropy (bits/char) below which a
	// sample counts as already well predicted for adaptive skipping.
	DefaultSkipThreshold = 1.5
)

// FullBatch disables adaptive skipping; every sample is counted.
var FullBatch = math.Inf(-1)

var ErrInvalidOrder = errors.New("markov: order must be between 1 and 3")

// state holds next-character counts for one context. total always equals the
// sum of next.
type state struct {
	next  map[byte]uint32
	total uint32
}

// Model is a character n-gram model of one class.
type Model struct {
	order         int
	states        map[string]*state
	trainingCount int
	skipThreshold float64
	rng           *rand.Rand
}

// Option configures a Model.
type Option func(*Model)

// WithSkipThreshold overrides the adaptive-skipping cross-entropy threshold.
func WithSkipThreshold(bits float64) Option {
	return func(m *Model) {
		m.skipThreshold = bits
	}
}

// WithRand injects the random source used for adaptive skipping.
func WithRand(rng *rand.Rand) Option {
	return func(m *Model) {
		if rng != nil {
			m.rng = rng
		}
	}
}

// New creates an empty model of the given order.
func New(order int, opts ...Option) (*Model, error) {
	if order < MinOrder || order > MaxOrder {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOrder, order)
	}
	m := &Model{
		order:         order,
		states:        make(map[string]*state),
		skipThreshold: DefaultSkipThreshold,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		seed := uint64(time.Now().UnixNano())
		m.rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return m, nil
}

// Order returns the number of characters per n-gram.
func (m *Model) Order() int { return m.order }

// TrainingCount returns how many samples were actually counted.
func (m *Model) TrainingCount() int { return m.trainingCount }

// StateCount returns the number of distinct contexts seen.
func (m *Model) StateCount() int { return len(m.states) }

// Train counts every (context, next) transition of the normalized sample and
// reports whether the model changed.
//
// Unless adaptationRate is FullBatch, a sample the model already predicts
// with cross-entropy below the skip threshold is declined with probability
// adaptationRate (clamped to [0,1]). This keeps frequent shapes from
// reinforcing themselves without bound during incremental updates.
func (m *Model) Train(sample string, adaptationRate float64) bool {
	s := Normalize(sample)
	if len(s) < m.order {
		return false
	}

	if !math.IsInf(adaptationRate, -1) && adaptationRate > 0 && m.trainingCount > 0 {
		if m.crossEntropy(s) < m.skipThreshold && m.rng.Float64() < min(adaptationRate, 1) {
			return false
		}
	}

	ctxLen := m.order - 1
	for i := ctxLen; i < len(s); i++ {
		context := s[i-ctxLen : i]
		st, ok := m.states[context]
		if !ok {
			st = &state{next: make(map[byte]uint32)}
			m.states[context] = st
		}
		st.next[s[i]]++
		st.total++
	}
	m.trainingCount++
	return true
}

// CrossEntropy returns the mean per-character surprise, in bits, of the
// normalized sample under this model. Unseen transitions keep a finite cost
// through add-one smoothing. Samples shorter than the order score +Inf.
func (m *Model) CrossEntropy(sample string) float64 {
	return m.crossEntropy(Normalize(sample))
}

func (m *Model) crossEntropy(s string) float64 {
	if len(s) < m.order {
		return math.Inf(1)
	}

	ctxLen := m.order - 1
	var sum float64
	n := 0
	for i := ctxLen; i < len(s); i++ {
		var count, total uint32
		if st, ok := m.states[s[i-ctxLen:i]]; ok {
			count = st.next[s[i]]
			total = st.total
		}
		p := float64(count+1) / float64(total+vocabularySize)
		sum -= math.Log2(p)
		n++
	}
	return sum / float64(n)
}

// Clone returns a deep copy that can be trained without touching m. Options
// apply to the copy only.
func (m *Model) Clone(opts ...Option) *Model {
	c := &Model{
		order:         m.order,
		states:        make(map[string]*state, len(m.states)),
		trainingCount: m.trainingCount,
		skipThreshold: m.skipThreshold,
		rng:           m.rng,
	}
	for context, st := range m.states {
		next := make(map[byte]uint32, len(st.next))
		for ch, n := range st.next {
			next[ch] = n
		}
		c.states[context] = &state{next: next, total: st.total}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
