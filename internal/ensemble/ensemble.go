// Package ensemble reconciles per-order Markov predictions into one verdict.
//
// Every order contributes a Prediction computed from the cross-entropy of the
// identifier under its legit and fraud models. A Strategy then combines those
// predictions: Cascade for live scoring, Weighted for deterministic batch
// scoring during validation.
package ensemble

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"idscore/internal/markov"
)

// Label is a class verdict.
type Label string

const (
	Legit Label = "legit"
	Fraud Label = "fraud"
)

// Pair holds the two class models of one order.
type Pair struct {
	Legit *markov.Model
	Fraud *markov.Model
}

// Prediction is the verdict of a single order.
type Prediction struct {
	Order        int     `json:"order"`
	Label        Label   `json:"prediction"`
	Confidence   float64 `json:"confidence"`
	LegitEntropy float64 `json:"legit_entropy"`
	FraudEntropy float64 `json:"fraud_entropy"`
}

// Result is the reconciled verdict.
type Result struct {
	Label      Label        `json:"prediction"`
	Confidence float64      `json:"confidence"`
	Reasoning  string       `json:"reasoning"`
	PerOrder   []Prediction `json:"per_order,omitempty"`
}

var ErrIncompletePair = errors.New("ensemble: both class models are required")

// Ensemble is an immutable set of model pairs keyed by order.
type Ensemble struct {
	pairs  map[int]Pair
	orders []int
}

// New validates the pairs and builds an Ensemble. Each pair's models must
// have the order they are keyed under.
func New(pairs map[int]Pair) (*Ensemble, error) {
	if len(pairs) == 0 {
		return nil, errors.New("ensemble: at least one order is required")
	}
	e := &Ensemble{pairs: make(map[int]Pair, len(pairs))}
	for order, p := range pairs {
		if p.Legit == nil || p.Fraud == nil {
			return nil, fmt.Errorf("%w: order %d", ErrIncompletePair, order)
		}
		if p.Legit.Order() != order || p.Fraud.Order() != order {
			return nil, fmt.Errorf("ensemble: pair keyed %d holds orders %d/%d", order, p.Legit.Order(), p.Fraud.Order())
		}
		e.pairs[order] = p
		e.orders = append(e.orders, order)
	}
	slices.Sort(e.orders)
	return e, nil
}

// Orders returns the model orders in ascending order.
func (e *Ensemble) Orders() []int {
	return slices.Clone(e.orders)
}

// Pair returns the models of one order.
func (e *Ensemble) Pair(order int) (Pair, bool) {
	p, ok := e.pairs[order]
	return p, ok
}

// Predict scores the identifier under every order, ascending.
func (e *Ensemble) Predict(identifier string) []Prediction {
	sample := markov.Normalize(identifier)
	out := make([]Prediction, 0, len(e.orders))
	for _, order := range e.orders {
		out = append(out, Classify(e.pairs[order], sample))
	}
	return out
}

// Classify runs the strategy over every order's prediction.
func (e *Ensemble) Classify(identifier string, strategy Strategy) Result {
	preds := e.Predict(identifier)
	res := strategy.Combine(preds)
	res.PerOrder = preds
	return res
}

// Classify scores one identifier against a single order's model pair.
func Classify(p Pair, identifier string) Prediction {
	return FromEntropies(p.Legit.Order(), p.Legit.CrossEntropy(identifier), p.Fraud.CrossEntropy(identifier))
}

// FromEntropies turns the two class cross-entropies into a prediction. The
// class whose model finds the identifier less surprising wins; confidence is
// the relative gap, 2·|ΔH|/max(H), capped at 1.
func FromEntropies(order int, legitH, fraudH float64) Prediction {
	p := Prediction{Order: order, Label: Legit, LegitEntropy: legitH, FraudEntropy: fraudH}
	if math.IsInf(legitH, 1) || math.IsInf(fraudH, 1) {
		return p
	}
	hi := math.Max(legitH, fraudH)
	if hi <= 0 {
		return p
	}
	if fraudH < legitH {
		p.Label = Fraud
	}
	p.Confidence = math.Min(1, 2*math.Abs(legitH-fraudH)/hi)
	return p
}
