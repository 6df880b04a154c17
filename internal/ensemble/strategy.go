package ensemble

import "math"

// Reasoning identifiers recorded on every Result.
const (
	ReasonBothAgree            = "both_agree_high_confidence"
	ReasonHigherOrderConfident = "higher_order_confident"
	ReasonGibberish            = "gibberish_detected"
	ReasonDisagreeLowerOrder   = "disagreement_default_lower_order"
	ReasonHigherConfidence     = "higher_confidence_wins"
	ReasonSingleOrder          = "single_order"
	ReasonWeighted             = "weighted_vote"
	ReasonNoPrediction         = "no_prediction"
)

// Cascade thresholds.
const (
	agreeMinConfidence     = 0.3
	higherMinConfidence    = 0.5
	higherDominanceFactor  = 1.5
	gibberishMinConfidence = 0.2
	// gibberishFraudEntropy is in nats; Prediction entropies are in bits.
	gibberishFraudEntropy  = 6.0
)

// Strategy combines per-order predictions (ascending by order) into a Result.
type Strategy interface {
	Name() string
	Combine(preds []Prediction) Result
}

// Cascade reconciles a lower and a higher order with an ordered rule list;
// the first rule that matches decides.
type Cascade struct {
	Lower  int
	Higher int
}

// DefaultCascade pairs the bigram and trigram models.
func DefaultCascade() Cascade {
	return Cascade{Lower: 2, Higher: 3}
}

func (c Cascade) Name() string { return "cascade" }

func (c Cascade) Combine(preds []Prediction) Result {
	lower, hasLower := find(preds, c.Lower)
	higher, hasHigher := find(preds, c.Higher)
	switch {
	case hasLower && hasHigher:
		return c.decide(lower, higher)
	case hasLower:
		return single(lower)
	case hasHigher:
		return single(higher)
	case len(preds) > 0:
		return single(preds[len(preds)-1])
	}
	return Result{Label: Legit, Reasoning: ReasonNoPrediction}
}

func (c Cascade) decide(lower, higher Prediction) Result {
	switch {
	case lower.Label == higher.Label &&
		lower.Confidence > agreeMinConfidence && higher.Confidence > agreeMinConfidence:
		return Result{
			Label:      lower.Label,
			Confidence: max(lower.Confidence, higher.Confidence),
			Reasoning:  ReasonBothAgree,
		}
	case higher.Confidence > higherMinConfidence &&
		higher.Confidence >= higherDominanceFactor*lower.Confidence:
		return from(higher, ReasonHigherOrderConfident)
	case lower.Label == Fraud && lower.Confidence > gibberishMinConfidence &&
		lower.FraudEntropy*math.Ln2 > gibberishFraudEntropy:
		return from(lower, ReasonGibberish)
	case lower.Label != higher.Label:
		return from(lower, ReasonDisagreeLowerOrder)
	case higher.Confidence > lower.Confidence:
		return from(higher, ReasonHigherConfidence)
	default:
		return from(lower, ReasonHigherConfidence)
	}
}

// Weighted sums weight·confidence per predicted class. Orders without a
// weight are ignored; ties go to legit.
type Weighted struct {
	Weights map[int]float64
}

// DefaultWeighted uses the fixed batch-scoring weights.
func DefaultWeighted() Weighted {
	return Weighted{Weights: map[int]float64{1: 0.2, 2: 0.5, 3: 0.3}}
}

func (w Weighted) Name() string { return "weighted" }

func (w Weighted) Combine(preds []Prediction) Result {
	var legit, fraud, total float64
	for _, p := range preds {
		weight, ok := w.Weights[p.Order]
		if !ok {
			continue
		}
		total += weight
		if p.Label == Fraud {
			fraud += weight * p.Confidence
		} else {
			legit += weight * p.Confidence
		}
	}
	if total == 0 {
		return Result{Label: Legit, Reasoning: ReasonNoPrediction}
	}
	res := Result{Label: Legit, Reasoning: ReasonWeighted}
	if fraud > legit {
		res.Label = Fraud
	}
	res.Confidence = min(1, math.Abs(fraud-legit)/total)
	return res
}

func find(preds []Prediction, order int) (Prediction, bool) {
	for _, p := range preds {
		if p.Order == order {
			return p, true
		}
	}
	return Prediction{}, false
}

func single(p Prediction) Result {
	return from(p, ReasonSingleOrder)
}

func from(p Prediction, reasoning string) Result {
	return Result{Label: p.Label, Confidence: p.Confidence, Reasoning: reasoning}
}
