package validation

import (
	"math/rand/v2"
	"slices"

	"idscore/internal/ensemble"
	"idscore/internal/labeling"
)

// ConfusionMatrix counts outcomes with fraud as the positive class.
type ConfusionMatrix struct {
	TruePositives  int `json:"tp"`
	FalsePositives int `json:"fp"`
	TrueNegatives  int `json:"tn"`
	FalseNegatives int `json:"fn"`
}

func (c *ConfusionMatrix) add(truth, predicted ensemble.Label) {
	switch {
	case truth == ensemble.Fraud && predicted == ensemble.Fraud:
		c.TruePositives++
	case truth == ensemble.Fraud:
		c.FalseNegatives++
	case predicted == ensemble.Fraud:
		c.FalsePositives++
	default:
		c.TrueNegatives++
	}
}

func (c ConfusionMatrix) Total() int {
	return c.TruePositives + c.FalsePositives + c.TrueNegatives + c.FalseNegatives
}

// Metrics are derived from a confusion matrix over the holdout.
type Metrics struct {
	Accuracy          float64         `json:"accuracy"`
	Precision         float64         `json:"precision"`
	Recall            float64         `json:"recall"`
	F1                float64         `json:"f1"`
	FalsePositiveRate float64         `json:"false_positive_rate"`
	Confusion         ConfusionMatrix `json:"confusion"`
}

// FromConfusion derives Metrics. Undefined ratios are reported as zero.
func FromConfusion(c ConfusionMatrix) Metrics {
	m := Metrics{Confusion: c}
	tp, fp, tn, fn := float64(c.TruePositives), float64(c.FalsePositives), float64(c.TrueNegatives), float64(c.FalseNegatives)
	m.Accuracy = ratio(tp+tn, tp+fp+tn+fn)
	m.Precision = ratio(tp, tp+fp)
	m.Recall = ratio(tp, tp+fn)
	m.FalsePositiveRate = ratio(fp, fp+tn)
	m.F1 = ratio(2*m.Precision*m.Recall, m.Precision+m.Recall)
	return m
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// Evaluate scores every holdout sample with the strategy.
func Evaluate(e *ensemble.Ensemble, strategy ensemble.Strategy, holdout []labeling.Sample) Metrics {
	var c ConfusionMatrix
	for _, s := range holdout {
		c.add(s.Label, e.Classify(s.Identifier, strategy).Label)
	}
	return FromConfusion(c)
}

// Split shuffles a copy of samples and returns (train, holdout) with
// holdout holding the given fraction of them, rounded down.
func Split(samples []labeling.Sample, fraction float64, rng *rand.Rand) (train, holdout []labeling.Sample) {
	shuffled := slices.Clone(samples)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	n := int(float64(len(shuffled)) * min(max(fraction, 0), 1))
	return shuffled[n:], shuffled[:n]
}
