package labeling

import (
	"errors"
	"fmt"

	"idscore/internal/ensemble"
)

// ErrBatchRejected is returned by the QualityGate.
var ErrBatchRejected = errors.New("training batch rejected")

// Stats summarises one labeling pass.
type Stats struct {
	Observations        int     `json:"observations"`
	Fraud               int     `json:"fraud"`
	Legit               int     `json:"legit"`
	Ambiguous           int     `json:"ambiguous"`
	Empty               int     `json:"empty"`
	MeanFraudConfidence float64 `json:"mean_fraud_confidence"`
	MeanLegitConfidence float64 `json:"mean_legit_confidence"`
}

// Batch is the transient set of labeled samples of one pipeline run.
type Batch struct {
	Fraud []Sample
	Legit []Sample
	Stats Stats
}

// BuildBatch labels every observation and keeps the confident ones.
func (l *Labeler) BuildBatch(observations []Observation) Batch {
	b := Batch{Stats: Stats{Observations: len(observations)}}
	var fraudConf, legitConf float64
	for _, obs := range observations {
		sample := l.Label(obs)
		if sample.Identifier == "" {
			b.Stats.Empty++
			continue
		}
		switch sample.Label {
		case ensemble.Fraud:
			b.Fraud = append(b.Fraud, sample)
			fraudConf += sample.Confidence
		case ensemble.Legit:
			b.Legit = append(b.Legit, sample)
			legitConf += sample.Confidence
		default:
			b.Stats.Ambiguous++
		}
	}
	b.Stats.Fraud = len(b.Fraud)
	b.Stats.Legit = len(b.Legit)
	if b.Stats.Fraud > 0 {
		b.Stats.MeanFraudConfidence = fraudConf / float64(b.Stats.Fraud)
	}
	if b.Stats.Legit > 0 {
		b.Stats.MeanLegitConfidence = legitConf / float64(b.Stats.Legit)
	}
	return b
}

// Identifiers returns the identifiers of samples, in order.
func Identifiers(samples []Sample) []string {
	out := make([]string, len(samples))
	for i, s := range samples {
		out[i] = s.Identifier
	}
	return out
}

const (
	DefaultMinPerClass   = 50
	DefaultMaxClassRatio = 10.0
)

// QualityGate rejects batches that are too small, too lopsided, or whose
// classes share an identifier.
type QualityGate struct {
	MinPerClass   int     `mapstructure:"min_per_class"`
	MaxClassRatio float64 `mapstructure:"max_class_ratio"`
}

func DefaultQualityGate() QualityGate {
	return QualityGate{MinPerClass: DefaultMinPerClass, MaxClassRatio: DefaultMaxClassRatio}
}

// Check returns an error wrapping ErrBatchRejected on the first failed rule.
func (g QualityGate) Check(b Batch) error {
	fraud, legit := len(b.Fraud), len(b.Legit)
	if fraud < g.MinPerClass || legit < g.MinPerClass {
		return fmt.Errorf("%w: need %d per class, have fraud=%d legit=%d", ErrBatchRejected, g.MinPerClass, fraud, legit)
	}
	hi, lo := max(fraud, legit), min(fraud, legit)
	if float64(hi) > g.MaxClassRatio*float64(lo) {
		return fmt.Errorf("%w: class ratio %.1f:1 exceeds %.1f:1", ErrBatchRejected, float64(hi)/float64(lo), g.MaxClassRatio)
	}

	fraudIDs := make(map[string]struct{}, fraud)
	for _, s := range b.Fraud {
		fraudIDs[s.Identifier] = struct{}{}
	}
	overlap := 0
	example := ""
	for _, s := range b.Legit {
		if _, ok := fraudIDs[s.Identifier]; ok {
			if overlap == 0 {
				example = s.Identifier
			}
			overlap++
		}
	}
	if overlap > 0 {
		return fmt.Errorf("%w: %d identifiers labeled both classes (e.g. %q)", ErrBatchRejected, overlap, example)
	}
	return nil
}
