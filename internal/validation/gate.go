// Package validation decides whether a freshly trained ensemble may replace
// the deployed one, by scoring both on the same held-out samples.
package validation

import (
	"errors"
	"fmt"

	"idscore/internal/ensemble"
	"idscore/internal/labeling"
)

// Recommendation is the gate's verdict.
type Recommendation string

const (
	Deploy       Recommendation = "deploy"
	Reject       Recommendation = "reject"
	ManualReview Recommendation = "manual_review"
)

var ErrEmptyHoldout = errors.New("validation: holdout set is empty")

// Thresholds are the floors and regression limits the candidate must meet.
type Thresholds struct {
	MinAccuracy      float64 `json:"min_accuracy" mapstructure:"min_accuracy"`
	MinPrecision     float64 `json:"min_precision" mapstructure:"min_precision"`
	MinRecall        float64 `json:"min_recall" mapstructure:"min_recall"`
	MaxFPR           float64 `json:"max_fpr" mapstructure:"max_fpr"`
	MinF1            float64 `json:"min_f1" mapstructure:"min_f1"`
	MinF1Improvement float64 `json:"min_f1_improvement" mapstructure:"min_f1_improvement"`
	MaxRegression    float64 `json:"max_regression" mapstructure:"max_regression"`
	SevereF1Drop     float64 `json:"severe_f1_drop" mapstructure:"severe_f1_drop"`
	RejectAccuracy   float64 `json:"reject_accuracy" mapstructure:"reject_accuracy"`
	RejectIssueCount int     `json:"reject_issue_count" mapstructure:"reject_issue_count"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinAccuracy:      0.95,
		MinPrecision:     0.90,
		MinRecall:        0.85,
		MaxFPR:           0.05,
		MinF1:            0.87,
		MinF1Improvement: 0.01,
		MaxRegression:    0.02,
		SevereF1Drop:     0.05,
		RejectAccuracy:   0.85,
		RejectIssueCount: 3,
	}
}

// Issue is one failed check.
type Issue struct {
	Check   string  `json:"check"`
	Value   float64 `json:"value"`
	Limit   float64 `json:"limit"`
	Message string  `json:"message"`
}

// Report is the outcome of one validation.
type Report struct {
	New            Metrics        `json:"new"`
	Current        *Metrics       `json:"current,omitempty"`
	Issues         []Issue        `json:"issues,omitempty"`
	Recommendation Recommendation `json:"recommendation"`
	HoldoutSize    int            `json:"holdout_size"`
	Strategy       string         `json:"strategy"`
}

// Gate compares candidate and production ensembles.
type Gate struct {
	thresholds Thresholds
	strategy   ensemble.Strategy
}

// Option configures a Gate.
type Option func(*Gate)

// WithStrategy overrides the batch-scoring strategy.
func WithStrategy(s ensemble.Strategy) Option {
	return func(g *Gate) {
		if s != nil {
			g.strategy = s
		}
	}
}

func NewGate(t Thresholds, opts ...Option) *Gate {
	g := &Gate{thresholds: t, strategy: ensemble.DefaultWeighted()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Validate scores the candidate, and production when present, on the holdout.
func (g *Gate) Validate(candidate, production *ensemble.Ensemble, holdout []labeling.Sample) (Report, error) {
	if candidate == nil {
		return Report{}, errors.New("validation: candidate ensemble is required")
	}
	if len(holdout) == 0 {
		return Report{}, ErrEmptyHoldout
	}

	r := Report{
		New:         Evaluate(candidate, g.strategy, holdout),
		HoldoutSize: len(holdout),
		Strategy:    g.strategy.Name(),
	}
	if production != nil {
		current := Evaluate(production, g.strategy, holdout)
		r.Current = &current
	}
	r.Issues, r.Recommendation = g.assess(r.New, r.Current)
	return r, nil
}

func (g *Gate) assess(m Metrics, current *Metrics) ([]Issue, Recommendation) {
	t := g.thresholds
	var issues []Issue
	floor := func(check string, value, limit float64) {
		if value < limit {
			issues = append(issues, Issue{check, value, limit, fmt.Sprintf("%s %.4f below %.2f", check, value, limit)})
		}
	}
	floor("accuracy", m.Accuracy, t.MinAccuracy)
	floor("precision", m.Precision, t.MinPrecision)
	floor("recall", m.Recall, t.MinRecall)
	floor("f1", m.F1, t.MinF1)
	if m.FalsePositiveRate > t.MaxFPR {
		issues = append(issues, Issue{"false_positive_rate", m.FalsePositiveRate, t.MaxFPR,
			fmt.Sprintf("false_positive_rate %.4f above %.2f", m.FalsePositiveRate, t.MaxFPR)})
	}

	severe := false
	if current != nil {
		if gain := m.F1 - current.F1; gain < t.MinF1Improvement {
			issues = append(issues, Issue{"f1_improvement", gain, t.MinF1Improvement,
				fmt.Sprintf("f1 improvement %.4f below %.2f", gain, t.MinF1Improvement)})
		}
		regress := func(check string, drop float64) {
			if drop > t.MaxRegression {
				issues = append(issues, Issue{check + "_regression", drop, t.MaxRegression,
					fmt.Sprintf("%s regressed by %.4f", check, drop)})
			}
		}
		regress("accuracy", current.Accuracy-m.Accuracy)
		regress("precision", current.Precision-m.Precision)
		regress("recall", current.Recall-m.Recall)
		regress("f1", current.F1-m.F1)
		regress("false_positive_rate", m.FalsePositiveRate-current.FalsePositiveRate)
		severe = current.F1-m.F1 > t.SevereF1Drop
	}

	switch {
	case len(issues) == 0:
		return nil, Deploy
	case len(issues) >= t.RejectIssueCount || m.Accuracy < t.RejectAccuracy || severe:
		return issues, Reject
	default:
		return issues, ManualReview
	}
}
