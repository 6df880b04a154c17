// Package labeling turns prior scoring outcomes into weak training labels.
//
// There is no ground truth: a sample is labeled only when independent
// indicators for one class fire, none fire for the other, and their mean
// weight clears the confidence floor. Everything else is ambiguous and never
// reaches a model.
package labeling

import (
	"strings"
	"time"

	"idscore/internal/ensemble"
	"idscore/internal/markov"
	platformstrings "idscore/pkg/platform/strings"
)

// Ambiguous marks samples excluded from training.
const Ambiguous ensemble.Label = "ambiguous"

// Decision is the action the live system took for an observation.
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionWarn  Decision = "warn"
	DecisionBlock Decision = "block"
)

const (
	// SourceHeuristic tags samples produced by the Labeler.
	SourceHeuristic = "heuristic"

	DefaultMinConfidence = 0.8
)

// Indicator weights and cutoffs.
const (
	blockedRiskFloor   = 0.7
	blockedWeight      = 0.9
	patternWeight      = 0.7
	highRiskFloor      = 0.8
	highRiskWeight     = 0.75
	allowedRiskCeiling = 0.3
	allowedWeight      = 0.9
	lowRiskCeiling     = 0.2
	lowRiskWeight      = 0.85
	botTrustFloor      = 0.8
	botTrustWeight     = 0.6
)

// DefaultFraudPatterns are the pattern families upstream detectors attach to
// known abuse shapes.
var DefaultFraudPatterns = []string{
	"sequential",
	"dated_sequential",
	"keyboard_walk",
	"random_string",
	"gibberish",
}

// Observation is one prior scoring outcome read from the analytics store.
type Observation struct {
	LocalPart     string
	Decision      Decision
	RiskScore     float64
	PatternFamily string
	// BotScore is the upstream bot-trust score in [0,1]; nil when unknown.
	BotScore   *float64
	ObservedAt time.Time
}

// Indicator is one heuristic that fired for a sample.
type Indicator struct {
	Name   string         `json:"name"`
	Class  ensemble.Label `json:"class"`
	Weight float64        `json:"weight"`
}

// Signals is the snapshot of inputs and indicators behind a label.
type Signals struct {
	Decision      Decision    `json:"decision"`
	RiskScore     float64     `json:"risk_score"`
	PatternFamily string      `json:"pattern_family,omitempty"`
	BotScore      *float64    `json:"bot_score,omitempty"`
	Indicators    []Indicator `json:"indicators"`
}

// Sample is a labeled training example.
type Sample struct {
	Identifier string         `json:"identifier"`
	Label      ensemble.Label `json:"label"`
	Confidence float64        `json:"confidence"`
	Source     string         `json:"source"`
	Signals    Signals        `json:"signals"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Labeler assigns weak labels.
type Labeler struct {
	minConfidence float64
	fraudPatterns map[string]struct{}
}

// Option configures a Labeler.
type Option func(*Labeler)

// WithMinConfidence sets the mean indicator weight a label needs.
func WithMinConfidence(v float64) Option {
	return func(l *Labeler) {
		if v > 0 {
			l.minConfidence = v
		}
	}
}

// WithFraudPatterns replaces the known fraud pattern families.
func WithFraudPatterns(patterns []string) Option {
	return func(l *Labeler) {
		l.fraudPatterns = toSet(patterns)
	}
}

func NewLabeler(opts ...Option) *Labeler {
	l := &Labeler{
		minConfidence: DefaultMinConfidence,
		fraudPatterns: toSet(DefaultFraudPatterns),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Label evaluates every indicator for the observation.
func (l *Labeler) Label(obs Observation) Sample {
	indicators := l.indicators(obs)
	sample := Sample{
		Identifier: markov.Normalize(obs.LocalPart),
		Label:      Ambiguous,
		Source:     SourceHeuristic,
		Signals: Signals{
			Decision:      obs.Decision,
			RiskScore:     obs.RiskScore,
			PatternFamily: obs.PatternFamily,
			BotScore:      obs.BotScore,
			Indicators:    indicators,
		},
		Timestamp: obs.ObservedAt,
	}

	fraudMean, fraudN := meanWeight(indicators, ensemble.Fraud)
	legitMean, legitN := meanWeight(indicators, ensemble.Legit)
	switch {
	case fraudN > 0 && legitN == 0 && fraudMean >= l.minConfidence:
		sample.Label, sample.Confidence = ensemble.Fraud, fraudMean
	case legitN > 0 && fraudN == 0 && legitMean >= l.minConfidence:
		sample.Label, sample.Confidence = ensemble.Legit, legitMean
	}
	return sample
}

func (l *Labeler) indicators(obs Observation) []Indicator {
	var out []Indicator
	fraud := func(name string, w float64) {
		out = append(out, Indicator{Name: name, Class: ensemble.Fraud, Weight: w})
	}
	legit := func(name string, w float64) {
		out = append(out, Indicator{Name: name, Class: ensemble.Legit, Weight: w})
	}

	if obs.Decision == DecisionBlock && obs.RiskScore >= blockedRiskFloor {
		fraud("blocked_high_risk", blockedWeight)
	}
	if _, ok := l.fraudPatterns[strings.ToLower(obs.PatternFamily)]; ok {
		fraud("known_fraud_pattern", patternWeight)
	}
	if obs.RiskScore >= highRiskFloor {
		fraud("very_high_risk", highRiskWeight)
	}

	if obs.Decision == DecisionAllow && obs.RiskScore < allowedRiskCeiling {
		legit("allowed_low_risk", allowedWeight)
	}
	if obs.RiskScore < lowRiskCeiling {
		legit("very_low_risk", lowRiskWeight)
	}
	if obs.BotScore != nil && *obs.BotScore >= botTrustFloor {
		legit("high_bot_trust", botTrustWeight)
	}
	return out
}

func meanWeight(indicators []Indicator, class ensemble.Label) (float64, int) {
	var sum float64
	n := 0
	for _, ind := range indicators {
		if ind.Class == class {
			sum += ind.Weight
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

func toSet(values []string) map[string]struct{} {
	values = platformstrings.DedupeAndTrimLower(values)
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
