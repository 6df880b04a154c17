package service

import (
	"math"

	"idscore/internal/experiment/models"
)

// Analyze runs a two-sided two-proportion z-test of treatment against control
// and names the first unmet promotion condition.
func Analyze(res models.Results, t models.Thresholds) models.Analysis {
	a := models.Analysis{Results: res, PValue: 1}
	c, tr := res.Control, res.Treatment
	a.Lift = lift(c.Rate(), tr.Rate())

	if c.Samples > 0 && tr.Samples > 0 {
		a.ZScore, a.PValue = zTest(c, tr)
		a.Significant = a.PValue < t.Alpha
	}

	switch {
	case c.Samples < t.MinSamplesPerArm || tr.Samples < t.MinSamplesPerArm:
		a.Condition = models.ConditionInsufficientSamples
	case !a.Significant:
		a.Condition = models.ConditionNotSignificant
	case a.Lift < t.MinImprovement:
		a.Condition = models.ConditionInsufficientImprovement
	default:
		a.Condition = models.ConditionMet
	}
	return a
}

// lift is the relative change of the treatment rate over control. With a
// zero control rate it falls back to the absolute difference.
func lift(control, treatment float64) float64 {
	if control == 0 {
		return treatment - control
	}
	return (treatment - control) / control
}

func zTest(c, t models.ArmResult) (z, p float64) {
	n1, n2 := float64(c.Samples), float64(t.Samples)
	pooled := float64(c.Successes+t.Successes) / (n1 + n2)
	se := math.Sqrt(pooled * (1 - pooled) * (1/n1 + 1/n2))
	if se == 0 {
		return 0, 1
	}
	z = (t.Rate() - c.Rate()) / se
	p = math.Erfc(math.Abs(z) / math.Sqrt2)
	return z, p
}
