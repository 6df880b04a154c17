package ensemble

import (
	"maps"
	"sync"
)

// RuleUsage tallies which cascade rule decided each classification so the
// rule distribution can be audited. Safe for concurrent use.
type RuleUsage struct {
	mu     sync.Mutex
	counts map[string]int64
	total  int64
}

func NewRuleUsage() *RuleUsage {
	return &RuleUsage{counts: make(map[string]int64)}
}

func (u *RuleUsage) Record(reasoning string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.counts[reasoning]++
	u.total++
}

// Counts returns a copy of the raw tallies.
func (u *RuleUsage) Counts() map[string]int64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return maps.Clone(u.counts)
}

// Distribution returns each rule's share of all recorded classifications.
func (u *RuleUsage) Distribution() map[string]float64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make(map[string]float64, len(u.counts))
	if u.total == 0 {
		return out
	}
	for rule, n := range u.counts {
		out[rule] = float64(n) / float64(u.total)
	}
	return out
}
