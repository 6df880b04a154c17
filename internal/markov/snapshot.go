package markov

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var ErrCorruptSnapshot = errors.New("markov: corrupt snapshot")

// snapshot is the only persisted representation of a Model:
//
//	{order, trainingCount, states:[{context, nextChars:[[char,count]...], totalTransitions}]}
type snapshot struct {
	Order         int             `json:"order"`
	TrainingCount int             `json:"trainingCount"`
	States        []stateSnapshot `json:"states"`
}

type stateSnapshot struct {
	Context          string      `json:"context"`
	NextChars        []charCount `json:"nextChars"`
	TotalTransitions uint32      `json:"totalTransitions"`
}

// charCount encodes as a two-element array ["c", n].
type charCount struct {
	Char  byte
	Count uint32
}

func (c charCount) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{string([]byte{c.Char}), c.Count})
}

func (c *charCount) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("%w: nextChars entry has %d elements", ErrCorruptSnapshot, len(pair))
	}
	var ch string
	if err := json.Unmarshal(pair[0], &ch); err != nil {
		return err
	}
	if len(ch) != 1 {
		return fmt.Errorf("%w: nextChars key %q is not a single character", ErrCorruptSnapshot, ch)
	}
	if err := json.Unmarshal(pair[1], &c.Count); err != nil {
		return err
	}
	c.Char = ch[0]
	return nil
}

// MarshalJSON writes the snapshot with contexts and characters sorted so the
// same counts always produce the same bytes (and therefore the same checksum).
func (m *Model) MarshalJSON() ([]byte, error) {
	snap := snapshot{
		Order:         m.order,
		TrainingCount: m.trainingCount,
		States:        make([]stateSnapshot, 0, len(m.states)),
	}

	contexts := make([]string, 0, len(m.states))
	for context := range m.states {
		contexts = append(contexts, context)
	}
	sort.Strings(contexts)

	for _, context := range contexts {
		st := m.states[context]
		chars := make([]charCount, 0, len(st.next))
		for ch, n := range st.next {
			chars = append(chars, charCount{Char: ch, Count: n})
		}
		sort.Slice(chars, func(i, j int) bool { return chars[i].Char < chars[j].Char })
		snap.States = append(snap.States, stateSnapshot{
			Context:          context,
			NextChars:        chars,
			TotalTransitions: st.total,
		})
	}
	return json.Marshal(snap)
}

// FromJSON loads a snapshot into a new Model. Snapshots whose totals disagree
// with their counts, or whose contexts do not match the order, are rejected.
func FromJSON(data []byte, opts ...Option) (*Model, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	m, err := New(snap.Order, opts...)
	if err != nil {
		return nil, err
	}
	m.trainingCount = snap.TrainingCount

	for _, ss := range snap.States {
		if len(ss.Context) != m.order-1 {
			return nil, fmt.Errorf("%w: context %q does not match order %d", ErrCorruptSnapshot, ss.Context, m.order)
		}
		if _, dup := m.states[ss.Context]; dup {
			return nil, fmt.Errorf("%w: duplicate context %q", ErrCorruptSnapshot, ss.Context)
		}
		st := &state{next: make(map[byte]uint32, len(ss.NextChars))}
		for _, cc := range ss.NextChars {
			st.next[cc.Char] += cc.Count
			st.total += cc.Count
		}
		if st.total != ss.TotalTransitions {
			return nil, fmt.Errorf("%w: context %q total %d != sum %d", ErrCorruptSnapshot, ss.Context, ss.TotalTransitions, st.total)
		}
		m.states[ss.Context] = st
	}
	return m, nil
}
