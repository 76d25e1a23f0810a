package state

import "github.com/danielpatrickdp/adaptive-timing/internal/offsets"

// #region schema-version
// SchemaVersion is the version written by Encode. Records without a version
// field are the original shape and are migrated on read.
const SchemaVersion = 1

// #endregion schema-version

// #region decision
// Decision is the once-per-day suggestion cached on a policy.
type Decision struct {
	DecisionDate  string `json:"decision_date"` // YYYY-MM-DD
	ChosenIndex   int    `json:"chosen_index"`
	Offset        int    `json:"offset"`
	SuggestedTime string `json:"suggested_time"`
}

// #endregion decision

// #region streak
// Streak is carried for compatibility with older records. Nothing in the
// decision or update path reads it.
type Streak struct {
	Index    int `json:"index"`
	DayCount int `json:"day_count"`
}

// #endregion streak

// #region policy
// Policy is the learned state for one scheduled item. Treat it as a value:
// operations that change it return a new Policy built from Clone.
type Policy struct {
	Version int
	Q       []float64 // value estimate per arm, in [0, 1]
	N       []int     // visit count per arm, >= 1
	Last    *Decision
	Streak  *Streak
}

// NewPolicy returns the neutral prior for a space: q=0.5, n=1, no decision.
func NewPolicy(space offsets.Space) Policy {
	q := make([]float64, space.Len())
	n := make([]int, space.Len())
	for i := range q {
		q[i] = 0.5
		n[i] = 1
	}
	return Policy{
		Version: SchemaVersion,
		Q:       q,
		N:       n,
		Streak:  &Streak{Index: space.BaselineIndex()},
	}
}

// Clone returns a deep copy that shares no memory with p.
func (p Policy) Clone() Policy {
	out := Policy{Version: p.Version}
	if p.Q != nil {
		out.Q = make([]float64, len(p.Q))
		copy(out.Q, p.Q)
	}
	if p.N != nil {
		out.N = make([]int, len(p.N))
		copy(out.N, p.N)
	}
	if p.Last != nil {
		last := *p.Last
		out.Last = &last
	}
	if p.Streak != nil {
		streak := *p.Streak
		out.Streak = &streak
	}
	return out
}

// DecidedOn reports whether the cached decision belongs to date.
func (p Policy) DecidedOn(date string) bool {
	return p.Last != nil && p.Last.DecisionDate == date
}

// WithDecision returns a copy of p carrying d as its cached decision.
func (p Policy) WithDecision(d Decision) Policy {
	out := p.Clone()
	out.Last = &d
	return out
}

// #endregion policy
