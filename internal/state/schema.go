package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/danielpatrickdp/adaptive-timing/internal/offsets"
)

// ErrCorrupt marks a stored record that cannot be turned into a valid Policy.
var ErrCorrupt = errors.New("corrupt policy record")

// #region records
// record is the persisted shape for SchemaVersion 1.
type record struct {
	Version int       `json:"version"`
	Q       []float64 `json:"q"`
	N       []int     `json:"n"`
	Last    *Decision `json:"last"`
	Streak  *Streak   `json:"streak"`
}

// legacyRecord is the versionless shape written by the first release.
// last and streak may be missing entirely.
type legacyRecord struct {
	Q      []float64 `json:"q"`
	N      []int     `json:"n"`
	Last   *struct {
		Date      string `json:"date"`
		Arm       int    `json:"arm"`
		Offset    int    `json:"offset"`
		Suggested string `json:"suggested"`
	} `json:"last"`
	Streak *struct {
		Idx  int `json:"idx"`
		Days int `json:"days"`
	} `json:"streak"`
}

// #endregion records

// #region encode
// Encode serializes p in the current schema.
func Encode(p Policy) ([]byte, error) {
	data, err := json.Marshal(record{
		Version: SchemaVersion,
		Q:       p.Q,
		N:       p.N,
		Last:    p.Last,
		Streak:  p.Streak,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal policy: %w", err)
	}
	return data, nil
}

// #endregion encode

// #region decode
// Decode reads any known schema version and validates the result against
// space. Every failure wraps ErrCorrupt.
func Decode(raw []byte, space offsets.Space) (Policy, error) {
	var probe struct {
		Version *int `json:"version"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Policy{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	var p Policy
	switch {
	case probe.Version == nil:
		var legacy legacyRecord
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return Policy{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		p = migrateV0(legacy, space)
	case *probe.Version == SchemaVersion:
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return Policy{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		p = Policy{Version: rec.Version, Q: rec.Q, N: rec.N, Last: rec.Last, Streak: rec.Streak}
	default:
		return Policy{}, fmt.Errorf("%w: unknown schema version %d", ErrCorrupt, *probe.Version)
	}

	if err := validate(&p, space); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// #endregion decode

// #region migrate
// migrateV0 lifts the versionless record into SchemaVersion 1. A missing
// streak gets the baseline default the first release wrote.
func migrateV0(legacy legacyRecord, space offsets.Space) Policy {
	p := Policy{
		Version: SchemaVersion,
		Q:       legacy.Q,
		N:       legacy.N,
		Streak:  &Streak{Index: space.BaselineIndex()},
	}
	if legacy.Last != nil {
		p.Last = &Decision{
			DecisionDate:  legacy.Last.Date,
			ChosenIndex:   legacy.Last.Arm,
			Offset:        legacy.Last.Offset,
			SuggestedTime: legacy.Last.Suggested,
		}
	}
	if legacy.Streak != nil {
		p.Streak = &Streak{Index: legacy.Streak.Idx, DayCount: legacy.Streak.Days}
	}
	return p
}

// #endregion migrate

// #region validate
// validate enforces the array invariants. Out-of-range estimates are clamped
// and counts below 1 are raised to 1; structural faults are corrupt.
func validate(p *Policy, space offsets.Space) error {
	if p.Q == nil || p.N == nil {
		return fmt.Errorf("%w: missing q or n", ErrCorrupt)
	}
	if len(p.Q) != space.Len() || len(p.N) != space.Len() {
		return fmt.Errorf("%w: expected %d arms, got q=%d n=%d", ErrCorrupt, space.Len(), len(p.Q), len(p.N))
	}
	for i, q := range p.Q {
		if math.IsNaN(q) {
			return fmt.Errorf("%w: q[%d] is NaN", ErrCorrupt, i)
		}
		p.Q[i] = math.Max(0, math.Min(1, q))
	}
	for i, n := range p.N {
		if n < 1 {
			p.N[i] = 1
		}
	}
	if p.Last != nil && (p.Last.ChosenIndex < 0 || p.Last.ChosenIndex >= space.Len()) {
		return fmt.Errorf("%w: chosen index %d out of range", ErrCorrupt, p.Last.ChosenIndex)
	}
	return nil
}

// #endregion validate
