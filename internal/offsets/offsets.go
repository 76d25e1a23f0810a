package offsets

import (
	"errors"
	"fmt"
)

// #region constants
const (
	// Step is the spacing between adjacent arms in the default space.
	Step = 10
	// Span is the largest absolute shift in the default space.
	Span = 720
)

// ErrNoBaseline is returned when a space has no zero offset to anchor gating.
var ErrNoBaseline = errors.New("offset space must contain 0")

// #endregion constants

// #region space
// Space is the fixed, ordered set of minute offsets an item may be shifted by.
// The index of the zero offset is the baseline arm.
type Space struct {
	values   []int
	baseline int
}

// New builds a space from ascending offsets. Exactly one zero is required.
func New(values []int) (Space, error) {
	baseline := -1
	for i, v := range values {
		if i > 0 && v <= values[i-1] {
			return Space{}, fmt.Errorf("offsets must be strictly ascending at index %d", i)
		}
		if v == 0 {
			baseline = i
		}
	}
	if baseline < 0 {
		return Space{}, ErrNoBaseline
	}
	cp := make([]int, len(values))
	copy(cp, values)
	return Space{values: cp, baseline: baseline}, nil
}

// Default returns the 145-arm space from -720 to +720 in 10 minute steps.
func Default() Space {
	n := 2*Span/Step + 1
	values := make([]int, n)
	for i := range values {
		values[i] = (i - Span/Step) * Step
	}
	s, err := New(values)
	if err != nil {
		panic(err)
	}
	return s
}

// #endregion space

// #region accessors
// Len returns the number of arms.
func (s Space) Len() int { return len(s.values) }

// At returns the offset of arm i.
func (s Space) At(i int) int { return s.values[i] }

// BaselineIndex returns the index of the zero offset.
func (s Space) BaselineIndex() int { return s.baseline }

// Values returns a copy of the offsets.
func (s Space) Values() []int {
	cp := make([]int, len(s.values))
	copy(cp, s.values)
	return cp
}

// IndexOf returns the arm index for offset, or -1.
func (s Space) IndexOf(offset int) int {
	for i, v := range s.values {
		if v == offset {
			return i
		}
	}
	return -1
}

// Nearest returns the arm whose offset is closest to delta and the absolute
// distance to it. The first arm in ascending order wins ties.
func (s Space) Nearest(delta int) (index int, dist int) {
	index, dist = 0, -1
	for i, v := range s.values {
		d := v - delta
		if d < 0 {
			d = -d
		}
		if dist < 0 || d < dist {
			index, dist = i, d
		}
	}
	return index, dist
}

// #endregion accessors
