package update

import (
	"fmt"
	"math"
	"time"

	"github.com/danielpatrickdp/adaptive-timing/internal/offsets"
	"github.com/danielpatrickdp/adaptive-timing/internal/state"
	"github.com/danielpatrickdp/adaptive-timing/internal/timecodec"
)

// #region update-function
// Update is a pure function that credits the arm nearest to the observed
// confirmation. The delay from nominal is folded onto the circular day, the
// nearest arm gets one more visit, and its estimate moves toward a shaped
// closeness signal. old is never modified.
func Update(old state.Policy, space offsets.Space, nominal string, now time.Time, config UpdateConfig) UpdateResult {
	nominalMin, ok := timecodec.Parse(nominal)
	if !ok {
		return UpdateResult{
			NewPolicy: old,
			Decision:  Decision{Action: "no_op", Reason: fmt.Sprintf("unparsable nominal time %q", nominal)},
			Metrics:   Metrics{Index: -1},
		}
	}

	delta := timecodec.FoldDelta(timecodec.MinuteOfDay(now) - nominalMin)
	idx, dist := space.Nearest(delta)

	next := old.Clone()
	next.N[idx]++

	shaped := 1 - float64(dist)/config.Scale
	if shaped < 0 {
		shaped = 0
	}

	oldQ := next.Q[idx]
	newQ := oldQ + config.Alpha*(shaped-oldQ)
	next.Q[idx] = math.Max(0, math.Min(1, newQ))

	return UpdateResult{
		NewPolicy: next,
		Decision: Decision{
			Action: "commit",
			Reason: fmt.Sprintf("delta=%d arm=%+d shaped=%.4f", delta, space.At(idx), shaped),
		},
		Metrics: Metrics{
			Delta:  delta,
			Index:  idx,
			Offset: space.At(idx),
			Shaped: shaped,
			OldQ:   oldQ,
			NewQ:   next.Q[idx],
			Visits: next.N[idx],
		},
	}
}

// #endregion update-function
