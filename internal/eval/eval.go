package eval

import (
	"fmt"
	"time"

	"github.com/danielpatrickdp/adaptive-timing/internal/state"
	"github.com/danielpatrickdp/adaptive-timing/internal/timecodec"
)

// #region eval-harness
// Evaluator scores a confirmation against the day's suggestion.
type Evaluator struct {
	config EvalConfig
}

// NewEvaluator creates an evaluator with the given configuration.
func NewEvaluator(config EvalConfig) *Evaluator {
	return &Evaluator{config: config}
}

// Evaluate compares now against today's suggested time. Without a decision
// for today the reward is 0, the suggestion reported is nominal and the
// offset is 0. It never changes p.
func (e *Evaluator) Evaluate(p state.Policy, nominal string, now time.Time, today string) EvalResult {
	if !p.DecidedOn(today) || p.Last.SuggestedTime == "" {
		return EvalResult{
			SuggestedTime: nominal,
			Diff:          -1,
			Reason:        "no decision for today",
		}
	}

	res := EvalResult{
		SuggestedTime: p.Last.SuggestedTime,
		Offset:        p.Last.Offset,
		Diff:          -1,
		Evaluated:     true,
	}

	suggested, ok := timecodec.Parse(p.Last.SuggestedTime)
	if !ok {
		res.Reason = fmt.Sprintf("unparsable suggestion %q", p.Last.SuggestedTime)
		return res
	}

	res.Diff = timecodec.CircularDiff(timecodec.MinuteOfDay(now), suggested)
	if res.Diff <= e.config.RewardWindow {
		res.Reward = 1
		res.Reason = fmt.Sprintf("hit: %d min from suggestion", res.Diff)
	} else {
		res.Reason = fmt.Sprintf("miss: %d min from suggestion", res.Diff)
	}
	return res
}

// #endregion eval-harness
