package replay

import (
	"time"

	"github.com/danielpatrickdp/adaptive-timing/internal/clock"
	"github.com/danielpatrickdp/adaptive-timing/internal/eval"
	"github.com/danielpatrickdp/adaptive-timing/internal/gate"
	"github.com/danielpatrickdp/adaptive-timing/internal/offsets"
	"github.com/danielpatrickdp/adaptive-timing/internal/selector"
	"github.com/danielpatrickdp/adaptive-timing/internal/state"
	"github.com/danielpatrickdp/adaptive-timing/internal/update"
)

// #region types
// Day is one simulated calendar day. ConfirmedAt is nil when the item was
// not confirmed that day.
type Day struct {
	Date        string // YYYY-MM-DD
	ConfirmedAt *time.Time
}

// ReplayConfig bundles gate, eval, and update configs for a replay run.
type ReplayConfig struct {
	GateConfig   gate.GateConfig
	EvalConfig   eval.EvalConfig
	UpdateConfig update.UpdateConfig
	Rand         selector.Rand // only used with nonzero exploration rates
}

// DefaultReplayConfig returns production defaults for all three pipeline stages.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{
		GateConfig:   gate.DefaultGateConfig(),
		EvalConfig:   eval.DefaultEvalConfig(),
		UpdateConfig: update.DefaultUpdateConfig(),
	}
}

// ReplayResult captures the outcome of one simulated day.
type ReplayResult struct {
	Date   string
	Action string // "baseline" | "shift" | "cached"
	Offset int
	Reason string

	SuggestedTime string
	GateDecision  gate.GateDecision

	// Confirmation stages, nil when the day had no confirmation
	EvalResult     *eval.EvalResult
	UpdateDecision *update.Decision
	UpdateMetrics  *update.Metrics
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalDays     int
	Baseline      int
	Shifted       int
	Confirmations int
	Hits          int
	FinalPolicy   state.Policy
}

// #endregion types

// #region replay
// Replay runs decide, then evaluate and update when confirmed, for each day
// in order. Operates entirely in memory and returns the per-day results with
// the final policy.
func Replay(start state.Policy, space offsets.Space, nominal string, days []Day, config ReplayConfig) ([]ReplayResult, state.Policy) {
	current := start.Clone()
	results := make([]ReplayResult, 0, len(days))

	gateInst := gate.NewGate(config.GateConfig, space, config.Rand)
	evalInst := eval.NewEvaluator(config.EvalConfig)

	for _, d := range days {
		// 1. Decide
		next, gd := gateInst.Decide(current, nominal, d.Date)
		current = next

		r := ReplayResult{
			Date:          d.Date,
			Action:        action(gd),
			Offset:        gd.Decision.Offset,
			Reason:        gd.Reason,
			SuggestedTime: gd.Decision.SuggestedTime,
			GateDecision:  gd,
		}

		if d.ConfirmedAt == nil {
			results = append(results, r)
			continue
		}

		// 2. Evaluate against today's suggestion, before learning
		ev := evalInst.Evaluate(current, nominal, *d.ConfirmedAt, d.Date)

		// 3. Learn
		up := update.Update(current, space, nominal, *d.ConfirmedAt, config.UpdateConfig)
		current = up.NewPolicy

		r.EvalResult = &ev
		r.UpdateDecision = &up.Decision
		r.UpdateMetrics = &up.Metrics
		results = append(results, r)
	}

	return results, current
}

func action(gd gate.GateDecision) string {
	switch {
	case gd.Cached:
		return "cached"
	case gd.Decision.Offset != 0:
		return "shift"
	default:
		return "baseline"
	}
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult, final state.Policy) ReplaySummary {
	s := ReplaySummary{
		TotalDays:   len(results),
		FinalPolicy: final,
	}
	for _, r := range results {
		switch r.Action {
		case "shift":
			s.Shifted++
		case "baseline":
			s.Baseline++
		}
		if r.EvalResult != nil {
			s.Confirmations++
			s.Hits += r.EvalResult.Reward
		}
	}
	return s
}

// #endregion replay

// #region days
// DailyConfirmations builds n consecutive days starting at first, each
// confirmed at the same minute of day in loc.
func DailyConfirmations(first time.Time, n int, hour, minute int) []Day {
	days := make([]Day, n)
	for i := range days {
		date := first.AddDate(0, 0, i)
		at := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, first.Location())
		days[i] = Day{Date: at.Format(clock.DateLayout), ConfirmedAt: &at}
	}
	return days
}

// #endregion days
