package gate

import (
	"fmt"

	"github.com/danielpatrickdp/adaptive-timing/internal/offsets"
	"github.com/danielpatrickdp/adaptive-timing/internal/selector"
	"github.com/danielpatrickdp/adaptive-timing/internal/state"
	"github.com/danielpatrickdp/adaptive-timing/internal/timecodec"
)

// #region gate
// Gate produces at most one suggestion per item per calendar day and keeps
// the baseline until an arm has both enough visits and a real gain.
type Gate struct {
	config GateConfig
	space  offsets.Space
	rng    selector.Rand
}

// NewGate creates a gate. rng is only consulted when an exploration rate is
// nonzero and may be nil otherwise.
func NewGate(config GateConfig, space offsets.Space, rng selector.Rand) *Gate {
	return &Gate{config: config, space: space, rng: rng}
}

// Config returns the thresholds the gate was built with.
func (g *Gate) Config() GateConfig {
	return g.config
}

// Decide returns the policy carrying today's decision and the decision
// record. It does not touch storage; when p already holds a decision for
// today, p is returned as is with Cached set.
func (g *Gate) Decide(p state.Policy, nominal, today string) (state.Policy, GateDecision) {
	base := g.space.BaselineIndex()

	if p.DecidedOn(today) {
		return p, GateDecision{
			Decision:      *p.Last,
			Cached:        true,
			BestIndex:     p.Last.ChosenIndex,
			BaselineIndex: base,
			Reason:        "already decided today",
		}
	}

	best := selector.Choose(p, g.space, g.config.GateExploration, g.rng)
	gain := p.Q[best] - p.Q[base]
	enough := p.N[best] >= g.config.MinObs
	passed := enough && gain >= g.config.MinGain

	arm := base
	reason := "baseline: insufficient evidence"
	switch {
	case passed:
		arm = selector.Choose(p, g.space, g.config.PickExploration, g.rng)
		reason = fmt.Sprintf("shift: gain=%.4f n=%d", gain, p.N[best])
	case enough:
		reason = fmt.Sprintf("baseline: gain %.4f below %.4f", gain, g.config.MinGain)
	}

	offset := g.space.At(arm)
	decision := state.Decision{
		DecisionDate:  today,
		ChosenIndex:   arm,
		Offset:        offset,
		SuggestedTime: timecodec.ApplyOffset(nominal, offset),
	}

	return p.WithDecision(decision), GateDecision{
		Decision:      decision,
		BestIndex:     best,
		BaselineIndex: base,
		BestQ:         p.Q[best],
		BaselineQ:     p.Q[base],
		Gain:          gain,
		EnoughData:    enough,
		Passed:        passed,
		Reason:        reason,
	}
}

// #endregion gate
