package gate

import "github.com/danielpatrickdp/adaptive-timing/internal/state"

// #region gate-config
// GateConfig holds the evidence thresholds for leaving the baseline arm.
type GateConfig struct {
	MinObs          int     // visits the best arm needs before it can be suggested
	MinGain         float64 // q[best] - q[baseline] required to deviate
	GateExploration float64 // exploration rate when finding the best arm
	PickExploration float64 // exploration rate for the final pick once the gate passes
}

// DefaultGateConfig returns the production thresholds. Both exploration
// rates are 0, so decisions are deterministic.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MinObs:  5,
		MinGain: 0.15,
	}
}

// #endregion gate-config

// #region gate-decision
// GateDecision is the output of a daily decision, with the inputs that
// produced it kept for logging.
type GateDecision struct {
	Decision      state.Decision
	Cached        bool // today's decision already existed and was returned unchanged
	BestIndex     int
	BaselineIndex int
	BestQ         float64
	BaselineQ     float64
	Gain          float64
	EnoughData    bool
	Passed        bool
	Reason        string
}

// #endregion gate-decision
