package update

import "github.com/danielpatrickdp/adaptive-timing/internal/state"

// #region decision
// Decision records what the update function decided.
type Decision struct {
	Action string // "commit" | "no_op"
	Reason string
}

// #endregion decision

// #region metrics
// Metrics captures telemetry from one update.
type Metrics struct {
	Delta  int     // folded minutes between confirmation and nominal time
	Index  int     // arm that received the visit
	Offset int     // offset of that arm
	Shaped float64 // graded signal in [0, 1]
	OldQ   float64
	NewQ   float64
	Visits int // n[Index] after the increment
}

// #endregion metrics

// #region update-config
// UpdateConfig holds the learning parameters for the update function.
type UpdateConfig struct {
	Alpha float64 // EMA step toward the shaped signal (default 0.2)
	Scale float64 // minutes at which the shaped signal reaches 0 (default 120)
}

// DefaultUpdateConfig returns the production parameters.
func DefaultUpdateConfig() UpdateConfig {
	return UpdateConfig{
		Alpha: 0.2,
		Scale: 120,
	}
}

// #endregion update-config

// #region update-result
// UpdateResult bundles everything returned by Update().
type UpdateResult struct {
	NewPolicy state.Policy
	Decision  Decision
	Metrics   Metrics
}

// #endregion update-result
