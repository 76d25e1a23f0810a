package eval

// #region eval-config
// EvalConfig holds the reward window for judging a confirmation.
type EvalConfig struct {
	RewardWindow int // minutes either side of the suggestion that count as a hit
}

// DefaultEvalConfig returns the production window of 15 minutes.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{RewardWindow: 15}
}

// #endregion eval-config

// #region eval-result
// EvalResult is the binary outcome of one confirmation.
type EvalResult struct {
	Reward        int // 0 or 1
	SuggestedTime string
	Offset        int
	Diff          int  // circular minutes between confirmation and suggestion; -1 when not evaluated
	Evaluated     bool // false when there was no decision for today to judge against
	Reason        string
}

// #endregion eval-result
