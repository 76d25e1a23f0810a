package logging

import "time"

// #region provenance-entry
// ProvenanceEntry is a single row in the provenance_log table.
type ProvenanceEntry struct {
	ItemID      string
	TriggerType string // "decide" | "confirm" | "reset"
	SignalsJSON string // serialized DecisionRecord
	Decision    string // "baseline" | "shift" | "cached" | "commit" | "no_op" | "reset"
	Reason      string
	CreatedAt   time.Time
}

// #endregion provenance-entry

// #region decision-record
// DecisionRecord captures everything that went into one decide or confirm
// call. Serialized as JSON into provenance_log.signals_json so a day can be
// replayed later.
type DecisionRecord struct {
	ItemID  string `json:"item_id"`
	Nominal string `json:"nominal"`
	Date    string `json:"date"`

	// Gate output
	ChosenIndex   int     `json:"chosen_index"`
	Offset        int     `json:"offset"`
	SuggestedTime string  `json:"suggested_time"`
	BestOffset    int     `json:"best_offset"`
	Gain          float64 `json:"gain"`
	EnoughData    bool    `json:"enough_data"`
	Passed        bool    `json:"passed"`
	Cached        bool    `json:"cached"`

	// Confirmation, empty for decide rows
	ConfirmedAt   string  `json:"confirmed_at,omitempty"` // RFC3339
	Reward        int     `json:"reward"`
	Delta         int     `json:"delta"`
	UpdatedOffset int     `json:"updated_offset"`
	Shaped        float64 `json:"shaped"`
	OldQ          float64 `json:"old_q"`
	NewQ          float64 `json:"new_q"`
	Visits        int     `json:"visits"`

	Thresholds DecisionThresholds `json:"thresholds"`
}

// DecisionThresholds captures the bandit parameters active at decision time.
type DecisionThresholds struct {
	MinObs       int     `json:"min_obs"`
	MinGain      float64 `json:"min_gain"`
	RewardWindow int     `json:"reward_window"`
	Alpha        float64 `json:"alpha"`
	Scale        float64 `json:"scale"`
}

// #endregion decision-record
