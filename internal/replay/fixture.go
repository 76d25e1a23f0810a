package replay

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/danielpatrickdp/adaptive-timing/internal/clock"
	"github.com/danielpatrickdp/adaptive-timing/internal/eval"
	"github.com/danielpatrickdp/adaptive-timing/internal/gate"
	"github.com/danielpatrickdp/adaptive-timing/internal/offsets"
	"github.com/danielpatrickdp/adaptive-timing/internal/state"
	"github.com/danielpatrickdp/adaptive-timing/internal/timecodec"
	"github.com/danielpatrickdp/adaptive-timing/internal/update"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	ItemID          string                  `json:"item_id,omitempty"`
	Nominal         string                  `json:"nominal"`
	StartPolicy     json.RawMessage         `json:"start_policy,omitempty"` // persisted record; absent means the prior
	Config          FixtureConfig           `json:"config"`
	Days            []FixtureDay            `json:"days"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureDay is one day; an empty ConfirmedAt means no confirmation.
type FixtureDay struct {
	Date        string `json:"date"`
	ConfirmedAt string `json:"confirmed_at,omitempty"` // "HH:MM AM/PM"
}

// FixtureExpectedResult captures the expected decision and reward per day.
// Action and Offset are only checked when Action is set; Reward only when set.
type FixtureExpectedResult struct {
	Date   string `json:"date"`
	Action string `json:"action"`
	Offset int    `json:"offset"`
	Reward *int   `json:"reward,omitempty"`
}

// FixtureConfig bundles all sub-configs for a replay run. Zero values fall
// back to the defaults.
type FixtureConfig struct {
	GateConfig   FixtureGateConfig   `json:"gate_config"`
	EvalConfig   FixtureEvalConfig   `json:"eval_config"`
	UpdateConfig FixtureUpdateConfig `json:"update_config"`
	Seed         int64               `json:"seed,omitempty"`
}

// FixtureGateConfig mirrors gate.GateConfig with JSON tags.
type FixtureGateConfig struct {
	MinObs          int     `json:"min_obs"`
	MinGain         float64 `json:"min_gain"`
	GateExploration float64 `json:"gate_exploration,omitempty"`
	PickExploration float64 `json:"pick_exploration,omitempty"`
}

// FixtureEvalConfig mirrors eval.EvalConfig with JSON tags.
type FixtureEvalConfig struct {
	RewardWindow int `json:"reward_window"`
}

// FixtureUpdateConfig mirrors update.UpdateConfig with JSON tags.
type FixtureUpdateConfig struct {
	Alpha float64 `json:"alpha"`
	Scale float64 `json:"scale"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// WriteFixture writes f as indented JSON.
func WriteFixture(f Fixture, path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// ToPolicy decodes StartPolicy, or returns the prior when it is absent.
func (f *Fixture) ToPolicy(space offsets.Space) (state.Policy, error) {
	if len(f.StartPolicy) == 0 || string(f.StartPolicy) == "null" {
		return state.NewPolicy(space), nil
	}
	p, err := state.Decode(f.StartPolicy, space)
	if err != nil {
		return state.Policy{}, fmt.Errorf("start_policy: %w", err)
	}
	return p, nil
}

// ToDays converts fixture days to domain days. Confirmation instants are
// placed in UTC on the day's date.
func (f *Fixture) ToDays() ([]Day, error) {
	days := make([]Day, len(f.Days))
	for i, fd := range f.Days {
		date, err := time.Parse(clock.DateLayout, fd.Date)
		if err != nil {
			return nil, fmt.Errorf("day %d: %w", i, err)
		}
		days[i] = Day{Date: fd.Date}
		if fd.ConfirmedAt == "" {
			continue
		}
		minute, ok := timecodec.Parse(fd.ConfirmedAt)
		if !ok {
			return nil, fmt.Errorf("day %d: unparsable confirmed_at %q", i, fd.ConfirmedAt)
		}
		at := date.Add(time.Duration(minute) * time.Minute)
		days[i].ConfirmedAt = &at
	}
	return days, nil
}

// ToReplayConfig converts a FixtureConfig to a domain ReplayConfig.
func (fc *FixtureConfig) ToReplayConfig() ReplayConfig {
	cfg := ReplayConfig{
		GateConfig: gate.GateConfig{
			MinObs:          fc.GateConfig.MinObs,
			MinGain:         fc.GateConfig.MinGain,
			GateExploration: fc.GateConfig.GateExploration,
			PickExploration: fc.GateConfig.PickExploration,
		},
		EvalConfig:   eval.EvalConfig{RewardWindow: fc.EvalConfig.RewardWindow},
		UpdateConfig: update.UpdateConfig{Alpha: fc.UpdateConfig.Alpha, Scale: fc.UpdateConfig.Scale},
	}
	def := DefaultReplayConfig()
	if cfg.GateConfig.MinObs == 0 {
		cfg.GateConfig.MinObs = def.GateConfig.MinObs
	}
	if cfg.GateConfig.MinGain == 0 {
		cfg.GateConfig.MinGain = def.GateConfig.MinGain
	}
	if cfg.EvalConfig.RewardWindow == 0 {
		cfg.EvalConfig = def.EvalConfig
	}
	if cfg.UpdateConfig.Alpha == 0 {
		cfg.UpdateConfig.Alpha = def.UpdateConfig.Alpha
	}
	if cfg.UpdateConfig.Scale == 0 {
		cfg.UpdateConfig.Scale = def.UpdateConfig.Scale
	}
	if cfg.GateConfig.GateExploration > 0 || cfg.GateConfig.PickExploration > 0 {
		cfg.Rand = rand.New(rand.NewSource(fc.Seed))
	}
	return cfg
}

// #endregion fixture-loader

// #region compare

// Mismatch is one day where replay disagreed with the fixture.
type Mismatch struct {
	Date     string
	Expected FixtureExpectedResult
	Actual   ReplayResult
}

// Compare checks results against expectations day by day. A length
// difference is reported as mismatches for the missing days.
func Compare(expected []FixtureExpectedResult, results []ReplayResult) []Mismatch {
	var out []Mismatch
	for i, exp := range expected {
		if i >= len(results) {
			out = append(out, Mismatch{Date: exp.Date, Expected: exp})
			continue
		}
		act := results[i]
		ok := act.Date == exp.Date
		if exp.Action != "" {
			ok = ok && act.Action == exp.Action && act.Offset == exp.Offset
		}
		if exp.Reward != nil {
			ok = ok && act.EvalResult != nil && act.EvalResult.Reward == *exp.Reward
		}
		if !ok {
			out = append(out, Mismatch{Date: exp.Date, Expected: exp, Actual: act})
		}
	}
	return out
}

// #endregion compare
