package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/danielpatrickdp/adaptive-timing/internal/eval"
	"github.com/danielpatrickdp/adaptive-timing/internal/events"
	"github.com/danielpatrickdp/adaptive-timing/internal/gate"
	"github.com/danielpatrickdp/adaptive-timing/internal/logging"
	"github.com/danielpatrickdp/adaptive-timing/internal/update"
)

// ErrNoItemKey is returned for items with neither an id nor a name.
var ErrNoItemKey = errors.New("item has no id or name")

// #region outcome
// Outcome is what a confirmation reports back for display.
type Outcome struct {
	Reward        int    `json:"reward"`
	SuggestedTime string `json:"suggested_time"`
	Offset        int    `json:"offset"`
}

// Proposal is a suggestion that differs from the item's nominal time, offered
// to the user as a permanent change.
type Proposal struct {
	ItemID    string `json:"item_id"`
	Name      string `json:"name"`
	Nominal   string `json:"nominal"`
	Suggested string `json:"suggested"`
	Offset    int    `json:"offset"`
}

// #endregion outcome

// #region collaborators
// ProvenanceSink receives one entry per engine operation.
type ProvenanceSink interface {
	Record(ctx context.Context, entry logging.ProvenanceEntry) error
}

// Publisher receives engine events.
type Publisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

// Metrics receives operation telemetry.
type Metrics interface {
	ObserveDecision(outcome string)
	ObserveConfirmation(reward int, action string, delta int, shaped float64)
	ObserveReset()
	ObserveError(op string)
	ObserveDuration(op string, d time.Duration)
}

type nopSink struct{}

func (nopSink) Record(context.Context, logging.ProvenanceEntry) error { return nil }

type nopMetrics struct{}

func (nopMetrics) ObserveDecision(string)                       {}
func (nopMetrics) ObserveConfirmation(int, string, int, float64) {}
func (nopMetrics) ObserveReset()                                 {}
func (nopMetrics) ObserveError(string)                           {}
func (nopMetrics) ObserveDuration(string, time.Duration)         {}

// #endregion collaborators

// #region config
// EngineConfig bundles the parameters of the three pipeline stages.
type EngineConfig struct {
	Gate   gate.GateConfig
	Eval   eval.EvalConfig
	Update update.UpdateConfig
}

// DefaultEngineConfig returns production parameters for every stage.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Gate:   gate.DefaultGateConfig(),
		Eval:   eval.DefaultEvalConfig(),
		Update: update.DefaultUpdateConfig(),
	}
}

// #endregion config
