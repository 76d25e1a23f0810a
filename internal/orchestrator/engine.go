package orchestrator

// #region imports
import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/adaptive-timing/internal/clock"
	"github.com/danielpatrickdp/adaptive-timing/internal/eval"
	"github.com/danielpatrickdp/adaptive-timing/internal/events"
	"github.com/danielpatrickdp/adaptive-timing/internal/gate"
	"github.com/danielpatrickdp/adaptive-timing/internal/logging"
	"github.com/danielpatrickdp/adaptive-timing/internal/reminder"
	"github.com/danielpatrickdp/adaptive-timing/internal/selector"
	"github.com/danielpatrickdp/adaptive-timing/internal/state"
	"github.com/danielpatrickdp/adaptive-timing/internal/update"
)

// #endregion

// #region engine-struct

// Deps are the engine's collaborators. Every field is optional.
type Deps struct {
	Clock     clock.Clock
	Rand      selector.Rand
	Logger    *zap.Logger
	Metrics   Metrics
	Publisher Publisher
	Sink      ProvenanceSink
}

// Engine runs the daily decide and confirm cycle for every item.
//
// Each operation is a plain get, compute, save against the store with no
// lock or transaction around it. Two concurrent calls for the same item can
// both read the same policy and the later save wins, so one of them is lost.
// Callers are expected to serialize work per item.
type Engine struct {
	store     *state.Store
	gate      *gate.Gate
	evaluator *eval.Evaluator
	config    EngineConfig
	clock     clock.Clock
	logger    *zap.Logger
	metrics   Metrics
	publisher Publisher
	sink      ProvenanceSink
}

// #endregion

// #region constructor

// NewEngine wires an engine over store.
func NewEngine(store *state.Store, config EngineConfig, deps Deps) *Engine {
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}
	if deps.Sink == nil {
		deps.Sink = nopSink{}
	}

	return &Engine{
		store:     store,
		gate:      gate.NewGate(config.Gate, store.Space(), deps.Rand),
		evaluator: eval.NewEvaluator(config.Eval),
		config:    config,
		clock:     deps.Clock,
		logger:    deps.Logger.Named("engine"),
		metrics:   deps.Metrics,
		publisher: deps.Publisher,
		sink:      deps.Sink,
	}
}

// Today returns the engine's current calendar day.
func (e *Engine) Today() string {
	return clock.Today(e.clock)
}

// #endregion

// #region get-policy

// GetPolicy returns the item's policy, creating it when absent.
func (e *Engine) GetPolicy(ctx context.Context, itemID string) (state.Policy, error) {
	if itemID == "" {
		return state.Policy{}, ErrNoItemKey
	}
	p, err := e.store.Get(ctx, itemID)
	if err != nil {
		e.metrics.ObserveError("get_policy")
		return state.Policy{}, err
	}
	return p, nil
}

// #endregion

// #region decide-today

// DecideToday returns today's suggestion for item, deciding and persisting it
// on the first call of the day. An empty nominal means item.Time.
func (e *Engine) DecideToday(ctx context.Context, item reminder.Item, nominal string) (state.Decision, error) {
	start := time.Now()
	defer func() { e.metrics.ObserveDuration("decide", time.Since(start)) }()

	key := item.Key()
	if key == "" {
		return state.Decision{}, ErrNoItemKey
	}
	if nominal == "" {
		nominal = item.Time
	}
	today := e.Today()

	p, err := e.store.Get(ctx, key)
	if err != nil {
		e.metrics.ObserveError("decide")
		return state.Decision{}, err
	}

	next, gd := e.gate.Decide(p, nominal, today)
	if !gd.Cached {
		if err := e.store.Save(ctx, key, next); err != nil {
			e.metrics.ObserveError("decide")
			return state.Decision{}, err
		}
	}

	outcome := decisionOutcome(gd)
	e.metrics.ObserveDecision(outcome)
	e.logger.Info("decided",
		zap.String("item_id", key),
		zap.String("date", today),
		zap.String("outcome", outcome),
		zap.Int("offset", gd.Decision.Offset),
		zap.String("suggested", gd.Decision.SuggestedTime),
		zap.Float64("gain", gd.Gain),
	)

	space := e.store.Space()
	e.record(ctx, "decide", key, outcome, gd.Reason, logging.DecisionRecord{
		ItemID:        key,
		Nominal:       nominal,
		Date:          today,
		ChosenIndex:   gd.Decision.ChosenIndex,
		Offset:        gd.Decision.Offset,
		SuggestedTime: gd.Decision.SuggestedTime,
		BestOffset:    space.At(gd.BestIndex),
		Gain:          gd.Gain,
		EnoughData:    gd.EnoughData,
		Passed:        gd.Passed,
		Cached:        gd.Cached,
		Thresholds:    e.thresholds(),
	})
	if !gd.Cached {
		e.publish(ctx, events.Event{
			Type:          events.TypeDecided,
			ItemID:        key,
			Date:          today,
			Offset:        gd.Decision.Offset,
			SuggestedTime: gd.Decision.SuggestedTime,
		})
	}

	return gd.Decision, nil
}

func decisionOutcome(gd gate.GateDecision) string {
	switch {
	case gd.Cached:
		return "cached"
	case gd.Decision.Offset != 0:
		return "shift"
	default:
		return "baseline"
	}
}

// SuggestOrNominal returns today's suggestion, or the nominal time when the
// engine fails. A reminder must still fire when learning is unavailable.
func (e *Engine) SuggestOrNominal(ctx context.Context, item reminder.Item) string {
	d, err := e.DecideToday(ctx, item, item.Time)
	if err != nil {
		e.logger.Warn("falling back to nominal time",
			zap.String("item_id", item.Key()), zap.Error(err))
		return item.Time
	}
	if d.SuggestedTime == "" {
		return item.Time
	}
	return d.SuggestedTime
}

// #endregion

// #region evaluate-and-learn

// EvaluateAndLearn scores a confirmation at now against today's suggestion,
// then learns from the gap between now and the nominal time. The score is
// taken before the update and is what the caller gets back.
func (e *Engine) EvaluateAndLearn(ctx context.Context, item reminder.Item, now time.Time) (Outcome, error) {
	start := time.Now()
	defer func() { e.metrics.ObserveDuration("confirm", time.Since(start)) }()

	key := item.Key()
	if key == "" {
		return Outcome{}, ErrNoItemKey
	}
	current := e.clock.Now()
	today := current.Format(clock.DateLayout)
	now = now.In(current.Location())

	p, err := e.store.Get(ctx, key)
	if err != nil {
		e.metrics.ObserveError("confirm")
		return Outcome{}, err
	}

	res := e.evaluator.Evaluate(p, item.Time, now, today)
	up := update.Update(p, e.store.Space(), item.Time, now, e.config.Update)
	if up.Decision.Action == "commit" {
		if err := e.store.Save(ctx, key, up.NewPolicy); err != nil {
			e.metrics.ObserveError("confirm")
			return Outcome{}, err
		}
	}

	e.metrics.ObserveConfirmation(res.Reward, up.Decision.Action, up.Metrics.Delta, up.Metrics.Shaped)
	e.logger.Info("confirmed",
		zap.String("item_id", key),
		zap.Int("reward", res.Reward),
		zap.String("suggested", res.SuggestedTime),
		zap.String("action", up.Decision.Action),
		zap.Int("delta", up.Metrics.Delta),
		zap.Float64("new_q", up.Metrics.NewQ),
	)

	e.record(ctx, "confirm", key, up.Decision.Action, up.Decision.Reason, logging.DecisionRecord{
		ItemID:        key,
		Nominal:       item.Time,
		Date:          today,
		Offset:        res.Offset,
		SuggestedTime: res.SuggestedTime,
		ConfirmedAt:   now.Format(time.RFC3339),
		Reward:        res.Reward,
		Delta:         up.Metrics.Delta,
		UpdatedOffset: up.Metrics.Offset,
		Shaped:        up.Metrics.Shaped,
		OldQ:          up.Metrics.OldQ,
		NewQ:          up.Metrics.NewQ,
		Visits:        up.Metrics.Visits,
		Thresholds:    e.thresholds(),
	})
	reward := res.Reward
	e.publish(ctx, events.Event{
		Type:          events.TypeConfirmed,
		ItemID:        key,
		Date:          today,
		Offset:        res.Offset,
		SuggestedTime: res.SuggestedTime,
		Reward:        &reward,
	})

	return Outcome{Reward: res.Reward, SuggestedTime: res.SuggestedTime, Offset: res.Offset}, nil
}

// MarkTaken toggles today's confirmation on item. The first press scores and
// learns and records the outcome in the item's history. A second press on
// the same day only removes the history entry; the learned update stays.
func (e *Engine) MarkTaken(ctx context.Context, item reminder.Item, now time.Time) (reminder.Item, *Outcome, error) {
	today := e.Today()
	if item.TakenOn(today) {
		return item.UndoTaken(today), nil, nil
	}
	out, err := e.EvaluateAndLearn(ctx, item, now)
	if err != nil {
		return item, nil, err
	}
	scheduled := out.SuggestedTime
	if scheduled == "" {
		scheduled = item.Time
	}
	return item.RecordTaken(today, now, scheduled, out.Offset, out.Reward), &out, nil
}

// #endregion

// #region reset

// Reset clears everything learned for itemID.
func (e *Engine) Reset(ctx context.Context, itemID string) error {
	if itemID == "" {
		return ErrNoItemKey
	}
	if err := e.store.Reset(ctx, itemID); err != nil {
		e.metrics.ObserveError("reset")
		return err
	}
	e.metrics.ObserveReset()
	e.logger.Info("reset", zap.String("item_id", itemID))
	e.record(ctx, "reset", itemID, "reset", "", logging.DecisionRecord{ItemID: itemID, Date: e.Today()})
	e.publish(ctx, events.Event{Type: events.TypeReset, ItemID: itemID, Date: e.Today()})
	return nil
}

// ResetAll resets every item and returns them with empty histories. Items
// that fail keep their history and their errors are joined.
func (e *Engine) ResetAll(ctx context.Context, items []reminder.Item) ([]reminder.Item, error) {
	out := make([]reminder.Item, len(items))
	var errs []error
	for i, it := range items {
		if err := e.Reset(ctx, it.Key()); err != nil {
			errs = append(errs, fmt.Errorf("reset %q: %w", it.Key(), err))
			out[i] = it
			continue
		}
		out[i] = it.ClearHistory()
	}
	return out, errors.Join(errs...)
}

// #endregion

// #region proposals

// PlanToday decides for every item scheduled today that has no decision yet
// and returns the ones whose suggestion moved away from the nominal time.
// Failures are logged and joined; the remaining items are still planned.
func (e *Engine) PlanToday(ctx context.Context, items []reminder.Item) ([]Proposal, error) {
	now := e.clock.Now()
	today := now.Format(clock.DateLayout)

	var proposals []Proposal
	var errs []error
	for _, it := range items {
		if !it.ScheduledOn(now.Weekday()) {
			continue
		}
		key := it.Key()
		p, err := e.GetPolicy(ctx, key)
		if err != nil {
			errs = append(errs, fmt.Errorf("plan %q: %w", key, err))
			continue
		}
		if p.DecidedOn(today) {
			continue
		}
		d, err := e.DecideToday(ctx, it, it.Time)
		if err != nil {
			errs = append(errs, fmt.Errorf("plan %q: %w", key, err))
			continue
		}
		if d.SuggestedTime != "" && d.SuggestedTime != it.Time {
			proposals = append(proposals, Proposal{
				ItemID:    key,
				Name:      it.Name,
				Nominal:   it.Time,
				Suggested: d.SuggestedTime,
				Offset:    d.Offset,
			})
		}
	}
	if len(errs) > 0 {
		e.logger.Warn("planning incomplete", zap.Int("failed", len(errs)))
	}
	return proposals, errors.Join(errs...)
}

// AcceptProposal makes the suggestion the item's new nominal time and
// restarts learning from it.
func (e *Engine) AcceptProposal(ctx context.Context, item reminder.Item, p Proposal) (reminder.Item, error) {
	if err := e.Reset(ctx, item.Key()); err != nil {
		return item, err
	}
	out := item.ClearHistory()
	out.Time = p.Suggested
	return out, nil
}

// DeclineProposal keeps the nominal time and restarts learning.
func (e *Engine) DeclineProposal(ctx context.Context, item reminder.Item) (reminder.Item, error) {
	if err := e.Reset(ctx, item.Key()); err != nil {
		return item, err
	}
	return item.ClearHistory(), nil
}

// #endregion

// #region side-channels

func (e *Engine) thresholds() logging.DecisionThresholds {
	return logging.DecisionThresholds{
		MinObs:       e.config.Gate.MinObs,
		MinGain:      e.config.Gate.MinGain,
		RewardWindow: e.config.Eval.RewardWindow,
		Alpha:        e.config.Update.Alpha,
		Scale:        e.config.Update.Scale,
	}
}

// record and publish are advisory: failures are logged and never returned.
func (e *Engine) record(ctx context.Context, trigger, itemID, decision, reason string, rec logging.DecisionRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		e.logger.Warn("marshal decision record", zap.Error(err))
		return
	}
	entry := logging.ProvenanceEntry{
		ItemID:      itemID,
		TriggerType: trigger,
		SignalsJSON: string(data),
		Decision:    decision,
		Reason:      reason,
		CreatedAt:   e.clock.Now().UTC(),
	}
	if err := e.sink.Record(ctx, entry); err != nil {
		e.logger.Warn("provenance write failed", zap.String("item_id", itemID), zap.Error(err))
	}
}

func (e *Engine) publish(ctx context.Context, ev events.Event) {
	if err := e.publisher.Publish(ctx, ev); err != nil {
		e.logger.Warn("event publish failed",
			zap.String("type", ev.Type), zap.String("item_id", ev.ItemID), zap.Error(err))
	}
}

// #endregion
