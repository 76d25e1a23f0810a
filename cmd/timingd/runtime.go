package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/adaptive-timing/internal/clock"
	"github.com/danielpatrickdp/adaptive-timing/internal/config"
	"github.com/danielpatrickdp/adaptive-timing/internal/events"
	"github.com/danielpatrickdp/adaptive-timing/internal/logging"
	"github.com/danielpatrickdp/adaptive-timing/internal/metrics"
	"github.com/danielpatrickdp/adaptive-timing/internal/offsets"
	"github.com/danielpatrickdp/adaptive-timing/internal/orchestrator"
	"github.com/danielpatrickdp/adaptive-timing/internal/selector"
	"github.com/danielpatrickdp/adaptive-timing/internal/state"
)

// #region runtime
// runtime is everything a command needs to drive the engine locally.
type runtime struct {
	cfg     *config.Config
	logger  *zap.Logger
	engine  *orchestrator.Engine
	closers []func() error
}

// openRuntime loads config and wires the engine over the configured backend.
// withMetrics registers the Prometheus collectors; only serve exports them.
func openRuntime(path string, withMetrics bool) (*runtime, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, logger: logger}
	rt.closers = append(rt.closers, func() error { _ = logger.Sync(); return nil })

	repo, sink, err := rt.openRepository(cfg.Store)
	if err != nil {
		rt.Close()
		return nil, err
	}

	deps := orchestrator.Deps{
		Clock:  clock.System{Location: loc},
		Rand:   newRand(cfg),
		Logger: logger,
	}
	if sink != nil {
		deps.Sink = sink
	}
	if withMetrics {
		deps.Metrics = metrics.NewMetrics()
	}
	if cfg.Events.NATSURL != "" {
		pub, err := events.Connect(cfg.Events.NATSURL, cfg.Events.SubjectPrefix, logger)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, pub.Close)
		deps.Publisher = pub
	}

	store := state.NewStore(repo, offsets.Default(), logger)
	rt.engine = orchestrator.NewEngine(store, orchestrator.EngineConfig{
		Gate:   cfg.GateConfig(),
		Eval:   cfg.EvalConfig(),
		Update: cfg.UpdateConfig(),
	}, deps)

	logger.Debug("runtime ready",
		zap.String("backend", cfg.Store.Backend),
		zap.String("timezone", loc.String()),
		zap.Bool("events", cfg.Events.NATSURL != ""))
	return rt, nil
}

func (rt *runtime) openRepository(sc config.StoreConfig) (state.Repository, orchestrator.ProvenanceSink, error) {
	switch sc.Backend {
	case "memory":
		return state.NewMemoryRepository(), nil, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: sc.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", sc.RedisAddr, err)
		}
		rt.closers = append(rt.closers, client.Close)
		return state.NewRedisRepository(client, sc.RedisPrefix), nil, nil
	case "sqlite":
		repo, err := state.NewSQLiteRepository(sc.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		rt.closers = append(rt.closers, repo.Close)
		return repo, logging.NewSQLSink(repo.DB()), nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", sc.Backend)
	}
}

// Close releases resources in reverse order of acquisition.
func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

func newRand(cfg *config.Config) selector.Rand {
	if cfg.Bandit.GateExploration == 0 && cfg.Bandit.PickExploration == 0 {
		return nil
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// #endregion runtime
