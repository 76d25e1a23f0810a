package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/adaptive-timing/internal/orchestrator"
	"github.com/danielpatrickdp/adaptive-timing/internal/reminder"
	"github.com/danielpatrickdp/adaptive-timing/internal/rpc"
	"github.com/danielpatrickdp/adaptive-timing/internal/state"
)

const callTimeout = 30 * time.Second

// #region backend
// backend is the per-item surface shared by the local engine and a remote
// timingd, so every item command works either way.
type backend interface {
	GetPolicy(ctx context.Context, itemID string) (state.Policy, error)
	DecideToday(ctx context.Context, itemID, nominal string) (state.Decision, error)
	EvaluateAndLearn(ctx context.Context, itemID, nominal string, at time.Time) (orchestrator.Outcome, error)
	Reset(ctx context.Context, itemID string) error
	Close() error
}

type localBackend struct {
	rt *runtime
}

func (b localBackend) GetPolicy(ctx context.Context, itemID string) (state.Policy, error) {
	return b.rt.engine.GetPolicy(ctx, itemID)
}

func (b localBackend) DecideToday(ctx context.Context, itemID, nominal string) (state.Decision, error) {
	return b.rt.engine.DecideToday(ctx, reminder.Item{ID: itemID, Time: nominal}, nominal)
}

func (b localBackend) EvaluateAndLearn(ctx context.Context, itemID, nominal string, at time.Time) (orchestrator.Outcome, error) {
	if at.IsZero() {
		at = time.Now()
	}
	return b.rt.engine.EvaluateAndLearn(ctx, reminder.Item{ID: itemID, Time: nominal}, at)
}

func (b localBackend) Reset(ctx context.Context, itemID string) error {
	return b.rt.engine.Reset(ctx, itemID)
}

func (b localBackend) Close() error {
	return b.rt.Close()
}

func openBackend() (backend, error) {
	if remoteAddr != "" {
		client, err := rpc.NewClient(remoteAddr)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	rt, err := openRuntime(configPath, false)
	if err != nil {
		return nil, err
	}
	return localBackend{rt: rt}, nil
}

// withBackend runs fn against a backend with a bounded context.
func withBackend(cmd *cobra.Command, fn func(ctx context.Context, b backend) error) error {
	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
	defer cancel()
	return fn(ctx, b)
}

// #endregion backend

// #region item-commands
func newDecideCommand() *cobra.Command {
	var itemID, nominal string
	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Print today's suggested time for an item",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, func(ctx context.Context, b backend) error {
				d, err := b.DecideToday(ctx, itemID, nominal)
				if err != nil {
					return err
				}
				return printJSON(d)
			})
		},
	}
	cmd.Flags().StringVar(&itemID, "item", "", "item id")
	cmd.Flags().StringVar(&nominal, "nominal", "", `nominal time, e.g. "08:00 AM"`)
	_ = cmd.MarkFlagRequired("item")
	_ = cmd.MarkFlagRequired("nominal")
	return cmd
}

func newConfirmCommand() *cobra.Command {
	var itemID, nominal, at string
	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Score a confirmation and learn from it",
		RunE: func(cmd *cobra.Command, args []string) error {
			var when time.Time
			if at != "" {
				var err error
				when, err = time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
			}
			return withBackend(cmd, func(ctx context.Context, b backend) error {
				out, err := b.EvaluateAndLearn(ctx, itemID, nominal, when)
				if err != nil {
					return err
				}
				return printJSON(out)
			})
		},
	}
	cmd.Flags().StringVar(&itemID, "item", "", "item id")
	cmd.Flags().StringVar(&nominal, "nominal", "", `nominal time, e.g. "08:00 AM"`)
	cmd.Flags().StringVar(&at, "at", "", "confirmation instant in RFC3339; default now")
	_ = cmd.MarkFlagRequired("item")
	_ = cmd.MarkFlagRequired("nominal")
	return cmd
}

func newResetCommand() *cobra.Command {
	var itemID string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget everything learned for an item",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, func(ctx context.Context, b backend) error {
				return b.Reset(ctx, itemID)
			})
		},
	}
	cmd.Flags().StringVar(&itemID, "item", "", "item id")
	_ = cmd.MarkFlagRequired("item")
	return cmd
}

func newPolicyCommand() *cobra.Command {
	var itemID string
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Print an item's stored policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, func(ctx context.Context, b backend) error {
				p, err := b.GetPolicy(ctx, itemID)
				if err != nil {
					return err
				}
				data, err := state.Encode(p)
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&itemID, "item", "", "item id")
	_ = cmd.MarkFlagRequired("item")
	return cmd
}

// #endregion item-commands

// #region list-commands
func newPlanCommand() *cobra.Command {
	var itemsPath string
	var accept bool
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Decide for today's items and list suggested time changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(configPath, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			items, err := reminder.LoadItems(itemsPath)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
			defer cancel()

			proposals, planErr := rt.engine.PlanToday(ctx, items)
			if err := printJSON(proposals); err != nil {
				return err
			}
			if !accept || len(proposals) == 0 {
				return planErr
			}

			byKey := make(map[string]orchestrator.Proposal, len(proposals))
			for _, p := range proposals {
				byKey[p.ItemID] = p
			}
			for i, it := range items {
				p, ok := byKey[it.Key()]
				if !ok {
					continue
				}
				accepted, err := rt.engine.AcceptProposal(ctx, it, p)
				if err != nil {
					return err
				}
				items[i] = accepted
			}
			if err := reminder.SaveItems(itemsPath, items); err != nil {
				return err
			}
			return planErr
		},
	}
	cmd.Flags().StringVar(&itemsPath, "items", "items.json", "items file")
	cmd.Flags().BoolVar(&accept, "accept", false, "adopt every proposal as the new nominal time")
	return cmd
}

func newTakeCommand() *cobra.Command {
	var itemsPath, itemID string
	cmd := &cobra.Command{
		Use:   "take",
		Short: "Toggle today's taken mark on an item in the items file",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(configPath, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			items, err := reminder.LoadItems(itemsPath)
			if err != nil {
				return err
			}
			idx := -1
			for i, it := range items {
				if it.Key() == itemID {
					idx = i
					break
				}
			}
			if idx < 0 {
				return fmt.Errorf("item %q not found in %s", itemID, itemsPath)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
			defer cancel()
			updated, out, err := rt.engine.MarkTaken(ctx, items[idx], time.Now())
			if err != nil {
				return err
			}
			items[idx] = updated
			if err := reminder.SaveItems(itemsPath, items); err != nil {
				return err
			}
			if out == nil {
				fmt.Println(`{"undone": true}`)
				return nil
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&itemsPath, "items", "items.json", "items file")
	cmd.Flags().StringVar(&itemID, "item", "", "item id or name")
	_ = cmd.MarkFlagRequired("item")
	return cmd
}

// #endregion list-commands

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
