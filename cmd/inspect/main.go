package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/danielpatrickdp/adaptive-timing/internal/logging"
	"github.com/danielpatrickdp/adaptive-timing/internal/offsets"
	"github.com/danielpatrickdp/adaptive-timing/internal/state"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to adaptive_timing.db")
	item := flag.String("item", "", "show one item's policy, history and decisions")
	last := flag.Int("last", 20, "show N most recent history snapshots and decisions")
	top := flag.Int("top", 5, "arms to show per policy, ranked by q")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/adaptive_timing.db [--item id] [--last N] [--top N] [--json]")
		os.Exit(2)
	}

	repo, err := state.NewSQLiteRepository(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer repo.Close()

	space := offsets.Default()
	ctx := context.Background()
	if *item != "" {
		err = runDetailMode(ctx, repo, space, *item, *last, *top, *jsonOut)
	} else {
		err = runListMode(ctx, repo, space, *top, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	ItemID    string `json:"item_id"`
	Decided   string `json:"decided,omitempty"`
	Offset    int    `json:"offset"`
	Suggested string `json:"suggested,omitempty"`
	Arms      []arm  `json:"arms"`
	Error     string `json:"error,omitempty"`
}

type arm struct {
	Offset int     `json:"offset"`
	Q      float64 `json:"q"`
	N      int     `json:"n"`
}

func runListMode(ctx context.Context, repo *state.SQLiteRepository, space offsets.Space, top int, jsonOut bool) error {
	keys, err := repo.Keys(ctx, state.KeyPrefix)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Fprintln(os.Stderr, "no policies found")
		return nil
	}

	rows := make([]listRow, 0, len(keys))
	for _, key := range keys {
		row := listRow{ItemID: strings.TrimPrefix(key, state.KeyPrefix)}
		raw, ok, err := repo.Get(ctx, key)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		p, err := state.Decode(raw, space)
		if err != nil {
			row.Error = err.Error()
			rows = append(rows, row)
			continue
		}
		fillPolicy(&row, p, space, top)
		rows = append(rows, row)
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-20s  %-10s  %6s  %-9s  %s\n", "Item", "Decided", "Offset", "Suggested", "Top arms (offset q/n)")
	fmt.Printf("%-20s+-%-10s+-%6s+-%-9s+-%s\n",
		"--------------------", "----------", "------", "---------", "--------------------")
	for _, r := range rows {
		if r.Error != "" {
			fmt.Printf("%-20s  %s\n", r.ItemID, r.Error)
			continue
		}
		fmt.Printf("%-20s  %-10s  %+6d  %-9s  %s\n", r.ItemID, orDash(r.Decided), r.Offset, orDash(r.Suggested), formatArms(r.Arms))
	}
	return nil
}

func fillPolicy(row *listRow, p state.Policy, space offsets.Space, top int) {
	if p.Last != nil {
		row.Decided = p.Last.DecisionDate
		row.Offset = p.Last.Offset
		row.Suggested = p.Last.SuggestedTime
	}
	row.Arms = topArms(p, space, top)
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	Policy    listRow                   `json:"policy"`
	History   []snapshotRow             `json:"history"`
	Decisions []logging.ProvenanceEntry `json:"decisions"`
}

type snapshotRow struct {
	SnapshotID string `json:"snapshot_id"`
	Op         string `json:"op"`
	CreatedAt  string `json:"created_at"`
	Decided    string `json:"decided,omitempty"`
	Offset     int    `json:"offset"`
	Visits     int    `json:"visits"`
}

func runDetailMode(ctx context.Context, repo *state.SQLiteRepository, space offsets.Space, itemID string, last, top int, jsonOut bool) error {
	key := state.Key(itemID)
	raw, ok, err := repo.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no policy for %q", itemID)
	}

	out := detailOutput{Policy: listRow{ItemID: itemID}}
	p, err := state.Decode(raw, space)
	if err != nil {
		out.Policy.Error = err.Error()
	} else {
		fillPolicy(&out.Policy, p, space, top)
	}

	snaps, err := repo.History(ctx, key, last)
	if err != nil {
		return err
	}
	for i := len(snaps) - 1; i >= 0; i-- {
		out.History = append(out.History, toSnapshotRow(snaps[i], space))
	}

	out.Decisions, err = logging.QueryDecisions(repo.DB(), itemID, "", last)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Item:       %s\n", itemID)
	if out.Policy.Error != "" {
		fmt.Printf("Policy:     %s\n", out.Policy.Error)
	} else {
		fmt.Printf("Decided:    %s\n", orDash(out.Policy.Decided))
		fmt.Printf("Offset:     %+d\n", out.Policy.Offset)
		fmt.Printf("Suggested:  %s\n", orDash(out.Policy.Suggested))
		fmt.Printf("Top arms:   %s\n", formatArms(out.Policy.Arms))
	}

	fmt.Printf("\nHistory (oldest first):\n")
	for _, s := range out.History {
		fmt.Printf("  %-8s  %-6s  %-10s  %+5d  n=%-4d  %s\n",
			shortID(s.SnapshotID), s.Op, orDash(s.Decided), s.Offset, s.Visits, s.CreatedAt)
	}

	fmt.Printf("\nDecisions:\n")
	for _, d := range out.Decisions {
		fmt.Printf("  %-8s  %-9s  %-40s  %s\n",
			d.TriggerType, d.Decision, d.Reason, d.CreatedAt.Format("2006-01-02T15:04:05Z"))
	}
	return nil
}

func toSnapshotRow(s state.Snapshot, space offsets.Space) snapshotRow {
	row := snapshotRow{
		SnapshotID: s.SnapshotID,
		Op:         s.Op,
		CreatedAt:  s.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if s.Value == nil {
		return row
	}
	p, err := state.Decode(s.Value, space)
	if err != nil {
		return row
	}
	if p.Last != nil {
		row.Decided = p.Last.DecisionDate
		row.Offset = p.Last.Offset
		row.Visits = p.N[p.Last.ChosenIndex]
	}
	return row
}

// #endregion detail-mode

// #region arms

// topArms returns the n highest-q arms, ties toward the smaller offset.
func topArms(p state.Policy, space offsets.Space, n int) []arm {
	arms := make([]arm, space.Len())
	for i := range arms {
		arms[i] = arm{Offset: space.At(i), Q: p.Q[i], N: p.N[i]}
	}
	for i := 1; i < len(arms); i++ {
		for j := i; j > 0 && better(arms[j], arms[j-1]); j-- {
			arms[j], arms[j-1] = arms[j-1], arms[j]
		}
	}
	if n < len(arms) {
		arms = arms[:n]
	}
	return arms
}

func better(a, b arm) bool {
	if a.Q != b.Q {
		return a.Q > b.Q
	}
	return abs(a.Offset) < abs(b.Offset)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// #endregion arms

// #region output

func formatArms(arms []arm) string {
	parts := make([]string, len(arms))
	for i, a := range arms {
		parts[i] = fmt.Sprintf("%+d %.3f/%d", a.Offset, a.Q, a.N)
	}
	return strings.Join(parts, ", ")
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
