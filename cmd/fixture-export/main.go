package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/danielpatrickdp/adaptive-timing/internal/logging"
	"github.com/danielpatrickdp/adaptive-timing/internal/offsets"
	"github.com/danielpatrickdp/adaptive-timing/internal/replay"
	"github.com/danielpatrickdp/adaptive-timing/internal/state"
	"github.com/danielpatrickdp/adaptive-timing/internal/timecodec"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to adaptive_timing.db")
	itemID := flag.String("item", "", "item to export")
	last := flag.Int("last", 14, "number of most recent days to export")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *itemID == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/db --item id --out path/to/fixture.json [--last N]")
		os.Exit(2)
	}

	if err := run(*dbPath, *itemID, *last, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

// maxProvenanceRows bounds the provenance scan; a handful of rows per day.
const maxProvenanceRows = 10000

func run(dbPath, itemID string, last int, outPath string) error {
	repo, err := state.NewSQLiteRepository(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer repo.Close()

	entries, err := logging.QueryDecisions(repo.DB(), itemID, "", maxProvenanceRows)
	if err != nil {
		return err
	}
	f, err := buildFixture(itemID, entries, last)
	if err != nil {
		return err
	}

	snaps, err := repo.History(context.Background(), state.Key(itemID), maxProvenanceRows)
	if err != nil {
		return err
	}
	f.StartPolicy = startPolicy(snaps, f.Days[0].Date, offsets.Default())

	if err := replay.WriteFixture(*f, outPath); err != nil {
		return err
	}
	fmt.Printf("Exported %d days for %s to %s\n", len(f.Days), itemID, outPath)
	return nil
}

// buildFixture turns provenance rows into a fixture covering the last n
// days after the most recent reset. Only the first confirmation of a day is
// kept.
func buildFixture(itemID string, entries []logging.ProvenanceEntry, n int) (*replay.Fixture, error) {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].TriggerType == "reset" {
			entries = entries[i+1:]
			break
		}
	}

	f := &replay.Fixture{
		Description: fmt.Sprintf("Exported from provenance_log for %s", itemID),
		ItemID:      itemID,
	}
	byDate := map[string]int{}
	for _, e := range entries {
		var rec logging.DecisionRecord
		if err := json.Unmarshal([]byte(e.SignalsJSON), &rec); err != nil || rec.Date == "" {
			continue
		}

		idx, seen := byDate[rec.Date]
		if !seen {
			idx = len(f.Days)
			byDate[rec.Date] = idx
			f.Days = append(f.Days, replay.FixtureDay{Date: rec.Date})
			f.ExpectedResults = append(f.ExpectedResults, replay.FixtureExpectedResult{Date: rec.Date})
		}
		if rec.Nominal != "" {
			f.Nominal = rec.Nominal
		}
		f.Config = fixtureConfig(rec.Thresholds)

		switch e.TriggerType {
		case "decide":
			if rec.Cached {
				continue
			}
			f.ExpectedResults[idx].Action = e.Decision
			f.ExpectedResults[idx].Offset = rec.Offset
		case "confirm":
			if f.Days[idx].ConfirmedAt != "" || rec.ConfirmedAt == "" {
				continue
			}
			at, err := time.Parse(time.RFC3339, rec.ConfirmedAt)
			if err != nil {
				return nil, fmt.Errorf("confirm on %s: %w", rec.Date, err)
			}
			f.Days[idx].ConfirmedAt = timecodec.Format(timecodec.MinuteOfDay(at))
			reward := rec.Reward
			f.ExpectedResults[idx].Reward = &reward
		}
	}

	if len(f.Days) == 0 {
		return nil, fmt.Errorf("no decide or confirm rows for %s", itemID)
	}
	if n > 0 && len(f.Days) > n {
		cut := len(f.Days) - n
		f.Days = f.Days[cut:]
		f.ExpectedResults = f.ExpectedResults[cut:]
	}
	return f, nil
}

// startPolicy returns the last snapshot taken before firstDate was decided,
// or nil for the prior. A delete resets to the prior.
func startPolicy(snapsNewestFirst []state.Snapshot, firstDate string, space offsets.Space) json.RawMessage {
	var start json.RawMessage
	for i := len(snapsNewestFirst) - 1; i >= 0; i-- {
		s := snapsNewestFirst[i]
		if s.Op == "delete" || s.Value == nil {
			start = nil
			continue
		}
		p, err := state.Decode(s.Value, space)
		if err != nil {
			continue
		}
		if p.Last != nil && p.Last.DecisionDate >= firstDate {
			break
		}
		start = json.RawMessage(s.Value)
	}
	return start
}

func fixtureConfig(t logging.DecisionThresholds) replay.FixtureConfig {
	return replay.FixtureConfig{
		GateConfig:   replay.FixtureGateConfig{MinObs: t.MinObs, MinGain: t.MinGain},
		EvalConfig:   replay.FixtureEvalConfig{RewardWindow: t.RewardWindow},
		UpdateConfig: replay.FixtureUpdateConfig{Alpha: t.Alpha, Scale: t.Scale},
	}
}

// #endregion extract
