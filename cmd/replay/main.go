package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/adaptive-timing/internal/offsets"
	"github.com/danielpatrickdp/adaptive-timing/internal/replay"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to fixture JSON")
	minObs := flag.Int("min-obs", 0, "override gate min_obs")
	minGain := flag.Float64("min-gain", 0, "override gate min_gain")
	alpha := flag.Float64("alpha", 0, "override update alpha")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json [--min-obs N] [--min-gain G] [--alpha A]")
		os.Exit(2)
	}

	f, err := replay.LoadFixture(*fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		os.Exit(2)
	}
	if *minObs > 0 {
		f.Config.GateConfig.MinObs = *minObs
	}
	if *minGain > 0 {
		f.Config.GateConfig.MinGain = *minGain
	}
	if *alpha > 0 {
		f.Config.UpdateConfig.Alpha = *alpha
	}

	os.Exit(runFixture(f))
}

// #endregion main

// #region run

func runFixture(f *replay.Fixture) int {
	space := offsets.Default()
	start, err := f.ToPolicy(space)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start policy: %v\n", err)
		return 2
	}
	days, err := f.ToDays()
	if err != nil {
		fmt.Fprintf(os.Stderr, "days: %v\n", err)
		return 2
	}

	results, final := replay.Replay(start, space, f.Nominal, days, f.Config.ToReplayConfig())
	mismatches := replay.Compare(f.ExpectedResults, results)
	printComparison(f.ExpectedResults, results, mismatches)

	s := replay.Summarize(results, final)
	fmt.Printf("\nSummary: %d days, %d baseline, %d shifted, %d/%d hits, %d diverge\n",
		s.TotalDays, s.Baseline, s.Shifted, s.Hits, s.Confirmations, len(mismatches))

	if len(mismatches) > 0 {
		return 1
	}
	return 0
}

// #endregion run

// #region output

// printComparison outputs one row per expected day.
func printComparison(expected []replay.FixtureExpectedResult, results []replay.ReplayResult, mismatches []replay.Mismatch) {
	diff := make(map[string]bool, len(mismatches))
	for _, m := range mismatches {
		diff[m.Date] = true
	}

	fmt.Printf("%-10s| %-15s| %-15s| %-9s| %-6s| %s\n", "Date", "Expected", "Replayed", "Suggested", "Reward", "Match")
	fmt.Printf("%-10s+%-16s+%-16s+%-10s+%-7s+%s\n",
		"----------", "----------------", "----------------", "----------", "-------", "------")

	for i, exp := range expected {
		got, suggested, reward := "-", "-", "-"
		if i < len(results) {
			r := results[i]
			got = fmt.Sprintf("%s %+d", r.Action, r.Offset)
			suggested = r.SuggestedTime
			if r.EvalResult != nil {
				reward = fmt.Sprintf("%d", r.EvalResult.Reward)
			}
		}
		want := "-"
		if exp.Action != "" {
			want = fmt.Sprintf("%s %+d", exp.Action, exp.Offset)
		}
		match := "OK"
		if diff[exp.Date] {
			match = "DIFF"
		}
		fmt.Printf("%-10s| %-15s| %-15s| %-9s| %-6s| %s\n", exp.Date, want, got, suggested, reward, match)
	}
}

// #endregion output
