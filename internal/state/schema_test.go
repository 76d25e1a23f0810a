package state

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/danielpatrickdp/adaptive-timing/internal/offsets"
)

func uniform(n int, q float64, visits int) ([]float64, []int) {
	qs := make([]float64, n)
	ns := make([]int, n)
	for i := range qs {
		qs[i] = q
		ns[i] = visits
	}
	return qs, ns
}

func TestEncodeDecodeCurrent(t *testing.T) {
	space := offsets.Default()
	p := NewPolicy(space)
	p.Q[76] = 0.9
	p.N[76] = 7
	p = p.WithDecision(Decision{DecisionDate: "2026-10-19", ChosenIndex: 76, Offset: 40, SuggestedTime: "08:40 AM"})

	data, err := Encode(p)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(data), `"version":1`) {
		t.Fatalf("expected version field, got %s", data)
	}
	if !strings.Contains(string(data), `"decision_date":"2026-10-19"`) {
		t.Fatalf("expected decision_date key, got %s", data)
	}

	got, err := Decode(data, space)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Q[76] != 0.9 || got.N[76] != 7 {
		t.Fatalf("arm 76 mismatch: q=%f n=%d", got.Q[76], got.N[76])
	}
	if got.Last == nil || *got.Last != *p.Last {
		t.Fatalf("last mismatch: %+v", got.Last)
	}
}

func TestDecodeMigratesLegacyRecord(t *testing.T) {
	space := offsets.Default()
	q, n := uniform(space.Len(), 0.5, 1)
	q[76] = 0.8
	n[76] = 6
	legacy := map[string]any{
		"q":    q,
		"n":    n,
		"last": map[string]any{"date": "2026-10-18", "arm": 76, "offset": 40, "suggested": "08:40 AM"},
	}
	raw, _ := json.Marshal(legacy)

	p, err := Decode(raw, space)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p.Version != SchemaVersion {
		t.Fatalf("expected version %d, got %d", SchemaVersion, p.Version)
	}
	if p.Last == nil || p.Last.DecisionDate != "2026-10-18" || p.Last.ChosenIndex != 76 || p.Last.SuggestedTime != "08:40 AM" {
		t.Fatalf("last not migrated: %+v", p.Last)
	}
	if p.Streak == nil || p.Streak.Index != space.BaselineIndex() || p.Streak.DayCount != 0 {
		t.Fatalf("expected default streak, got %+v", p.Streak)
	}
	if p.Q[76] != 0.8 || p.N[76] != 6 {
		t.Fatalf("arrays not carried: q=%f n=%d", p.Q[76], p.N[76])
	}
}

func TestDecodeLegacyWithoutLastOrStreak(t *testing.T) {
	space := offsets.Default()
	q, n := uniform(space.Len(), 0.5, 1)
	raw, _ := json.Marshal(map[string]any{"q": q, "n": n})

	p, err := Decode(raw, space)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p.Last != nil {
		t.Fatalf("expected nil last, got %+v", p.Last)
	}
	if p.Streak == nil {
		t.Fatal("expected streak default")
	}
}

func TestDecodeLegacyStreakCarried(t *testing.T) {
	space := offsets.Default()
	q, n := uniform(space.Len(), 0.5, 1)
	raw, _ := json.Marshal(map[string]any{"q": q, "n": n, "streak": map[string]int{"idx": 80, "days": 3}})

	p, err := Decode(raw, space)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p.Streak.Index != 80 || p.Streak.DayCount != 3 {
		t.Fatalf("streak not carried: %+v", p.Streak)
	}
}

func TestDecodeCorrupt(t *testing.T) {
	space := offsets.Default()
	q, n := uniform(space.Len(), 0.5, 1)
	short, _ := json.Marshal(map[string]any{"version": 1, "q": q[:3], "n": n[:3]})
	future, _ := json.Marshal(map[string]any{"version": 99, "q": q, "n": n})
	badLast, _ := json.Marshal(map[string]any{"version": 1, "q": q, "n": n,
		"last": map[string]any{"decision_date": "2026-10-19", "chosen_index": 999}})

	cases := map[string][]byte{
		"not json":     []byte("{{{"),
		"null":         []byte("null"),
		"array":        []byte("[1,2,3]"),
		"missing n":    []byte(`{"q":[0.5]}`),
		"short arrays": short,
		"future":       future,
		"bad last":     badLast,
	}
	for name, raw := range cases {
		if _, err := Decode(raw, space); !errors.Is(err, ErrCorrupt) {
			t.Errorf("%s: expected ErrCorrupt, got %v", name, err)
		}
	}
}

func TestDecodeClampsOutOfRange(t *testing.T) {
	space := offsets.Default()
	q, n := uniform(space.Len(), 0.5, 1)
	q[0] = 1.7
	q[1] = -0.3
	n[2] = 0
	raw, _ := json.Marshal(map[string]any{"version": 1, "q": q, "n": n})

	p, err := Decode(raw, space)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p.Q[0] != 1 || p.Q[1] != 0 {
		t.Fatalf("expected clamp to [0,1], got %f %f", p.Q[0], p.Q[1])
	}
	if p.N[2] != 1 {
		t.Fatalf("expected n floor of 1, got %d", p.N[2])
	}
}

func TestCloneIsDeep(t *testing.T) {
	p := NewPolicy(offsets.Default())
	p = p.WithDecision(Decision{DecisionDate: "2026-10-19"})
	c := p.Clone()
	c.Q[0] = 0.99
	c.N[0] = 42
	c.Last.DecisionDate = "changed"
	c.Streak.DayCount = 9

	if p.Q[0] != 0.5 || p.N[0] != 1 {
		t.Fatal("clone shares arrays")
	}
	if p.Last.DecisionDate != "2026-10-19" {
		t.Fatal("clone shares last")
	}
	if p.Streak.DayCount != 0 {
		t.Fatal("clone shares streak")
	}
}

func TestNewPolicyPrior(t *testing.T) {
	space := offsets.Default()
	p := NewPolicy(space)
	if len(p.Q) != space.Len() || len(p.N) != space.Len() {
		t.Fatalf("expected %d arms", space.Len())
	}
	for i := range p.Q {
		if p.Q[i] != 0.5 || p.N[i] != 1 {
			t.Fatalf("arm %d: q=%f n=%d", i, p.Q[i], p.N[i])
		}
	}
	if p.Last != nil {
		t.Fatal("fresh policy should have no decision")
	}
	if p.DecidedOn("2026-10-19") {
		t.Fatal("fresh policy should not be decided")
	}
}
