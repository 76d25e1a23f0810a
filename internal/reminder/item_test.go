package reminder

import (
	"path/filepath"
	"testing"
	"time"
)

func TestKeyFallsBackToName(t *testing.T) {
	if got := (Item{ID: "r1", Name: "Vitamin D"}).Key(); got != "r1" {
		t.Fatalf("expected id, got %q", got)
	}
	if got := (Item{Name: "Vitamin D"}).Key(); got != "Vitamin D" {
		t.Fatalf("expected name fallback, got %q", got)
	}
}

func TestScheduledOn(t *testing.T) {
	it := Item{Days: []string{"Mon", "Wed"}}
	if !it.ScheduledOn(time.Monday) || !it.ScheduledOn(time.Wednesday) {
		t.Fatal("expected Monday and Wednesday active")
	}
	if it.ScheduledOn(time.Sunday) {
		t.Fatal("expected Sunday inactive")
	}
	if (Item{}).ScheduledOn(time.Monday) {
		t.Fatal("item without days is never scheduled")
	}
}

func TestRecordTakenReplacesSameDay(t *testing.T) {
	at := time.Date(2026, 10, 19, 8, 41, 0, 0, time.UTC)
	it := Item{ID: "r1", Time: "08:00 AM"}

	it = it.RecordTaken("2026-10-19", at, "08:00 AM", 0, 0)
	it = it.RecordTaken("2026-10-19", at, "08:40 AM", 40, 1)

	if len(it.History) != 1 {
		t.Fatalf("expected one entry, got %d", len(it.History))
	}
	h := it.History[0]
	if h.Scheduled != "08:40 AM" || h.Offset != 40 || h.Reward == nil || *h.Reward != 1 {
		t.Fatalf("unexpected entry %+v", h)
	}
	if !it.TakenOn("2026-10-19") || it.TakenOn("2026-10-20") {
		t.Fatal("TakenOn mismatch")
	}
}

func TestRecordTakenDoesNotAlias(t *testing.T) {
	orig := Item{ID: "r1", History: []HistoryEntry{{Date: "2026-10-18"}}}
	next := orig.RecordTaken("2026-10-19", time.Now(), "", 0, 0)

	if len(orig.History) != 1 {
		t.Fatalf("original history changed: %+v", orig.History)
	}
	if next.History[1].Scheduled != "--:--" {
		t.Fatalf("expected placeholder scheduled time, got %q", next.History[1].Scheduled)
	}
}

func TestUndoAndClear(t *testing.T) {
	it := Item{History: []HistoryEntry{{Date: "2026-10-18"}, {Date: "2026-10-19"}}}

	if got := it.UndoTaken("2026-10-19"); len(got.History) != 1 || got.TakenOn("2026-10-19") {
		t.Fatalf("undo failed: %+v", got.History)
	}
	if got := it.ClearHistory(); len(got.History) != 0 {
		t.Fatalf("clear failed: %+v", got.History)
	}
}

func TestSaveLoadItems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.json")
	items := []Item{{ID: "r1", Name: "Iron", Time: "08:00 AM", Days: []string{"Mon"}}}

	if err := SaveItems(path, items); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := LoadItems(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0].Key() != "r1" || got[0].Time != "08:00 AM" {
		t.Fatalf("unexpected items %+v", got)
	}
}

func TestLoadItemsMissing(t *testing.T) {
	if _, err := LoadItems(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
