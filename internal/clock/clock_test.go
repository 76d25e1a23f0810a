package clock

import (
	"testing"
	"time"
)

func TestTodayUsesClockLocation(t *testing.T) {
	tz := time.FixedZone("UTC-5", -5*3600)
	// 02:00 UTC on the 20th is still the 19th at UTC-5.
	m := NewManual(time.Date(2026, 10, 20, 2, 0, 0, 0, time.UTC).In(tz))
	if got := Today(m); got != "2026-10-19" {
		t.Fatalf("expected 2026-10-19, got %s", got)
	}
}

func TestManualAdvance(t *testing.T) {
	m := NewManual(time.Date(2026, 10, 19, 23, 30, 0, 0, time.UTC))
	m.Advance(time.Hour)
	if got := Today(m); got != "2026-10-20" {
		t.Fatalf("expected rollover to 2026-10-20, got %s", got)
	}
	m.Set(time.Date(2027, 1, 1, 8, 0, 0, 0, time.UTC))
	if got := Today(m); got != "2027-01-01" {
		t.Fatalf("expected 2027-01-01, got %s", got)
	}
}

func TestSystemLocation(t *testing.T) {
	tz := time.FixedZone("X", 3600)
	if loc := (System{Location: tz}).Now().Location(); loc != tz {
		t.Fatalf("expected location X, got %v", loc)
	}
}
