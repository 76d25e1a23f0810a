package timecodec

import (
	"testing"
	"time"
)

func TestParseValid(t *testing.T) {
	cases := map[string]int{
		"12:00 AM":   0,
		"12:05 am":   5,
		"08:00 AM":   480,
		"8:40 AM":    520,
		"12:00 PM":   720,
		"01:30 pm":   810,
		"11:59 PM":   1439,
		"  07:15PM ": 1155,
	}
	for in, want := range cases {
		got, ok := Parse(in)
		if !ok {
			t.Fatalf("Parse(%q): expected ok", in)
		}
		if got != want {
			t.Errorf("Parse(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestParseMalformed(t *testing.T) {
	for _, in := range []string{"", "8:00", "08:00 XM", "ab:cd PM", "123:00 AM", "08:0 AM", "13:00 PM", "08:60 AM", "08:00 AM tomorrow"} {
		if _, ok := Parse(in); ok {
			t.Errorf("Parse(%q): expected failure", in)
		}
	}
}

func TestFormat(t *testing.T) {
	cases := map[int]string{
		0:     "12:00 AM",
		5:     "12:05 AM",
		480:   "08:00 AM",
		720:   "12:00 PM",
		1439:  "11:59 PM",
		1440:  "12:00 AM",
		-1:    "11:59 PM",
		-1440: "12:00 AM",
		2000:  "09:20 AM",
	}
	for in, want := range cases {
		if got := Format(in); got != want {
			t.Errorf("Format(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for m := -3000; m <= 3000; m++ {
		got, ok := Parse(Format(m))
		if !ok {
			t.Fatalf("Parse(Format(%d)) failed", m)
		}
		if got != Normalize(m) {
			t.Fatalf("Parse(Format(%d)) = %d, want %d", m, got, Normalize(m))
		}
	}
}

func TestFormatParseNormalizes(t *testing.T) {
	cases := map[string]string{
		"8:05 am":   "08:05 AM",
		" 12:30 PM": "12:30 PM",
		"11:00pm":   "11:00 PM",
	}
	for in, want := range cases {
		m, ok := Parse(in)
		if !ok {
			t.Fatalf("Parse(%q) failed", in)
		}
		if got := Format(m); got != want {
			t.Errorf("Format(Parse(%q)) = %q, want %q", in, got, want)
		}
	}
}

func TestApplyOffset(t *testing.T) {
	if got := ApplyOffset("08:00 AM", 40); got != "08:40 AM" {
		t.Errorf("expected 08:40 AM, got %s", got)
	}
	if got := ApplyOffset("11:50 PM", 20); got != "12:10 AM" {
		t.Errorf("expected wrap to 12:10 AM, got %s", got)
	}
	if got := ApplyOffset("12:05 AM", -10); got != "11:55 PM" {
		t.Errorf("expected wrap to 11:55 PM, got %s", got)
	}
	if got := ApplyOffset("soon", 30); got != "soon" {
		t.Errorf("expected unparsable input unchanged, got %s", got)
	}
}

func TestCircularDiff(t *testing.T) {
	if d := CircularDiff(1438, 5); d != 7 {
		t.Errorf("expected 7, got %d", d)
	}
	if d := CircularDiff(480, 495); d != 15 {
		t.Errorf("expected 15, got %d", d)
	}
	if d := CircularDiff(0, 720); d != 720 {
		t.Errorf("expected 720, got %d", d)
	}
}

func TestFoldDeltaMidnight(t *testing.T) {
	nominal, _ := Parse("12:05 AM")
	confirmed, _ := Parse("11:58 PM")
	if d := FoldDelta(confirmed - nominal); d != -7 {
		t.Errorf("expected -7, got %d", d)
	}
	if d := FoldDelta(nominal - confirmed); d != 7 {
		t.Errorf("expected 7, got %d", d)
	}
	if d := FoldDelta(-720); d != 720 {
		t.Errorf("expected -720 to fold to 720, got %d", d)
	}
	if d := FoldDelta(720); d != 720 {
		t.Errorf("expected 720 unchanged, got %d", d)
	}
}

func TestMinuteOfDay(t *testing.T) {
	ts := time.Date(2026, 3, 4, 20, 41, 59, 0, time.UTC)
	if m := MinuteOfDay(ts); m != 20*60+41 {
		t.Errorf("expected %d, got %d", 20*60+41, m)
	}
}
