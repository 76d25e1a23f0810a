// Package reminder is the read side of the scheduled items the engine learns
// timing for. Items are owned by the caller; the engine only reads the id and
// nominal time and hands back history bookkeeping as new values.
package reminder

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// ShortDays maps time.Weekday to the names stored in Item.Days.
var ShortDays = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// #region item
// HistoryEntry is one day's confirmation. Reward is nil until the engine has
// scored the confirmation.
type HistoryEntry struct {
	Date      string    `json:"date"` // YYYY-MM-DD
	TakenAt   time.Time `json:"ts"`
	Scheduled string    `json:"scheduled"`
	Offset    int       `json:"offset"`
	Reward    *int      `json:"reward"`
}

// Item is a recurring scheduled action.
type Item struct {
	ID      string         `json:"id,omitempty"`
	Name    string         `json:"medName"`
	Time    string         `json:"time"` // nominal, "HH:MM AM/PM"
	Days    []string       `json:"days"`
	History []HistoryEntry `json:"history,omitempty"`
}

// Key is the identity the policy is stored under: the id, or the name when
// the id is empty.
func (it Item) Key() string {
	if it.ID != "" {
		return it.ID
	}
	return it.Name
}

// ScheduledOn reports whether the item is active on weekday.
func (it Item) ScheduledOn(weekday time.Weekday) bool {
	want := ShortDays[weekday]
	for _, d := range it.Days {
		if d == want {
			return true
		}
	}
	return false
}

// TakenOn reports whether a confirmation exists for date.
func (it Item) TakenOn(date string) bool {
	for _, h := range it.History {
		if h.Date == date {
			return true
		}
	}
	return false
}

// #endregion item

// #region history
// RecordTaken returns a copy of it with date's entry set to the scored
// confirmation, replacing any earlier entry for the same date.
func (it Item) RecordTaken(date string, at time.Time, scheduled string, offset, reward int) Item {
	out := it.withoutDate(date)
	r := reward
	if scheduled == "" {
		scheduled = "--:--"
	}
	out.History = append(out.History, HistoryEntry{
		Date:      date,
		TakenAt:   at,
		Scheduled: scheduled,
		Offset:    offset,
		Reward:    &r,
	})
	return out
}

// UndoTaken returns a copy of it without date's entry.
func (it Item) UndoTaken(date string) Item {
	return it.withoutDate(date)
}

// ClearHistory returns a copy with no history. Used whenever learning for the
// item restarts.
func (it Item) ClearHistory() Item {
	out := it
	out.Days = append([]string(nil), it.Days...)
	out.History = nil
	return out
}

func (it Item) withoutDate(date string) Item {
	out := it
	out.Days = append([]string(nil), it.Days...)
	out.History = make([]HistoryEntry, 0, len(it.History)+1)
	for _, h := range it.History {
		if h.Date != date {
			out.History = append(out.History, h)
		}
	}
	return out
}

// #endregion history

// #region loader
// LoadItems reads a JSON array of items.
func LoadItems(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read items %s: %w", path, err)
	}
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse items %s: %w", path, err)
	}
	return items, nil
}

// SaveItems writes items as indented JSON.
func SaveItems(path string, items []Item) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write items %s: %w", path, err)
	}
	return nil
}

// #endregion loader
