// Item is the central entity of the domain.
package core

import (
	"time"
)

// Item is an atomic unit of content awaiting merge into a daily note.
// Items are produced by event handlers (chat bots, clip collectors, AI
// summarizers) and are immutable once enqueued.
type Item struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	Context   string    `json:"context,omitempty"`
	Category  string    `json:"category,omitempty"`
}

// DayKey identifies one calendar day in the vault's owning timezone,
// formatted as ISO 8601 ("2006-01-02"). It doubles as the daily note's
// filename stem.
type DayKey string

// DayKeyFor converts a timestamp into the calendar day it belongs to in loc.
func DayKeyFor(t time.Time, loc *time.Location) DayKey {
	return DayKey(t.In(loc).Format("2006-01-02"))
}

// ParseDayKey validates a user-supplied day string.
func ParseDayKey(s string) (DayKey, error) {
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return "", err
	}
	return DayKey(s), nil
}

func (d DayKey) String() string {
	return string(d)
}

// Document is the full text of one day's note.
type Document struct {
	Day     DayKey
	Content string
}

type contextKey string

// ChangeReasonKey is the context key for passing specific change reasons
// (commit messages) during vault writes.
const ChangeReasonKey contextKey = "change_reason"
