package note

import (
	"fmt"
	"strings"
	"time"

	"github.com/fyshx/kiroku/pkg/core"
)

// FormatItem renders a content item as a daily-note bullet: the item's
// local wall-clock time, with every line of the body indented underneath.
//
//	- 11:42
//		- first line
//		- second line
func FormatItem(item core.Item, loc *time.Location) string {
	ts := item.CreatedAt.In(loc).Format("15:04")
	body := strings.TrimRight(item.Content, "\n")
	body = strings.ReplaceAll(body, "\n", "\n\t- ")
	return fmt.Sprintf("- %s\n\t- %s", ts, body)
}

// TargetHeading resolves the section an item belongs to. The producer
// supplies it via Category, falling back to Context; items with neither go
// to Memo. Bare names are promoted to level-2 headings.
func TargetHeading(item core.Item) string {
	h := strings.TrimSpace(item.Category)
	if h == "" {
		h = strings.TrimSpace(item.Context)
	}
	if h == "" {
		return SectionMemo
	}
	if !strings.HasPrefix(h, "#") {
		h = "## " + h
	}
	return h
}

// Skeleton returns the minimal daily note for a day with no document yet.
func Skeleton(day core.DayKey) string {
	return "# " + day.String() + "\n"
}
