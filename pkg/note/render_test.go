package note

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fyshx/kiroku/pkg/core"
)

var jst = time.FixedZone("JST", 9*60*60)

func TestFormatItem(t *testing.T) {
	item := core.Item{
		Content:   "remember the milk",
		CreatedAt: time.Date(2024, 1, 1, 2, 30, 0, 0, time.UTC),
	}

	got := FormatItem(item, jst)

	assert.Equal(t, "- 11:30\n\t- remember the milk", got)
}

func TestFormatItem_MultilineContent(t *testing.T) {
	item := core.Item{
		Content:   "first line\nsecond line\n",
		CreatedAt: time.Date(2024, 1, 1, 9, 5, 0, 0, jst),
	}

	got := FormatItem(item, jst)

	assert.Equal(t, "- 09:05\n\t- first line\n\t- second line", got)
}

func TestTargetHeading(t *testing.T) {
	tests := []struct {
		name string
		item core.Item
		want string
	}{
		{"category heading kept", core.Item{Category: "## WebClips"}, "## WebClips"},
		{"bare category promoted", core.Item{Category: "WebClips"}, "## WebClips"},
		{"context fallback", core.Item{Context: "Location Logs"}, "## Location Logs"},
		{"category wins over context", core.Item{Category: "## Memo", Context: "## WebClips"}, "## Memo"},
		{"default is memo", core.Item{}, SectionMemo},
		{"whitespace only is memo", core.Item{Category: "  "}, SectionMemo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TargetHeading(tt.item))
		})
	}
}

func TestSkeleton(t *testing.T) {
	day, err := core.ParseDayKey("2024-01-01")
	assert.NoError(t, err)
	assert.Equal(t, "# 2024-01-01\n", Skeleton(day))
}
