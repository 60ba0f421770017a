// Package note implements the daily-note document model: the canonical
// section vocabulary, the pure section merge engine, and the rendering of
// content items into note fragments.
package note

import "strings"

// Known section headings of a daily note.
const (
	SectionDailySummary  = "## Daily Summary"
	SectionMemo          = "## Memo"
	SectionWebClips      = "## WebClips"
	SectionYouTube       = "## YouTube Summaries"
	SectionZeroThinking  = "## Zero-Second Thinking"
	SectionLocationLogs  = "## Location Logs"
	SectionHealthMetrics = "## Health Metrics"
)

// SectionOrder is the canonical, total ordering of known headings. Whenever
// a note contains two or more of them, they must appear in this relative
// order. Headings outside the list are exempt and end up at the bottom.
var SectionOrder = []string{
	SectionDailySummary,
	SectionMemo,
	SectionWebClips,
	SectionYouTube,
	SectionZeroThinking,
	SectionLocationLogs,
	SectionHealthMetrics,
}

// normalizeHeading prepares a heading for comparison. Only surrounding
// whitespace and letter case are ignored, never wording: callers must use
// the exact canonical strings.
func normalizeHeading(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// canonicalIndex returns the heading's position in SectionOrder, or -1.
func canonicalIndex(heading string) int {
	norm := normalizeHeading(heading)
	for i, s := range SectionOrder {
		if normalizeHeading(s) == norm {
			return i
		}
	}
	return -1
}

// IsCanonical reports whether the heading belongs to the canonical order.
// Unknown headings are still merged (appended at the end) but their position
// is not guaranteed; callers use this to warn about them.
func IsCanonical(heading string) bool {
	return canonicalIndex(heading) >= 0
}

// headingLevel returns the markdown heading level of a line ("## Memo" is
// 2), or 0 when the line is not a heading.
func headingLevel(line string) int {
	s := strings.TrimSpace(line)
	n := 0
	for n < len(s) && s[n] == '#' {
		n++
	}
	if n == 0 {
		return 0
	}
	if n < len(s) && s[n] != ' ' {
		return 0
	}
	return n
}
