// Package sync drives one synchronization cycle at a time: drain the queue,
// bucket items by calendar day, merge each bucket into its daily note, and
// publish the result to the remote.
package sync

import (
	"sort"
	"time"

	"github.com/fyshx/kiroku/pkg/core"
)

// Aggregate groups items by the calendar day of their creation time in loc
// (not the UTC date). Within each bucket items are sorted by ascending
// CreatedAt, so section appends reflect real chronological order even when
// items arrive out of order.
func Aggregate(items []core.Item, loc *time.Location) map[core.DayKey][]core.Item {
	buckets := make(map[core.DayKey][]core.Item)
	for _, item := range items {
		day := core.DayKeyFor(item.CreatedAt, loc)
		buckets[day] = append(buckets[day], item)
	}

	for _, bucket := range buckets {
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].CreatedAt.Before(bucket[j].CreatedAt)
		})
	}

	return buckets
}

// sortedDays returns the bucket keys in ascending order for deterministic
// merge and commit messages.
func sortedDays(buckets map[core.DayKey][]core.Item) []core.DayKey {
	days := make([]core.DayKey, 0, len(buckets))
	for day := range buckets {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}
