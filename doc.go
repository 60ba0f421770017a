// Package kiroku turns a stream of small content items (memos, clips,
// logs, summaries) into markdown daily notes inside a git-backed vault.
//
// Producers call Enqueue and never touch documents directly. A periodic
// worker drains the durable queue, buckets items by calendar day, merges
// each bucket into that day's note under its canonical section, and
// commits and pushes the result.
//
//	svc, err := kiroku.New("/data/vault",
//	    kiroku.WithRemote("git@example.com:notes.git"),
//	    kiroku.WithLogger(slog.Default()),
//	)
package kiroku

// Version exposes the version of the library.
var Version = "0.3.1"
