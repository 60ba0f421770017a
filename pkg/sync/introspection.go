package sync

import (
	"time"

	"github.com/aretw0/introspection"
)

// SyncerState exposes internal state for observability.
type SyncerState struct {
	Running        bool      `json:"running"`
	Cycles         uint64    `json:"cycles"`
	Failures       uint64    `json:"failures"`
	PendingPublish bool      `json:"pending_publish"`
	LastRun        time.Time `json:"last_run"`
}

// State implements introspection.Introspectable.
func (s *Syncer) State() any {
	s.mu.Lock()
	lastRun := s.lastRun
	s.mu.Unlock()

	return SyncerState{
		Running:        s.running.Load(),
		Cycles:         s.cycles.Load(),
		Failures:       s.failures.Load(),
		PendingPublish: s.pendingPublish.Load(),
		LastRun:        lastRun,
	}
}

// ComponentType implements introspection.Component.
func (s *Syncer) ComponentType() string {
	return "syncer"
}

var _ introspection.Introspectable = (*Syncer)(nil)
var _ introspection.Component = (*Syncer)(nil)
