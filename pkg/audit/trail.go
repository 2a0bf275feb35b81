// Package audit provides the two audit surfaces used across the
// orchestrator: a per-request, strictly time-ordered Trail, and a bounded,
// filterable access Log used by patientsvc.
package audit

import (
	"time"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

// Trail accumulates a single request's audit entries. It is not safe for
// concurrent use — entries are appended single-threaded from the
// orchestrator task; only the gather subtasks run concurrently.
type Trail struct {
	agentID string
	clock   func() time.Time
	entries []domain.AuditEntry
}

// NewTrail creates a Trail that stamps entries with agentID and the given
// clock (defaulting to time.Now when nil, so tests can inject a fixed clock).
func NewTrail(agentID string, clock func() time.Time) *Trail {
	if clock == nil {
		clock = time.Now
	}
	return &Trail{agentID: agentID, clock: clock}
}

// Append adds a new entry to the trail.
func (t *Trail) Append(action, details string) {
	t.entries = append(t.entries, domain.AuditEntry{
		Timestamp: t.clock(),
		Action:    action,
		Details:   details,
		AgentID:   t.agentID,
	})
}

// Entries returns a copy of the accumulated entries in append order.
func (t *Trail) Entries() []domain.AuditEntry {
	out := make([]domain.AuditEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// CacheHitEntries returns the synthetic single-entry trail appended to any
// cache-served result, so a cache hit never bypasses the audit trail even
// when the rest of the original trail is reused verbatim.
func CacheHitEntries(agentID string, at time.Time) []domain.AuditEntry {
	return []domain.AuditEntry{{
		Timestamp: at,
		Action:    "cache_hit",
		Details:   "result served from decision cache",
		AgentID:   agentID,
	}}
}
