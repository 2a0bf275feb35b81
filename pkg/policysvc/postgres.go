package policysvc

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

// DecisionSnapshot is one recorded coverage-decision outcome, kept for
// compliance review independent of the in-memory catalog's current state.
type DecisionSnapshot struct {
	Insurer    string
	DrugName   string
	Decision   domain.CoverageDecision
	RecordedAt time.Time
}

// SnapshotRecorder durably records coverage decisions. A nil recorder makes
// Service's decisions snapshot-free (in-memory catalog only).
type SnapshotRecorder interface {
	Record(ctx context.Context, snap DecisionSnapshot) error
}

// PostgresSnapshotStore implements SnapshotRecorder by appending each
// decision to a coverage_decisions table, keyed by insurer/drug/time so the
// same drug re-evaluated later keeps its history rather than overwriting it.
type PostgresSnapshotStore struct {
	db *sql.DB
}

// NewPostgresSnapshotStore wraps an already-opened *sql.DB, registered
// through the blank lib/pq import.
func NewPostgresSnapshotStore(db *sql.DB) *PostgresSnapshotStore {
	return &PostgresSnapshotStore{db: db}
}

// EnsureSchema creates the coverage_decisions table if it does not already
// exist. Safe to call on every startup.
func (p *PostgresSnapshotStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS coverage_decisions (
			id          BIGSERIAL PRIMARY KEY,
			insurer     TEXT NOT NULL,
			drug_name   TEXT NOT NULL,
			decision    JSONB NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := p.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("policysvc: create coverage_decisions table: %w", err)
	}
	return nil
}

// Record appends snap as a new row.
func (p *PostgresSnapshotStore) Record(ctx context.Context, snap DecisionSnapshot) error {
	blob, err := json.Marshal(snap.Decision)
	if err != nil {
		return fmt.Errorf("policysvc: marshal decision snapshot: %w", err)
	}
	const query = `
		INSERT INTO coverage_decisions (insurer, drug_name, decision, recorded_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := p.db.ExecContext(ctx, query, snap.Insurer, snap.DrugName, blob, snap.RecordedAt); err != nil {
		return fmt.Errorf("policysvc: persist decision snapshot: %w", err)
	}
	return nil
}
