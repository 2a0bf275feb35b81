package patientsvc

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

// PostgresPersister implements Persister by upserting each record's full
// JSON snapshot into a patient_records table, keyed by patient_id.
// Production deployments point it at DATABASE_URL; Store itself stays the
// in-process source of truth, so a Postgres outage degrades to a stale
// snapshot rather than taking the service down.
type PostgresPersister struct {
	db *sql.DB
}

// NewPostgresPersister wraps an already-opened *sql.DB. Callers open it with
// sql.Open("postgres", dsn), which registers through the blank lib/pq import.
func NewPostgresPersister(db *sql.DB) *PostgresPersister {
	return &PostgresPersister{db: db}
}

// EnsureSchema creates the patient_records table if it does not already
// exist. Safe to call on every startup.
func (p *PostgresPersister) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS patient_records (
			patient_id   TEXT PRIMARY KEY,
			record       JSONB NOT NULL,
			last_updated TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := p.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("patientsvc: create patient_records table: %w", err)
	}
	return nil
}

// Save upserts every record's JSON snapshot, one statement per record.
func (p *PostgresPersister) Save(ctx context.Context, records []*domain.PatientRecord) error {
	const query = `
		INSERT INTO patient_records (patient_id, record, last_updated)
		VALUES ($1, $2, $3)
		ON CONFLICT (patient_id) DO UPDATE SET
			record = EXCLUDED.record,
			last_updated = EXCLUDED.last_updated
	`
	for _, r := range records {
		blob, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("patientsvc: marshal record %q: %w", r.PatientID, err)
		}
		if _, err := p.db.ExecContext(ctx, query, r.PatientID, blob, r.LastUpdated); err != nil {
			return fmt.Errorf("patientsvc: persist record %q: %w", r.PatientID, err)
		}
	}
	return nil
}

// LoadAll reads every persisted record back, for warming Store on startup.
func (p *PostgresPersister) LoadAll(ctx context.Context) ([]*domain.PatientRecord, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT record FROM patient_records`)
	if err != nil {
		return nil, fmt.Errorf("patientsvc: load patient_records: %w", err)
	}
	defer rows.Close()

	var out []*domain.PatientRecord
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("patientsvc: scan patient_records row: %w", err)
		}
		var rec domain.PatientRecord
		if err := json.Unmarshal(blob, &rec); err != nil {
			return nil, fmt.Errorf("patientsvc: decode patient_records row: %w", err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
