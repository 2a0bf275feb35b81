package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/domain"
)

// SQLiteStore persists a Collection's documents to a single table,
// {id, document, metadata_json}, with the metadata's set-valued fields
// JSON-array-encoded. It is a write-behind mirror, not the collection's
// primary store: callers mutate the in-memory Collection and call Save to
// persist a snapshot, or Load to hydrate one at startup.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the sqlite database at path
// and ensures the documents table exists.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		document TEXT NOT NULL,
		metadata_json TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// persistedMetadata is DocumentMetadata with its StringSet fields encoded
// as plain JSON arrays, since StringSet's map representation does not
// round-trip through encoding/json in a stable order.
type persistedMetadata struct {
	DocumentType          string    `json:"document_type"`
	Identifier            string    `json:"identifier"`
	ReferencedInWorkflows []string  `json:"referenced_in_workflows"`
	UserGoalsContext      []string  `json:"user_goals_context"`
	DrugNamesContext      []string  `json:"drug_names_context"`
	DiseaseNamesContext   []string  `json:"disease_names_context"`
	FirstSeen             time.Time `json:"first_seen"`
	LastSeen              time.Time `json:"last_seen"`
}

func toPersisted(m domain.DocumentMetadata) persistedMetadata {
	return persistedMetadata{
		DocumentType:          m.DocumentType,
		Identifier:            m.Identifier,
		ReferencedInWorkflows: m.ReferencedInWorkflows.Slice(),
		UserGoalsContext:      m.UserGoalsContext.Slice(),
		DrugNamesContext:      m.DrugNamesContext.Slice(),
		DiseaseNamesContext:   m.DiseaseNamesContext.Slice(),
		FirstSeen:             m.FirstSeen,
		LastSeen:              m.LastSeen,
	}
}

func (p persistedMetadata) toDomain() domain.DocumentMetadata {
	return domain.DocumentMetadata{
		DocumentType:          p.DocumentType,
		Identifier:            p.Identifier,
		ReferencedInWorkflows: domain.NewStringSet(p.ReferencedInWorkflows...),
		UserGoalsContext:      domain.NewStringSet(p.UserGoalsContext...),
		DrugNamesContext:      domain.NewStringSet(p.DrugNamesContext...),
		DiseaseNamesContext:   domain.NewStringSet(p.DiseaseNamesContext...),
		FirstSeen:             p.FirstSeen,
		LastSeen:              p.LastSeen,
	}
}

// Save upserts every document currently in c into the sqlite table.
func (s *SQLiteStore) Save(ctx context.Context, c *Collection) error {
	docs := c.All()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO documents (id, document, metadata_json)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET document = excluded.document, metadata_json = excluded.metadata_json`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, d := range docs {
		metadataJSON, err := json.Marshal(toPersisted(d.Metadata))
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", d.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, d.ID, d.Body, string(metadataJSON)); err != nil {
			return fmt.Errorf("upsert document %s: %w", d.ID, err)
		}
	}
	return tx.Commit()
}

// Load hydrates a fresh Collection from the sqlite table. The returned
// Collection has no embedder configured; callers that need similarity
// search with real vectors should attach one afterward.
func (s *SQLiteStore) Load(ctx context.Context) (*Collection, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, document, metadata_json FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	c := NewCollection(nil)
	for rows.Next() {
		var id, body, metadataJSON string
		if err := rows.Scan(&id, &body, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		var pm persistedMetadata
		if err := json.Unmarshal([]byte(metadataJSON), &pm); err != nil {
			return nil, fmt.Errorf("unmarshal metadata for %s: %w", id, err)
		}
		doc := domain.Document{ID: id, Body: body, Metadata: pm.toDomain()}
		c.docs[id] = &storedDocument{doc: doc}
		c.order = append(c.order, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document rows: %w", err)
	}
	return c, nil
}
