// Package store persists action audit records.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"quorum/internal/domain"
)

// SQLiteAuditStore implements domain.AuditStore using SQLite.
type SQLiteAuditStore struct {
	db *sql.DB
}

// NewSQLiteAuditStore opens (or creates) a SQLite database at dbPath and
// runs the schema migration.
func NewSQLiteAuditStore(dbPath string) (*SQLiteAuditStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}
	return &SQLiteAuditStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_records (
			action_id   TEXT PRIMARY KEY,
			agent_id    TEXT NOT NULL,
			kind        TEXT NOT NULL,
			outcome     TEXT NOT NULL,
			detail      TEXT NOT NULL DEFAULT '',
			params      TEXT NOT NULL DEFAULT '{}',
			started_at  TEXT NOT NULL,
			finished_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_audit_agent ON audit_records (agent_id, started_at);
	`)
	return err
}

// Record implements domain.AuditStore.
func (s *SQLiteAuditStore) Record(ctx context.Context, rec domain.AuditRecord) error {
	params, err := json.Marshal(rec.Params)
	if err != nil {
		return domain.NewDomainError("AuditStore.record", domain.ErrAuditWrite, err.Error())
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_records
			(action_id, agent_id, kind, outcome, detail, params, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ActionID, rec.AgentID, string(rec.Kind), rec.Outcome, rec.Detail, string(params),
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return domain.NewDomainError("AuditStore.record", domain.ErrAuditWrite, err.Error())
	}
	return nil
}

// ByAgent returns an agent's audit records, oldest first.
func (s *SQLiteAuditStore) ByAgent(ctx context.Context, agentID string) ([]domain.AuditRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT action_id, agent_id, kind, outcome, detail, params, started_at, finished_at
		 FROM audit_records WHERE agent_id = ? ORDER BY started_at`, agentID)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var recs []domain.AuditRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Get returns the audit record for one action.
func (s *SQLiteAuditStore) Get(ctx context.Context, actionID string) (domain.AuditRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT action_id, agent_id, kind, outcome, detail, params, started_at, finished_at
		 FROM audit_records WHERE action_id = ?`, actionID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AuditRecord{}, domain.NewDomainError("AuditStore.get", domain.ErrNotFound, actionID)
	}
	return rec, err
}

// Close closes the underlying database connection.
func (s *SQLiteAuditStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (domain.AuditRecord, error) {
	var rec domain.AuditRecord
	var kind, params, started, finished string
	if err := row.Scan(&rec.ActionID, &rec.AgentID, &kind, &rec.Outcome, &rec.Detail,
		&params, &started, &finished); err != nil {
		return rec, err
	}
	rec.Kind = domain.ActionKind(kind)
	if err := json.Unmarshal([]byte(params), &rec.Params); err != nil {
		return rec, fmt.Errorf("unmarshal audit params: %w", err)
	}
	var err error
	if rec.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return rec, fmt.Errorf("parse started_at: %w", err)
	}
	if rec.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return rec, fmt.Errorf("parse finished_at: %w", err)
	}
	return rec, nil
}

var _ domain.AuditStore = (*SQLiteAuditStore)(nil)
