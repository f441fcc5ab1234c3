// Package sqlite provides a SQLite-backed record store.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/manas360/stepwise/pkg/domain"
	"github.com/manas360/stepwise/pkg/ports"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

//go:embed schema.sql
var schemaSQL string

// Store persists finalized records in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite record store and ensures the schema exists.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schemaSQL); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Append inserts one record.
func (s *Store) Append(ctx context.Context, record *domain.FinalizedRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(record.Data)
	if err != nil {
		return fmt.Errorf("marshal record data: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO session_records (
		   id,
		   template_id,
		   patient_identifier,
		   recorded_at,
		   timestamp,
		   status,
		   data
		 ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.TemplateID,
		record.PatientIdentifier,
		record.Timestamp.UTC().UnixMilli(),
		record.Timestamp.Format(time.RFC3339Nano),
		string(record.Status),
		string(data),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateRecord, record.ID)
		}
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Get returns one record by ID.
func (s *Store) Get(ctx context.Context, id string) (*domain.FinalizedRecord, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, template_id, patient_identifier, timestamp, status, data
		   FROM session_records
		  WHERE id = ?`, id)

	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRecordNotFound, id)
		}
		return nil, fmt.Errorf("get record %s: %w", id, err)
	}
	return record, nil
}

// List returns matching records ordered newest first.
func (s *Store) List(ctx context.Context, filter ports.RecordFilter) ([]*domain.FinalizedRecord, error) {
	query := `SELECT id, template_id, patient_identifier, timestamp, status, data
	            FROM session_records`
	var (
		clauses []string
		args    []any
	)
	if filter.PatientIdentifier != "" {
		clauses = append(clauses, "patient_identifier = ?")
		args = append(args, filter.PatientIdentifier)
	}
	if filter.TemplateID != "" {
		clauses = append(clauses, "template_id = ?")
		args = append(args, filter.TemplateID)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY recorded_at DESC, rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.FinalizedRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// Delete removes one record.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM session_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrRecordNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.FinalizedRecord, error) {
	var (
		record    domain.FinalizedRecord
		timestamp string
		status    string
		data      string
	)
	if err := row.Scan(&record.ID, &record.TemplateID, &record.PatientIdentifier, &timestamp, &status, &data); err != nil {
		return nil, err
	}

	ts, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp of %s: %w", record.ID, err)
	}
	record.Timestamp = ts
	record.Status = domain.RecordStatus(status)

	record.Data = domain.NewValues()
	if err := json.Unmarshal([]byte(data), record.Data); err != nil {
		return nil, fmt.Errorf("decode data of %s: %w", record.ID, err)
	}
	return &record, nil
}

func isConstraintViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
