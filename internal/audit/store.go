// Package audit persists cleaning operations to a SQLite tracking table.
package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/KaramelBytes/tabstat-cli/internal/cleaning"
	"github.com/KaramelBytes/tabstat-cli/internal/table"
)

// Entry is one stored operation.
type Entry struct {
	ID            int64     `json:"id"`
	RunID         string    `json:"run_id"`
	Dataset       string    `json:"dataset"`
	Column        string    `json:"column"`
	Row           int       `json:"row"`
	Group         string    `json:"group,omitempty"`
	OriginalValue *string   `json:"original_value"`
	NewValue      *string   `json:"new_value"`
	Operation     string    `json:"operation"`
	Reason        string    `json:"reason"`
	CleanedAt     time.Time `json:"cleaned_at"`
}

// Store writes to the cleaning_operations table.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS cleaning_operations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	dataset TEXT NOT NULL,
	column_name TEXT NOT NULL,
	row_index INTEGER NOT NULL,
	group_label TEXT NOT NULL DEFAULT '',
	original_value TEXT,
	new_value TEXT,
	operation TEXT NOT NULL,
	reason TEXT NOT NULL,
	cleaned_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cleaning_operations_run ON cleaning_operations(run_id);
`

// Open opens (creating if needed) the database at path and ensures the tracking table exists.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("audit database path cannot be empty")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	// SQLite serializes writers; one connection also keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure audit database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tracking table: %w", err)
	}
	logger.Debug("Ensured cleaning_operations table exists", zap.String("path", path))
	return &Store{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts every operation of one run in a single transaction.
func (s *Store) Record(ctx context.Context, runID, dataset string, ops []cleaning.Operation) (err error) {
	if len(ops) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("Failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cleaning_operations
		(run_id, dataset, column_name, row_index, group_label, original_value, new_value,
		 operation, reason, cleaned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, op := range ops {
		at := op.At
		if at.IsZero() {
			at = time.Now().UTC()
		}
		if _, err = stmt.ExecContext(ctx,
			runID, dataset, op.Column, op.Row, op.Group,
			nullable(op.Original), nullable(op.New),
			op.Kind, op.Reason, at.Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("insert operation for row %d: %w", op.Row, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	s.logger.Info("Recorded cleaning operations",
		zap.String("run_id", runID),
		zap.String("dataset", dataset),
		zap.Int("count", len(ops)))
	return nil
}

// List returns the operations of one run in insertion order. An empty runID lists every run.
func (s *Store) List(ctx context.Context, runID string) ([]Entry, error) {
	q := `SELECT id, run_id, dataset, column_name, row_index, group_label, original_value,
		new_value, operation, reason, cleaned_at FROM cleaning_operations`
	var args []any
	if runID != "" {
		q += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	q += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query operations: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var orig, next sql.NullString
		var at string
		if err := rows.Scan(&e.ID, &e.RunID, &e.Dataset, &e.Column, &e.Row, &e.Group,
			&orig, &next, &e.Operation, &e.Reason, &at); err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		if orig.Valid {
			e.OriginalValue = &orig.String
		}
		if next.Valid {
			e.NewValue = &next.String
		}
		if e.CleanedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parse cleaned_at %q: %w", at, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullable(n table.Number) sql.NullString {
	if !n.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: strconv.FormatFloat(n.Float, 'f', -1, 64), Valid: true}
}
