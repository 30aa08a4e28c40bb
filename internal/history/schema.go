package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// schemaStatements are executed one at a time; the MySQL driver rejects
// multi-statement Exec calls by default.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		start_stage INTEGER NOT NULL,
		stop_stage INTEGER NOT NULL,
		status VARCHAR(16) NOT NULL,
		started_at VARCHAR(40) NOT NULL,
		finished_at VARCHAR(40),
		error_message TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS stage_runs (
		run_id VARCHAR(36) NOT NULL,
		stage_number INTEGER NOT NULL,
		stage_name VARCHAR(64) NOT NULL,
		status VARCHAR(16) NOT NULL,
		started_at VARCHAR(40) NOT NULL,
		finished_at VARCHAR(40),
		error_message TEXT,
		PRIMARY KEY (run_id, stage_number)
	)`,
	`CREATE INDEX idx_runs_started_at ON runs (started_at)`,
}

func (s *Store) initSchema(ctx context.Context) error {
	if err := s.exec(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	var version int
	err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return s.createSchema(ctx)
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case version != schemaVersion:
		return fmt.Errorf("%w: database has version %d, expected %d (delete the history database)",
			ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	// DDL is not transactional on MySQL, so an interrupted first Open can
	// leave objects behind without a version row. Re-creating them is a no-op.
	for _, stmt := range schemaStatements {
		if err := s.exec(ctx, stmt); err != nil && !isAlreadyExists(err) {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	if err := s.exec(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return nil
}

// isAlreadyExists reports a duplicate table or index error (MySQL 1050/1061,
// SQLite "already exists").
func isAlreadyExists(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1050 || myErr.Number == 1061
	}
	return strings.Contains(err.Error(), "already exists")
}
