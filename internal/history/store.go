package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"kiritan/internal/config"
)

// Status is the lifecycle state of a run or stage execution.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one runner invocation.
type Run struct {
	ID         string
	Start      int
	Stop       int
	Status     Status
	StartedAt  time.Time
	FinishedAt time.Time
	Error      string
}

// Duration returns the wall time of a finished run, or zero while running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// StageRecord is one stage execution within a run.
type StageRecord struct {
	RunID      string
	Number     int
	Name       string
	Status     Status
	StartedAt  time.Time
	FinishedAt time.Time
	Error      string
}

// ErrRunNotFound is returned when no run matches an id or id prefix.
var ErrRunNotFound = errors.New("run not found")

// Store persists run history in SQLite or MySQL.
type Store struct {
	db     *sql.DB
	driver string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open connects to the configured history database and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("history: config is required")
	}
	driver := cfg.History.Driver
	dsn := cfg.History.DSN

	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case "sqlite", "":
		driver = "sqlite"
		db, err = openSQLite(dsn)
	case "mysql":
		db, err = openMySQL(dsn)
	default:
		return nil, fmt.Errorf("history: unsupported driver %q", driver)
	}
	if err != nil {
		return nil, err
	}

	store := &Store{db: db, driver: driver}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func openSQLite(path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history: sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	return db, nil
}

func openMySQL(dsn string) (*sql.DB, error) {
	mcfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	if mcfg.Params == nil {
		mcfg.Params = map[string]string{}
	}
	if _, ok := mcfg.Params["charset"]; !ok {
		mcfg.Params["charset"] = "utf8mb4"
	}
	connector, err := mysql.NewConnector(mcfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect mysql %s@%s: %w", mcfg.User, mcfg.Addr, err)
	}
	return db, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Driver reports the backend in use.
func (s *Store) Driver() string {
	return s.driver
}

// BeginRun records a new running invocation over [start, stop].
func (s *Store) BeginRun(ctx context.Context, runID string, start, stop int) error {
	return s.exec(ctx,
		`INSERT INTO runs (id, start_stage, stop_stage, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		runID, start, stop, string(StatusRunning), formatTime(time.Now()),
	)
}

// FinishRun marks the run succeeded, or failed with runErr's message.
func (s *Store) FinishRun(ctx context.Context, runID string, runErr error) error {
	status, message := outcome(runErr)
	return s.exec(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, error_message = ? WHERE id = ?`,
		status, formatTime(time.Now()), message, runID,
	)
}

// StageStarted records the start of stage number within runID.
func (s *Store) StageStarted(ctx context.Context, runID string, number int, name string) error {
	return s.exec(ctx,
		`INSERT INTO stage_runs (run_id, stage_number, stage_name, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		runID, number, name, string(StatusRunning), formatTime(time.Now()),
	)
}

// StageFinished records the outcome of stage number within runID.
func (s *Store) StageFinished(ctx context.Context, runID string, number int, stageErr error) error {
	status, message := outcome(stageErr)
	return s.exec(ctx,
		`UPDATE stage_runs SET status = ?, finished_at = ?, error_message = ? WHERE run_id = ? AND stage_number = ?`,
		status, formatTime(time.Now()), message, runID, number,
	)
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, start_stage, stop_stage, status, started_at, finished_at, error_message
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run      Run
			status   string
			started  string
			finished sql.NullString
			message  sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.Start, &run.Stop, &status, &started, &finished, &message); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Status = Status(status)
		run.StartedAt = parseTime(started)
		run.FinishedAt = parseTime(finished.String)
		run.Error = message.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ResolveRunID expands an id prefix (as printed in log headers) to a full
// run id. An ambiguous or unknown prefix is ErrRunNotFound.
func (s *Store) ResolveRunID(ctx context.Context, prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" || strings.ContainsAny(prefix, "%_") {
		return "", fmt.Errorf("%w: %q", ErrRunNotFound, prefix)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs WHERE id LIKE ? LIMIT 2`, prefix+"%")
	if err != nil {
		return "", fmt.Errorf("query run id: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %q", ErrRunNotFound, prefix)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: prefix %q is ambiguous", ErrRunNotFound, prefix)
	}
}

// RunStages returns the stage records of runID in stage order.
func (s *Store) RunStages(ctx context.Context, runID string) ([]StageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, stage_number, stage_name, status, started_at, finished_at, error_message
		 FROM stage_runs WHERE run_id = ? ORDER BY stage_number`, runID)
	if err != nil {
		return nil, fmt.Errorf("query stages: %w", err)
	}
	defer rows.Close()

	var records []StageRecord
	for rows.Next() {
		var (
			rec      StageRecord
			status   string
			started  string
			finished sql.NullString
			message  sql.NullString
		)
		if err := rows.Scan(&rec.RunID, &rec.Number, &rec.Name, &status, &started, &finished, &message); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		rec.Status = Status(status)
		rec.StartedAt = parseTime(started)
		rec.FinishedAt = parseTime(finished.String)
		rec.Error = message.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// isBusy reports lock contention for either backend: SQLITE_BUSY, or MySQL
// lock wait timeout (1205) and deadlock (1213).
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1205 || myErr.Number == 1213
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func outcome(err error) (string, any) {
	if err == nil {
		return string(StatusSucceeded), nil
	}
	return string(StatusFailed), err.Error()
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
