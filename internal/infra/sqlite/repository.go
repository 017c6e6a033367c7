// Package sqlite provides SQLite database operations.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/emanuelef/yt-mp3-api-go/internal/domain"
)

// Repository stores the request history.
type Repository struct {
	db *sql.DB
}

// NewRepository opens (or creates) the history database in dataDir.
func NewRepository(dataDir string, logger *slog.Logger) (*Repository, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "requests.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := configureDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	if logger != nil {
		logger.Info("Database initialized", "path", dbPath)
	}

	return &Repository{db: db}, nil
}

func configureDB(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return nil
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS requests (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			title TEXT,
			state TEXT NOT NULL,
			error_kind TEXT,
			error TEXT,
			resolved_tier INTEGER DEFAULT 0,
			degraded INTEGER DEFAULT 0,
			created_at DATETIME NOT NULL,
			completed_at DATETIME
		);

		CREATE INDEX IF NOT EXISTS idx_requests_state ON requests(state);
		CREATE INDEX IF NOT EXISTS idx_requests_created ON requests(created_at);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Create inserts a new request record.
func (r *Repository) Create(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO requests (id, url, title, state, error_kind, error, resolved_tier, degraded, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		job.ID,
		job.URL,
		job.Title,
		string(job.State),
		job.ErrorKind,
		job.Error,
		job.ResolvedTier,
		job.Degraded,
		job.CreatedAt,
		job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create request record: %w", err)
	}

	return nil
}

// Update stores the current state of a request record.
func (r *Repository) Update(ctx context.Context, job *domain.Job) error {
	query := `
		UPDATE requests
		SET title = ?, state = ?, error_kind = ?, error = ?, resolved_tier = ?, degraded = ?, completed_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		job.Title,
		string(job.State),
		job.ErrorKind,
		job.Error,
		job.ResolvedTier,
		job.Degraded,
		job.CompletedAt,
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update request record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("request record not found: %s", job.ID)
	}

	return nil
}

// GetByID retrieves a request record. It returns nil when none exists.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	query := `
		SELECT id, url, title, state, error_kind, error, resolved_tier, degraded, created_at, completed_at
		FROM requests
		WHERE id = ?
	`

	job := &domain.Job{}
	var title, errorKind, errorMsg sql.NullString
	var state string
	var completedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID,
		&job.URL,
		&title,
		&state,
		&errorKind,
		&errorMsg,
		&job.ResolvedTier,
		&job.Degraded,
		&job.CreatedAt,
		&completedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get request record: %w", err)
	}

	job.Title = title.String
	job.State = domain.JobState(state)
	job.ErrorKind = errorKind.String
	job.Error = errorMsg.String
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}

	return job, nil
}

// CountByState returns the number of records per state.
func (r *Repository) CountByState(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT state, COUNT(*) FROM requests GROUP BY state")
	if err != nil {
		return nil, fmt.Errorf("failed to count request records: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[state] = n
	}

	return counts, rows.Err()
}

// DeleteOlderThan deletes records created before now minus age.
func (r *Repository) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	threshold := time.Now().UTC().Add(-age)

	result, err := r.db.ExecContext(ctx, "DELETE FROM requests WHERE created_at < ?", threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old request records: %w", err)
	}

	return result.RowsAffected()
}
