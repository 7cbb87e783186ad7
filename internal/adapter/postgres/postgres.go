// Package postgres implements the domain repositories using PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"mindtrack/internal/domain"
)

// DB wraps a *sql.DB and implements the domain repository interfaces.
type DB struct {
	sql *sql.DB
}

// Open connects to PostgreSQL, pings, and runs migrations.
func Open(ctx context.Context, connStr string) (*DB, error) {
	s, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	s.SetMaxOpenConns(10)
	s.SetMaxIdleConns(5)
	s.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	d := &DB{sql: s}
	if err := d.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

// Ping reports whether the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return d.sql.PingContext(ctx)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email TEXT NOT NULL,
		password_hash TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	);`,
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(lower(email));",
	`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		user_agent TEXT NOT NULL DEFAULT '',
		ip TEXT NOT NULL DEFAULT '',
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);`,
	"CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);",
	`CREATE TABLE IF NOT EXISTS profiles (
		id BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		email TEXT NOT NULL DEFAULT '',
		username TEXT,
		display_name TEXT NOT NULL DEFAULT '',
		sport TEXT NOT NULL DEFAULT '',
		level TEXT NOT NULL DEFAULT '',
		age INT,
		country TEXT NOT NULL DEFAULT '',
		goals TEXT[] NOT NULL DEFAULT '{}',
		about TEXT NOT NULL DEFAULT '',
		total_xp INT NOT NULL DEFAULT 0,
		current_level INT NOT NULL DEFAULT 1,
		current_streak INT NOT NULL DEFAULT 0,
		longest_streak INT NOT NULL DEFAULT 0,
		last_check_in_date TEXT NOT NULL DEFAULT '',
		badges TEXT[] NOT NULL DEFAULT '{}',
		updated_at TIMESTAMPTZ NOT NULL
	);`,
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_profiles_username ON profiles(lower(username)) WHERE username IS NOT NULL;",
	`CREATE TABLE IF NOT EXISTS checkins (
		user_id BIGINT NOT NULL,
		date TEXT NOT NULL,
		mood_rating SMALLINT NOT NULL,
		stress_management SMALLINT NOT NULL,
		energy_level SMALLINT NOT NULL,
		motivation SMALLINT NOT NULL,
		confidence SMALLINT NOT NULL,
		focus SMALLINT NOT NULL,
		recovery SMALLINT NOT NULL,
		sleep_quality SMALLINT NOT NULL,
		sleep_hours DOUBLE PRECISION,
		notes TEXT NOT NULL DEFAULT '',
		training_load TEXT NOT NULL CHECK(training_load IN ('none','light','moderate','hard')),
		pre_competition BOOLEAN NOT NULL DEFAULT FALSE,
		revision INT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, date)
	);`,
	`CREATE TABLE IF NOT EXISTS xp_ledger (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		amount INT NOT NULL CHECK(amount > 0),
		source TEXT NOT NULL,
		source_id TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, source, source_id)
	);`,
	`CREATE TABLE IF NOT EXISTS task_completions (
		user_id BIGINT NOT NULL,
		task_id TEXT NOT NULL,
		day TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, task_id, day)
	);`,
	`CREATE TABLE IF NOT EXISTS achievement_unlocks (
		user_id BIGINT NOT NULL,
		achievement_id TEXT NOT NULL,
		unlocked_at TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, achievement_id)
	);`,
	`CREATE TABLE IF NOT EXISTS exercise_logs (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		exercise_id TEXT NOT NULL,
		seconds INT NOT NULL,
		completed_at TIMESTAMPTZ NOT NULL
	);`,
	"CREATE INDEX IF NOT EXISTS idx_exercise_logs_user_id ON exercise_logs(user_id);",
	`CREATE TABLE IF NOT EXISTS views (
		user_id BIGINT NOT NULL,
		kind TEXT NOT NULL,
		resource_id TEXT NOT NULL,
		viewed_at TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, kind, resource_id)
	);`,
}

func (d *DB) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func conflictOr(err error, reason string) error {
	if isUniqueViolation(err) {
		return domain.ConflictError(reason)
	}
	return err
}
