package postgres

import (
	"context"
	"time"

	"mindtrack/internal/domain"
)

// AddExerciseLog inserts a completed exercise and returns it with its ID.
func (d *DB) AddExerciseLog(ctx context.Context, l domain.ExerciseLog) (*domain.ExerciseLog, error) {
	if l.CompletedAt.IsZero() {
		l.CompletedAt = time.Now()
	}
	l.CompletedAt = l.CompletedAt.UTC()
	err := d.sql.QueryRowContext(ctx,
		"INSERT INTO exercise_logs (user_id, exercise_id, seconds, completed_at) VALUES ($1, $2, $3, $4) RETURNING id",
		l.UserID, l.ExerciseID, l.Seconds, l.CompletedAt,
	).Scan(&l.ID)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ListExerciseLogs returns the user's exercise log, oldest first.
func (d *DB) ListExerciseLogs(ctx context.Context, userID int64) ([]domain.ExerciseLog, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT id, user_id, exercise_id, seconds, completed_at FROM exercise_logs WHERE user_id = $1 ORDER BY completed_at, id",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	out := []domain.ExerciseLog{}
	for rows.Next() {
		var l domain.ExerciseLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.ExerciseID, &l.Seconds, &l.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// RecordView stores a distinct view. It reports false for a repeat.
func (d *DB) RecordView(ctx context.Context, userID int64, kind domain.ViewKind, resourceID string) (bool, error) {
	res, err := d.sql.ExecContext(ctx,
		`INSERT INTO views (user_id, kind, resource_id, viewed_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, kind, resource_id) DO NOTHING`,
		userID, string(kind), resourceID, time.Now().UTC(),
	)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// CountViews returns the number of distinct views of kind.
func (d *DB) CountViews(ctx context.Context, userID int64, kind domain.ViewKind) (int, error) {
	var n int
	err := d.sql.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM views WHERE user_id = $1 AND kind = $2", userID, string(kind),
	).Scan(&n)
	return n, err
}
