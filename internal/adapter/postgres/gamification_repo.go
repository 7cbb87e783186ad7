package postgres

import (
	"context"
	"time"

	"mindtrack/internal/domain"
)

// AppendXP inserts a ledger entry unless one already exists for its
// (user, source, source_id). It reports whether a row was written.
func (d *DB) AppendXP(ctx context.Context, e domain.LedgerEntry) (bool, error) {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	res, err := d.sql.ExecContext(ctx,
		`INSERT INTO xp_ledger (user_id, amount, source, source_id, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, source, source_id) DO NOTHING`,
		e.UserID, e.Amount, string(e.Source), e.SourceID, e.Description, createdAt.UTC(),
	)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// SumXP returns the user's ledger total.
func (d *DB) SumXP(ctx context.Context, userID int64) (int, error) {
	var total int
	err := d.sql.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount), 0) FROM xp_ledger WHERE user_id = $1", userID,
	).Scan(&total)
	return total, err
}

// ListXP returns the user's ledger, oldest first.
func (d *DB) ListXP(ctx context.Context, userID int64) ([]domain.LedgerEntry, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT id, user_id, amount, source, source_id, description, created_at
		FROM xp_ledger WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Source, &e.SourceID, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkTaskDone records a task completion for day. It reports false when the
// task was already done that day.
func (d *DB) MarkTaskDone(ctx context.Context, userID int64, taskID, day string) (bool, error) {
	res, err := d.sql.ExecContext(ctx,
		`INSERT INTO task_completions (user_id, task_id, day, created_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, task_id, day) DO NOTHING`,
		userID, taskID, day, time.Now().UTC(),
	)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// TasksDone lists the task IDs completed on day.
func (d *DB) TasksDone(ctx context.Context, userID int64, day string) ([]string, error) {
	return d.strings(ctx,
		"SELECT task_id FROM task_completions WHERE user_id = $1 AND day = $2 ORDER BY task_id", userID, day)
}

// UnlockAchievement records an unlock, reporting false if it already existed.
func (d *DB) UnlockAchievement(ctx context.Context, userID int64, id string) (bool, error) {
	res, err := d.sql.ExecContext(ctx,
		`INSERT INTO achievement_unlocks (user_id, achievement_id, unlocked_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, achievement_id) DO NOTHING`,
		userID, id, time.Now().UTC(),
	)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// UnlockedAchievements lists the user's unlocked achievement IDs.
func (d *DB) UnlockedAchievements(ctx context.Context, userID int64) ([]string, error) {
	return d.strings(ctx,
		"SELECT achievement_id FROM achievement_unlocks WHERE user_id = $1 ORDER BY unlocked_at, achievement_id", userID)
}

func (d *DB) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

func affected(res rowsAffected) (bool, error) {
	n, err := res.RowsAffected()
	return n > 0, err
}
