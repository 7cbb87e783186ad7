package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"mindtrack/internal/domain"
)

const checkInColumns = `user_id, date, mood_rating, stress_management, energy_level, motivation, confidence,
	focus, recovery, sleep_quality, sleep_hours, notes, training_load, pre_competition,
	revision, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheckIn(r rowScanner) (domain.CheckIn, error) {
	var c domain.CheckIn
	var sleep sql.NullFloat64
	err := r.Scan(&c.UserID, &c.Date, &c.Mood, &c.StressManagement, &c.Energy, &c.Motivation,
		&c.Confidence, &c.Focus, &c.Recovery, &c.SleepQuality, &sleep, &c.Note, &c.TrainingLoad,
		&c.PreCompetition, &c.Revision, &c.CreatedAt, &c.UpdatedAt)
	if sleep.Valid {
		v := sleep.Float64
		c.SleepHours = &v
	}
	return c, err
}

// ReplaceCheckIn stores c as the user's only record for c.Date. The delete and
// insert run in one transaction.
func (d *DB) ReplaceCheckIn(ctx context.Context, c domain.CheckIn) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM checkins WHERE user_id = $1 AND date = $2", c.UserID, c.Date); err != nil {
		return fmt.Errorf("delete check-in: %w", err)
	}
	var sleep sql.NullFloat64
	if c.SleepHours != nil {
		sleep = sql.NullFloat64{Float64: *c.SleepHours, Valid: true}
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO checkins ("+checkInColumns+") VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)",
		c.UserID, c.Date, c.Mood, c.StressManagement, c.Energy, c.Motivation, c.Confidence,
		c.Focus, c.Recovery, c.SleepQuality, sleep, c.Note, string(c.TrainingLoad), c.PreCompetition,
		c.Revision, c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
	)
	if err != nil {
		return conflictOr(fmt.Errorf("insert check-in: %w", err), "concurrent check-in for the same day")
	}
	return tx.Commit()
}

// GetCheckIn returns the user's check-in for date, or nil if there is none.
func (d *DB) GetCheckIn(ctx context.Context, userID int64, date string) (*domain.CheckIn, error) {
	c, err := scanCheckIn(d.sql.QueryRowContext(ctx,
		"SELECT "+checkInColumns+" FROM checkins WHERE user_id = $1 AND date = $2", userID, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCheckIns returns check-ins dated within [from, to], oldest first.
func (d *DB) ListCheckIns(ctx context.Context, userID int64, from, to string) ([]domain.CheckIn, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT "+checkInColumns+" FROM checkins WHERE user_id = $1 AND date >= $2 AND date <= $3 ORDER BY date",
		userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.CheckIn
	for rows.Next() {
		c, err := scanCheckIn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
