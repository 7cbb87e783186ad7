package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"mindtrack/internal/domain"
)

// GetProfile returns the user's profile, or nil if there is none.
func (d *DB) GetProfile(ctx context.Context, userID int64) (*domain.Profile, error) {
	var (
		p        domain.Profile
		username sql.NullString
		age      sql.NullInt32
	)
	err := d.sql.QueryRowContext(ctx,
		`SELECT id, email, username, display_name, sport, level, age, country, goals, about,
			total_xp, current_level, current_streak, longest_streak, last_check_in_date, badges, updated_at
		FROM profiles WHERE id = $1`, userID,
	).Scan(&p.UserID, &p.Email, &username, &p.DisplayName, &p.Sport, &p.Level, &age, &p.Country,
		pq.Array(&p.Goals), &p.About, &p.TotalXP, &p.CurrentLevel, &p.CurrentStreak, &p.LongestStreak,
		&p.LastCheckInDate, pq.Array(&p.Badges), &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if username.Valid {
		p.Username = &username.String
	}
	if age.Valid {
		a := int(age.Int32)
		p.Age = &a
	}
	return &p, nil
}

func profileArgs(p domain.Profile) []any {
	var username sql.NullString
	if p.Username != nil {
		username = sql.NullString{String: *p.Username, Valid: true}
	}
	var age sql.NullInt32
	if p.Age != nil {
		age = sql.NullInt32{Int32: int32(*p.Age), Valid: true}
	}
	goals, badges := p.Goals, p.Badges
	if goals == nil {
		goals = []string{}
	}
	if badges == nil {
		badges = []string{}
	}
	return []any{
		p.UserID, p.Email, username, p.DisplayName, p.Sport, p.Level, age, p.Country,
		pq.Array(goals), p.About, p.TotalXP, p.CurrentLevel, p.CurrentStreak, p.LongestStreak,
		p.LastCheckInDate, pq.Array(badges), time.Now().UTC(),
	}
}

// CreateProfile inserts a profile. A taken username is a conflict.
func (d *DB) CreateProfile(ctx context.Context, p domain.Profile) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO profiles (id, email, username, display_name, sport, level, age, country, goals, about,
			total_xp, current_level, current_streak, longest_streak, last_check_in_date, badges, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		profileArgs(p)...)
	return conflictOr(err, "username or profile already exists")
}

// UpdateProfile overwrites an existing profile.
func (d *DB) UpdateProfile(ctx context.Context, p domain.Profile) error {
	res, err := d.sql.ExecContext(ctx,
		`UPDATE profiles SET email=$2, username=$3, display_name=$4, sport=$5, level=$6, age=$7, country=$8,
			goals=$9, about=$10, total_xp=$11, current_level=$12, current_streak=$13, longest_streak=$14,
			last_check_in_date=$15, badges=$16, updated_at=$17
		WHERE id=$1`,
		profileArgs(p)...)
	if err != nil {
		return conflictOr(err, "username already taken")
	}
	if ok, err := affected(res); err != nil {
		return err
	} else if !ok {
		return domain.ErrNotFound
	}
	return nil
}

// UsernameTaken reports whether another user holds username.
func (d *DB) UsernameTaken(ctx context.Context, username string, exceptUserID int64) (bool, error) {
	var taken bool
	err := d.sql.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM profiles WHERE lower(username) = lower($1) AND id <> $2)",
		username, exceptUserID,
	).Scan(&taken)
	return taken, err
}
