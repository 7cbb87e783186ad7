package domain

import (
	"context"
	"regexp"
	"strings"
	"time"
)

const (
	MaxAboutLength = 1000
	MaxGoals       = 10
	MinAge         = 10
	MaxAge         = 100
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,20}$`)

// NormalizeUsername lower-cases and trims a requested username and checks it
// against the allowed pattern.
func NormalizeUsername(raw string) (string, error) {
	u := strings.ToLower(strings.TrimSpace(raw))
	if !usernamePattern.MatchString(u) {
		return "", Invalid("username", "must be 3-20 characters of a-z, 0-9 or _")
	}
	return u, nil
}

// Profile is the per-user gamification and display record. TotalXP and
// CurrentLevel are caches of the ledger sum and are refreshed on every
// recompute.
type Profile struct {
	UserID          int64     `json:"userId"`
	Email           string    `json:"email"`
	Username        *string   `json:"username"`
	DisplayName     string    `json:"displayName"`
	Sport           string    `json:"sport"`
	Level           string    `json:"level"`
	Age             *int      `json:"age,omitempty"`
	Country         string    `json:"country"`
	Goals           []string  `json:"goals"`
	About           string    `json:"about"`
	TotalXP         int       `json:"totalXp"`
	CurrentLevel    int       `json:"currentLevel"`
	CurrentStreak   int       `json:"currentStreak"`
	LongestStreak   int       `json:"longestStreak"`
	LastCheckInDate string    `json:"lastCheckInDate,omitempty"`
	Badges          []string  `json:"badges"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// ProfileRepository persists profiles. GetProfile returns (nil, nil) when the
// user has none. UsernameTaken excludes exceptUserID from the check.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID int64) (*Profile, error)
	CreateProfile(ctx context.Context, p Profile) error
	UpdateProfile(ctx context.Context, p Profile) error
	UsernameTaken(ctx context.Context, username string, exceptUserID int64) (bool, error)
}
