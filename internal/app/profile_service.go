package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"mindtrack/internal/domain"
)

const maxGoalLength = 100

// ProfileService manages user profiles.
type ProfileService struct {
	repo   domain.ProfileRepository
	logger *zap.Logger
}

// NewProfileService creates a ProfileService.
func NewProfileService(repo domain.ProfileRepository, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{repo: repo, logger: logger}
}

// ProfileInput carries optional profile fields. Nil fields are left as they
// are; Goals replaces the list when non-nil.
type ProfileInput struct {
	Username    *string  `json:"username"`
	DisplayName *string  `json:"displayName"`
	Sport       *string  `json:"sport"`
	Level       *string  `json:"level"`
	Age         *int     `json:"age"`
	Country     *string  `json:"country"`
	Goals       []string `json:"goals"`
	About       *string  `json:"about"`
}

func (in ProfileInput) validate() error {
	if in.About != nil && utf8.RuneCountInString(*in.About) > domain.MaxAboutLength {
		return domain.Invalid("about", "must be at most %d characters", domain.MaxAboutLength)
	}
	if in.Age != nil && (*in.Age < domain.MinAge || *in.Age > domain.MaxAge) {
		return domain.Invalid("age", "must be between %d and %d", domain.MinAge, domain.MaxAge)
	}
	if len(in.Goals) > domain.MaxGoals {
		return domain.Invalid("goals", "at most %d goals", domain.MaxGoals)
	}
	for _, g := range in.Goals {
		if strings.TrimSpace(g) == "" || utf8.RuneCountInString(g) > maxGoalLength {
			return domain.Invalid("goals", "each goal must be 1-%d characters", maxGoalLength)
		}
	}
	return nil
}

func (in ProfileInput) apply(p *domain.Profile) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&p.DisplayName, in.DisplayName)
	set(&p.Sport, in.Sport)
	set(&p.Level, in.Level)
	set(&p.Country, in.Country)
	set(&p.About, in.About)
	if in.Age != nil {
		age := *in.Age
		p.Age = &age
	}
	if in.Goals != nil {
		p.Goals = make([]string, len(in.Goals))
		for i, g := range in.Goals {
			p.Goals[i] = strings.TrimSpace(g)
		}
	}
}

// EnsureProfile creates the user's profile on first call and updates display
// metadata afterwards. A username can be set once; changing it or taking
// someone else's is a conflict.
func (s *ProfileService) EnsureProfile(ctx context.Context, userID int64, email string, in ProfileInput) (*domain.Profile, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var username string
	if in.Username != nil {
		u, err := domain.NormalizeUsername(*in.Username)
		if err != nil {
			return nil, err
		}
		username = u
	}

	unlock := profileLocks.Lock(profileLockKey(userID))
	defer unlock()

	existing, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	p := existing
	if p == nil {
		p = &domain.Profile{UserID: userID, Email: email, CurrentLevel: 1, Goals: []string{}, Badges: []string{}}
	}

	if username != "" {
		switch {
		case p.Username != nil && *p.Username != username:
			return nil, domain.ConflictError("username cannot be changed once set")
		case p.Username == nil:
			taken, err := s.repo.UsernameTaken(ctx, username, userID)
			if err != nil {
				return nil, fmt.Errorf("check username: %w", err)
			}
			if taken {
				return nil, domain.ConflictError("username already taken")
			}
			p.Username = &username
		}
	}
	in.apply(p)

	if existing == nil {
		if err := s.repo.CreateProfile(ctx, *p); err != nil {
			return nil, err
		}
		s.logger.Info("profile created", zap.Int64("user_id", userID))
	} else if err := s.repo.UpdateProfile(ctx, *p); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}

// Get returns the user's profile with its level derived from TotalXP.
func (s *ProfileService) Get(ctx context.Context, userID int64) (*domain.Profile, error) {
	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	p.CurrentLevel = domain.LevelForXP(p.TotalXP)
	if p.Badges == nil {
		p.Badges = []string{}
	}
	if p.Goals == nil {
		p.Goals = []string{}
	}
	return p, nil
}

// UsernameAvailable reports whether raw is well formed and not held by
// another user.
func (s *ProfileService) UsernameAvailable(ctx context.Context, userID int64, raw string) (bool, error) {
	u, err := domain.NormalizeUsername(raw)
	if err != nil {
		return false, err
	}
	taken, err := s.repo.UsernameTaken(ctx, u, userID)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return !taken, nil
}

// updateProfile applies fn under the user's profile lock and saves when fn
// reports a change. Users without a profile are skipped.
func updateProfile(ctx context.Context, repo domain.ProfileRepository, userID int64, fn func(*domain.Profile) bool) error {
	unlock := profileLocks.Lock(profileLockKey(userID))
	defer unlock()

	p, err := repo.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if p == nil || !fn(p) {
		return nil
	}
	if err := repo.UpdateProfile(ctx, *p); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}
