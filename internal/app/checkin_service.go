package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mindtrack/internal/domain"
	"mindtrack/internal/metrics"
)

// SummaryCache stores rendered statistics. Implementations swallow their own
// failures and report misses instead.
type SummaryCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, b []byte, ttl time.Duration)
	InvalidatePrefix(ctx context.Context, prefix string)
}

// CheckInService writes check-ins to the local cache, mirrors them to the
// remote store when one is configured, and drives the streak and XP side
// effects of a submission.
type CheckInService struct {
	cache     domain.LocalCache
	remote    domain.CheckInRepository
	profiles  domain.ProfileRepository
	game      *GamificationService
	summaries SummaryCache
	logger    *zap.Logger
	now       func() time.Time
	locks     *keyedMutex
}

// NewCheckInService creates a CheckInService. remote and summaries may be nil.
func NewCheckInService(
	cache domain.LocalCache,
	remote domain.CheckInRepository,
	profiles domain.ProfileRepository,
	game *GamificationService,
	summaries SummaryCache,
	logger *zap.Logger,
) *CheckInService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckInService{
		cache:     cache,
		remote:    remote,
		profiles:  profiles,
		game:      game,
		summaries: summaries,
		logger:    logger,
		now:       time.Now,
		locks:     newKeyedMutex(),
	}
}

// CheckInInput is a submission after request defaults have been applied.
// Empty Date means today and empty TrainingLoad means none.
type CheckInInput struct {
	Date string
	domain.Ratings
	SleepHours     *float64
	Note           string
	TrainingLoad   domain.TrainingLoad
	PreCompetition bool
}

// SubmitResult is returned by Submit.
type SubmitResult struct {
	CheckIn   domain.CheckIn       `json:"checkIn"`
	State     domain.DayState      `json:"state"`
	Streak    domain.Streak        `json:"streak"`
	XPAwarded int                  `json:"xpAwarded"`
	Progress  domain.Progress      `json:"progress"`
	Unlocked  []domain.Achievement `json:"unlocked"`
}

// DayView is one day's check-in state.
type DayView struct {
	Date    string          `json:"date"`
	State   domain.DayState `json:"state"`
	CheckIn *domain.CheckIn `json:"checkIn"`
}

func stateOf(c *domain.CheckIn) domain.DayState {
	switch {
	case c == nil:
		return domain.StateNotStarted
	case c.Revision > 1:
		return domain.StateEdited
	default:
		return domain.StateSubmitted
	}
}

// Submit validates and stores a check-in. A second submission for the same
// date overwrites the first and moves the day to the edited state. Remote
// mirror failures are logged and do not fail the call.
func (s *CheckInService) Submit(ctx context.Context, userID int64, in CheckInInput) (SubmitResult, error) {
	now := s.now()
	today := domain.Today(now)
	if in.Date == "" {
		in.Date = today
	}
	if in.TrainingLoad == "" {
		in.TrainingLoad = domain.TrainingNone
	}
	c := domain.CheckIn{
		UserID:         userID,
		Date:           in.Date,
		Ratings:        in.Ratings,
		SleepHours:     in.SleepHours,
		Note:           in.Note,
		TrainingLoad:   in.TrainingLoad,
		PreCompetition: in.PreCompetition,
	}
	if err := c.Validate(today); err != nil {
		return SubmitResult{}, err
	}

	unlock := s.locks.Lock(checkInKey(userID, c.Date))
	defer unlock()

	existing, err := s.Get(ctx, userID, c.Date)
	if err != nil {
		return SubmitResult{}, err
	}
	c.Revision = 1
	c.CreatedAt = now.UTC()
	if existing.CheckIn != nil {
		c.Revision = existing.CheckIn.Revision + 1
		c.CreatedAt = existing.CheckIn.CreatedAt
	}
	c.UpdatedAt = now.UTC()
	state := stateOf(&c)

	if err := putJSON(ctx, s.cache, checkInKey(userID, c.Date), c); err != nil {
		return SubmitResult{}, fmt.Errorf("save check-in: %w", err)
	}
	metrics.CheckIns.WithLabelValues(string(state)).Inc()
	s.mirror(ctx, c)

	res := SubmitResult{CheckIn: c, State: state}

	res.Streak, err = s.refreshStreak(ctx, userID, today)
	if err != nil {
		s.logger.Error("streak refresh failed", zap.Int64("user_id", userID), zap.Error(err))
	}

	task, err := s.game.CompleteDailyTask(ctx, userID, domain.TaskDailyCheckIn, c.Date)
	if err != nil {
		s.logger.Error("daily check-in task failed", zap.Int64("user_id", userID), zap.Error(err))
	} else {
		res.Progress = task.Progress
		if task.Awarded {
			res.XPAwarded += task.Task.XP
		}
	}

	if c.Note != "" {
		journal, err := s.game.CompleteDailyTask(ctx, userID, domain.TaskJournal, c.Date)
		if err != nil {
			s.logger.Error("journal task failed", zap.Int64("user_id", userID), zap.Error(err))
		} else if journal.Awarded {
			res.XPAwarded += journal.Task.XP
		}
	}

	res.Unlocked, err = s.game.EvaluateAchievements(ctx, userID)
	if err != nil {
		s.logger.Error("achievement evaluation failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	for _, a := range res.Unlocked {
		res.XPAwarded += a.XPReward
	}
	if len(res.Unlocked) > 0 || c.Note != "" {
		if p, err := s.game.Progress(ctx, userID); err == nil {
			res.Progress = p
		}
	}

	if s.summaries != nil {
		s.summaries.InvalidatePrefix(ctx, statsPrefix(userID))
	}

	s.logger.Info("check-in saved",
		zap.Int64("user_id", userID),
		zap.String("date", c.Date),
		zap.String("state", string(state)),
		zap.Int("revision", c.Revision),
	)
	return res, nil
}

// mirror replaces the remote row for (user, date). Errors are absorbed.
func (s *CheckInService) mirror(ctx context.Context, c domain.CheckIn) {
	if s.remote == nil {
		return
	}
	if err := s.remote.ReplaceCheckIn(ctx, c); err != nil {
		metrics.MirrorFailures.Inc()
		s.logger.Warn("remote check-in mirror failed",
			zap.Int64("user_id", c.UserID),
			zap.String("date", c.Date),
			zap.Error(err),
		)
	}
}

// refreshStreak derives the streak from every cached check-in date and stores
// it on the profile and in the local streak snapshot.
func (s *CheckInService) refreshStreak(ctx context.Context, userID int64, today string) (domain.Streak, error) {
	from, to := checkInRange(userID, "0000-01-01", "9999-12-31")
	blobs, err := s.cache.Scan(ctx, from, to)
	if err != nil {
		return domain.Streak{}, err
	}
	dates := make([]string, 0, len(blobs))
	for _, b := range blobs {
		var c domain.CheckIn
		if err := json.Unmarshal(b, &c); err != nil {
			continue
		}
		dates = append(dates, c.Date)
	}
	st := domain.ComputeStreak(dates, today)

	if err := putJSON(ctx, s.cache, streakKey(userID), st); err != nil {
		return st, err
	}
	err = updateProfile(ctx, s.profiles, userID, func(p *domain.Profile) bool {
		p.CurrentStreak = st.Current
		if st.Longest > p.LongestStreak {
			p.LongestStreak = st.Longest
		}
		p.LastCheckInDate = st.LastDate
		return true
	})
	return st, err
}

// Get returns the check-in for day. The local cache is read first; on a miss
// the remote store is consulted and the cache warmed.
func (s *CheckInService) Get(ctx context.Context, userID int64, day string) (DayView, error) {
	if _, err := domain.ParseDay(day); err != nil {
		return DayView{}, domain.Invalid("date", "must be YYYY-MM-DD")
	}
	var c domain.CheckIn
	found, err := getJSON(ctx, s.cache, checkInKey(userID, day), &c)
	if err != nil {
		return DayView{}, fmt.Errorf("read check-in: %w", err)
	}
	if found {
		return DayView{Date: day, State: stateOf(&c), CheckIn: &c}, nil
	}

	if s.remote != nil {
		rc, err := s.remote.GetCheckIn(ctx, userID, day)
		if err != nil {
			s.logger.Warn("remote check-in read failed", zap.Int64("user_id", userID), zap.String("date", day), zap.Error(err))
		} else if rc != nil {
			s.warm(ctx, *rc)
			return DayView{Date: day, State: stateOf(rc), CheckIn: rc}, nil
		}
	}
	return DayView{Date: day, State: domain.StateNotStarted}, nil
}

// Today returns today's check-in state.
func (s *CheckInService) Today(ctx context.Context, userID int64) (DayView, error) {
	return s.Get(ctx, userID, domain.Today(s.now()))
}

// ListRange returns check-ins with from <= date <= to, oldest first.
func (s *CheckInService) ListRange(ctx context.Context, userID int64, from, to string) ([]domain.CheckIn, error) {
	if _, err := domain.ParseDay(from); err != nil {
		return nil, domain.Invalid("from", "must be YYYY-MM-DD")
	}
	if _, err := domain.ParseDay(to); err != nil {
		return nil, domain.Invalid("to", "must be YYYY-MM-DD")
	}
	if from > to {
		return nil, domain.Invalid("from", "must not be after to")
	}

	lo, hi := checkInRange(userID, from, to)
	blobs, err := s.cache.Scan(ctx, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("scan check-ins: %w", err)
	}
	out := make([]domain.CheckIn, 0, len(blobs))
	for _, b := range blobs {
		var c domain.CheckIn
		if err := json.Unmarshal(b, &c); err != nil {
			s.logger.Warn("skipping undecodable cached check-in", zap.Int64("user_id", userID), zap.Error(err))
			continue
		}
		out = append(out, c)
	}
	if len(out) > 0 || s.remote == nil {
		return out, nil
	}

	remote, err := s.remote.ListCheckIns(ctx, userID, from, to)
	if err != nil {
		s.logger.Warn("remote check-in list failed", zap.Int64("user_id", userID), zap.Error(err))
		return out, nil
	}
	for _, c := range remote {
		s.warm(ctx, c)
	}
	return remote, nil
}

// Recent returns the check-ins of the last days days including today.
func (s *CheckInService) Recent(ctx context.Context, userID int64, days int) ([]domain.CheckIn, error) {
	today := domain.Today(s.now())
	return s.ListRange(ctx, userID, domain.AddDays(today, -(days-1)), today)
}

// CurrentStreak recomputes the streak from cached check-ins.
func (s *CheckInService) CurrentStreak(ctx context.Context, userID int64) (domain.Streak, error) {
	return s.refreshStreak(ctx, userID, domain.Today(s.now()))
}

func (s *CheckInService) warm(ctx context.Context, c domain.CheckIn) {
	if err := putJSON(ctx, s.cache, checkInKey(c.UserID, c.Date), c); err != nil {
		s.logger.Warn("check-in cache warm failed",
			zap.Int64("user_id", c.UserID),
			zap.String("date", c.Date),
			zap.Error(err),
		)
	}
}
