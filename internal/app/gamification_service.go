package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mindtrack/internal/domain"
	"mindtrack/internal/metrics"
)

// GamificationService owns the XP ledger, daily tasks and achievements.
// The ledger sum is the only source of truth for XP; the profile's TotalXP
// and CurrentLevel and the local XP snapshot are refreshed from it.
type GamificationService struct {
	ledger       domain.XPLedger
	tasks        domain.DailyTaskRepository
	achievements domain.AchievementRepository
	activity     domain.ActivityRepository
	profiles     domain.ProfileRepository
	cache        domain.LocalCache
	logger       *zap.Logger
	now          func() time.Time
}

// NewGamificationService creates a GamificationService.
func NewGamificationService(
	ledger domain.XPLedger,
	tasks domain.DailyTaskRepository,
	achievements domain.AchievementRepository,
	activity domain.ActivityRepository,
	profiles domain.ProfileRepository,
	cache domain.LocalCache,
	logger *zap.Logger,
) *GamificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GamificationService{
		ledger:       ledger,
		tasks:        tasks,
		achievements: achievements,
		activity:     activity,
		profiles:     profiles,
		cache:        cache,
		logger:       logger,
		now:          time.Now,
	}
}

// TaskResult reports the outcome of a daily task completion.
type TaskResult struct {
	Task     domain.DailyTask `json:"task"`
	Day      string           `json:"day"`
	Awarded  bool             `json:"awarded"`
	Progress domain.Progress  `json:"progress"`
}

// TaskStatus is a catalog task with its completion flag for one day.
type TaskStatus struct {
	domain.DailyTask
	Done bool `json:"done"`
}

// AchievementStatus is a catalog achievement with the user's position on it.
type AchievementStatus struct {
	domain.Achievement
	Current  int  `json:"current"`
	Unlocked bool `json:"unlocked"`
}

// UnlockResult reports the outcome of an explicit unlock.
type UnlockResult struct {
	Achievement domain.Achievement `json:"achievement"`
	Unlocked    bool               `json:"unlocked"`
	Progress    domain.Progress    `json:"progress"`
}

// AwardXP appends a ledger entry. It reports false when an entry with the
// same (user, source, source id) already exists. Callers recompute XP.
func (s *GamificationService) AwardXP(ctx context.Context, e domain.LedgerEntry) (bool, error) {
	if e.UserID <= 0 {
		return false, domain.Invalid("userId", "is required")
	}
	if e.Amount <= 0 {
		return false, domain.Invalid("amount", "must be positive")
	}
	if e.SourceID == "" {
		return false, domain.Invalid("sourceId", "is required")
	}
	if e.Source != domain.SourceDailyTask && e.Source != domain.SourceAchievement {
		return false, domain.Invalid("source", "must be daily_task or achievement")
	}
	added, err := s.ledger.AppendXP(ctx, e)
	if err != nil {
		return false, fmt.Errorf("append xp: %w", err)
	}
	if added {
		metrics.XPAwarded.WithLabelValues(string(e.Source)).Add(float64(e.Amount))
	}
	return added, nil
}

// RecomputeXP sums the ledger and refreshes the profile and local snapshot.
func (s *GamificationService) RecomputeXP(ctx context.Context, userID int64) (domain.Progress, error) {
	total, err := s.ledger.SumXP(ctx, userID)
	if err != nil {
		return domain.Progress{}, fmt.Errorf("sum xp: %w", err)
	}
	p := domain.ProgressFor(total)

	err = updateProfile(ctx, s.profiles, userID, func(pr *domain.Profile) bool {
		if pr.TotalXP == p.XP && pr.CurrentLevel == p.Level {
			return false
		}
		pr.TotalXP, pr.CurrentLevel = p.XP, p.Level
		return true
	})
	if err != nil {
		return p, fmt.Errorf("update profile xp: %w", err)
	}

	if err := putJSON(ctx, s.cache, xpKey(userID), p); err != nil {
		s.logger.Warn("xp snapshot write failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	return p, nil
}

// Progress returns the user's XP position, recomputed from the ledger.
func (s *GamificationService) Progress(ctx context.Context, userID int64) (domain.Progress, error) {
	return s.RecomputeXP(ctx, userID)
}

// History returns the user's ledger entries.
func (s *GamificationService) History(ctx context.Context, userID int64) ([]domain.LedgerEntry, error) {
	return s.ledger.ListXP(ctx, userID)
}

// CompleteDailyTask records taskID as done on day (today when empty) and
// awards its XP at most once per day.
func (s *GamificationService) CompleteDailyTask(ctx context.Context, userID int64, taskID, day string) (TaskResult, error) {
	task, ok := domain.FindDailyTask(taskID)
	if !ok {
		return TaskResult{}, domain.Invalid("taskId", "unknown task %q", taskID)
	}
	if day == "" {
		day = domain.Today(s.now())
	}
	if _, err := domain.ParseDay(day); err != nil {
		return TaskResult{}, domain.Invalid("day", "must be YYYY-MM-DD")
	}

	newlyDone, err := s.tasks.MarkTaskDone(ctx, userID, task.ID, day)
	if err != nil {
		return TaskResult{}, fmt.Errorf("mark task done: %w", err)
	}

	// The ledger append runs even when the task row already existed so a
	// previous attempt that failed between the two writes is completed.
	awarded, err := s.AwardXP(ctx, domain.LedgerEntry{
		UserID:      userID,
		Amount:      task.XP,
		Source:      domain.SourceDailyTask,
		SourceID:    task.ID + ":" + day,
		Description: task.Label,
	})
	if err != nil {
		return TaskResult{}, err
	}

	progress, err := s.RecomputeXP(ctx, userID)
	if err != nil {
		return TaskResult{}, err
	}

	if newlyDone || awarded {
		s.logger.Info("daily task completed",
			zap.Int64("user_id", userID),
			zap.String("task", task.ID),
			zap.String("day", day),
			zap.Bool("awarded", awarded),
		)
	}
	return TaskResult{Task: task, Day: day, Awarded: awarded, Progress: progress}, nil
}

// ListDailyTasks returns the task catalog with done flags for day.
func (s *GamificationService) ListDailyTasks(ctx context.Context, userID int64, day string) ([]TaskStatus, error) {
	if day == "" {
		day = domain.Today(s.now())
	}
	done, err := s.tasks.TasksDone(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(done))
	for _, id := range done {
		set[id] = true
	}
	out := make([]TaskStatus, len(domain.DailyTasks))
	for i, t := range domain.DailyTasks {
		out[i] = TaskStatus{DailyTask: t, Done: set[t.ID]}
	}
	return out, nil
}

// Counters gathers the activity totals achievements are measured against.
func (s *GamificationService) Counters(ctx context.Context, userID int64) (domain.Counters, error) {
	var c domain.Counters

	logs, err := s.activity.ListExerciseLogs(ctx, userID)
	if err != nil {
		return c, fmt.Errorf("list exercises: %w", err)
	}
	c.Exercises = len(logs)

	if c.ResourceViews, err = s.activity.CountViews(ctx, userID, domain.ViewResource); err != nil {
		return c, fmt.Errorf("count resource views: %w", err)
	}
	if c.EducationViews, err = s.activity.CountViews(ctx, userID, domain.ViewEducation); err != nil {
		return c, fmt.Errorf("count education views: %w", err)
	}

	today := domain.Today(s.now())
	var st domain.Streak
	found, err := getJSON(ctx, s.cache, streakKey(userID), &st)
	if err != nil {
		s.logger.Warn("streak snapshot read failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	if found {
		c.Streak = st.AsOf(today).Current
		return c, nil
	}
	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return c, fmt.Errorf("get profile: %w", err)
	}
	if p != nil {
		st = domain.Streak{Current: p.CurrentStreak, LastDate: p.LastCheckInDate}
		c.Streak = st.AsOf(today).Current
	}
	return c, nil
}

// ListAchievements returns the catalog with the user's counters and unlocks.
func (s *GamificationService) ListAchievements(ctx context.Context, userID int64) ([]AchievementStatus, error) {
	counters, err := s.Counters(ctx, userID)
	if err != nil {
		return nil, err
	}
	unlocked, err := s.unlockedSet(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]AchievementStatus, len(domain.Achievements))
	for i, a := range domain.Achievements {
		out[i] = AchievementStatus{Achievement: a, Current: counters.For(a.Group), Unlocked: unlocked[a.ID]}
	}
	return out, nil
}

// EvaluateAchievements unlocks every achievement whose counter has reached
// its target and returns the ones unlocked by this call. Running it again
// without new activity unlocks and awards nothing.
func (s *GamificationService) EvaluateAchievements(ctx context.Context, userID int64) ([]domain.Achievement, error) {
	counters, err := s.Counters(ctx, userID)
	if err != nil {
		return nil, err
	}

	var fresh []domain.Achievement
	changed := false
	for _, a := range domain.Achievements {
		if counters.For(a.Group) < a.Target {
			continue
		}
		// Already unlocked ids still go through unlock so a reward whose
		// ledger append failed earlier is paid now.
		isNew, awarded, err := s.unlock(ctx, userID, a)
		if err != nil {
			return fresh, err
		}
		if isNew {
			fresh = append(fresh, a)
		}
		changed = changed || isNew || awarded
	}
	if !changed {
		return nil, nil
	}

	if _, err := s.RecomputeXP(ctx, userID); err != nil {
		return fresh, err
	}
	if err := s.refreshUnlocks(ctx, userID); err != nil {
		return fresh, err
	}
	return fresh, nil
}

// UnlockAchievement unlocks id for the user once its counter has reached the
// target. Repeating the call is harmless.
func (s *GamificationService) UnlockAchievement(ctx context.Context, userID int64, id string) (UnlockResult, error) {
	a, ok := domain.FindAchievement(id)
	if !ok {
		return UnlockResult{}, domain.Invalid("achievementId", "unknown achievement %q", id)
	}
	counters, err := s.Counters(ctx, userID)
	if err != nil {
		return UnlockResult{}, err
	}
	if counters.For(a.Group) < a.Target {
		return UnlockResult{}, domain.Invalid("achievementId", "%s requires %d, have %d", a.ID, a.Target, counters.For(a.Group))
	}

	isNew, _, err := s.unlock(ctx, userID, a)
	if err != nil {
		return UnlockResult{}, err
	}
	progress, err := s.RecomputeXP(ctx, userID)
	if err != nil {
		return UnlockResult{}, err
	}
	if err := s.refreshUnlocks(ctx, userID); err != nil {
		return UnlockResult{}, err
	}
	return UnlockResult{Achievement: a, Unlocked: isNew, Progress: progress}, nil
}

// unlock writes the ledger entry and then the unlock row. Both writes are
// idempotent, and the ledger goes first so an unlock is never recorded
// without its reward.
func (s *GamificationService) unlock(ctx context.Context, userID int64, a domain.Achievement) (isNew, awarded bool, err error) {
	awarded, err = s.AwardXP(ctx, domain.LedgerEntry{
		UserID:      userID,
		Amount:      a.XPReward,
		Source:      domain.SourceAchievement,
		SourceID:    a.ID,
		Description: a.Label,
	})
	if err != nil {
		return false, false, err
	}
	isNew, err = s.achievements.UnlockAchievement(ctx, userID, a.ID)
	if err != nil {
		return false, awarded, fmt.Errorf("unlock %s: %w", a.ID, err)
	}
	if isNew {
		metrics.AchievementsUnlocked.Inc()
		s.logger.Info("achievement unlocked", zap.Int64("user_id", userID), zap.String("achievement", a.ID))
	}
	return isNew, awarded, nil
}

func (s *GamificationService) unlockedSet(ctx context.Context, userID int64) (map[string]bool, error) {
	ids, err := s.achievements.UnlockedAchievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list unlocks: %w", err)
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// refreshUnlocks copies the unlock set to the local cache and profile badges.
func (s *GamificationService) refreshUnlocks(ctx context.Context, userID int64) error {
	ids, err := s.achievements.UnlockedAchievements(ctx, userID)
	if err != nil {
		return fmt.Errorf("list unlocks: %w", err)
	}
	if err := putJSON(ctx, s.cache, achievementsKey(userID), ids); err != nil {
		s.logger.Warn("unlock snapshot write failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	return updateProfile(ctx, s.profiles, userID, func(p *domain.Profile) bool {
		p.Badges = ids
		return true
	})
}
