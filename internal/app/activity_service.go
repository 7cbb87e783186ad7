package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"mindtrack/internal/domain"
	"mindtrack/internal/exercise"
)

// ActivityService records guided exercises and content views.
type ActivityService struct {
	repo   domain.ActivityRepository
	cache  domain.LocalCache
	game   *GamificationService
	logger *zap.Logger
	now    func() time.Time
}

// NewActivityService creates an ActivityService.
func NewActivityService(repo domain.ActivityRepository, cache domain.LocalCache, game *GamificationService, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{repo: repo, cache: cache, game: game, logger: logger, now: time.Now}
}

// ExerciseResult is returned by CompleteExercise.
type ExerciseResult struct {
	Log      domain.ExerciseLog   `json:"log"`
	Task     TaskResult           `json:"task"`
	Unlocked []domain.Achievement `json:"unlocked"`
}

// ViewResult is returned by RecordView.
type ViewResult struct {
	New      bool                 `json:"new"`
	Unlocked []domain.Achievement `json:"unlocked"`
}

// CompleteExercise logs a finished exercise, completes today's breathing task
// and evaluates achievements. seconds of 0 means the exercise's full length.
func (s *ActivityService) CompleteExercise(ctx context.Context, userID int64, exerciseID string, seconds int) (ExerciseResult, error) {
	ex, ok := exercise.Find(exerciseID)
	if !ok {
		return ExerciseResult{}, domain.Invalid("exerciseId", "unknown exercise %q", exerciseID)
	}
	if seconds == 0 {
		seconds = ex.Seconds
	}
	if seconds < 0 || seconds > ex.Seconds {
		return ExerciseResult{}, domain.Invalid("seconds", "must be between 1 and %d", ex.Seconds)
	}

	now := s.now()
	log, err := s.repo.AddExerciseLog(ctx, domain.ExerciseLog{
		UserID:      userID,
		ExerciseID:  ex.ID,
		Seconds:     seconds,
		CompletedAt: now.UTC(),
	})
	if err != nil {
		return ExerciseResult{}, fmt.Errorf("add exercise log: %w", err)
	}
	s.snapshotExercises(ctx, userID)

	task, err := s.game.CompleteDailyTask(ctx, userID, domain.TaskBreathing, domain.Today(now))
	if err != nil {
		return ExerciseResult{}, err
	}
	unlocked, err := s.game.EvaluateAchievements(ctx, userID)
	if err != nil {
		return ExerciseResult{}, err
	}

	s.logger.Info("exercise completed",
		zap.Int64("user_id", userID),
		zap.String("exercise", ex.ID),
		zap.Int("seconds", seconds),
	)
	return ExerciseResult{Log: *log, Task: task, Unlocked: unlocked}, nil
}

// Exercises returns the user's completed exercise log.
func (s *ActivityService) Exercises(ctx context.Context, userID int64) ([]domain.ExerciseLog, error) {
	var cached []domain.ExerciseLog
	found, err := getJSON(ctx, s.cache, exercisesKey(userID), &cached)
	if err != nil {
		s.logger.Warn("exercise snapshot read failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	if found {
		return cached, nil
	}
	return s.repo.ListExerciseLogs(ctx, userID)
}

// RecordView counts a distinct view of a resource or education module.
// Education views also complete today's learn task.
func (s *ActivityService) RecordView(ctx context.Context, userID int64, kind domain.ViewKind, resourceID string) (ViewResult, error) {
	if !kind.Valid() {
		return ViewResult{}, domain.Invalid("kind", "must be resource or education")
	}
	resourceID = strings.TrimSpace(resourceID)
	if resourceID == "" || len(resourceID) > 100 {
		return ViewResult{}, domain.Invalid("resourceId", "must be 1-100 characters")
	}

	isNew, err := s.repo.RecordView(ctx, userID, kind, resourceID)
	if err != nil {
		return ViewResult{}, fmt.Errorf("record view: %w", err)
	}
	if kind == domain.ViewEducation {
		if _, err := s.game.CompleteDailyTask(ctx, userID, domain.TaskLearn, domain.Today(s.now())); err != nil {
			return ViewResult{}, err
		}
	}
	unlocked, err := s.game.EvaluateAchievements(ctx, userID)
	if err != nil {
		return ViewResult{}, err
	}
	return ViewResult{New: isNew, Unlocked: unlocked}, nil
}

func (s *ActivityService) snapshotExercises(ctx context.Context, userID int64) {
	logs, err := s.repo.ListExerciseLogs(ctx, userID)
	if err == nil {
		err = putJSON(ctx, s.cache, exercisesKey(userID), logs)
	}
	if err != nil {
		s.logger.Warn("exercise snapshot write failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}
