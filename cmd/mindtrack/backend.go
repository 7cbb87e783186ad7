package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mindtrack/internal/adapter/localcache"
	"mindtrack/internal/adapter/memory"
	"mindtrack/internal/adapter/postgres"
	"mindtrack/internal/adapter/rediscache"
	"mindtrack/internal/app"
	"mindtrack/internal/config"
	"mindtrack/internal/domain"
)

// repositories is the set of ports one storage backend provides.
type repositories interface {
	domain.UserRepository
	domain.SessionRepository
	domain.ProfileRepository
	domain.XPLedger
	domain.DailyTaskRepository
	domain.AchievementRepository
	domain.ActivityRepository
}

// stack is the wired application: one backend chosen at startup and every
// service built on it.
type stack struct {
	auth     *app.AuthService
	checkins *app.CheckInService
	stats    *app.StatsService
	game     *app.GamificationService
	profiles *app.ProfileService
	activity *app.ActivityService

	closers []func() error
}

// openStack selects postgres when DATABASE_URL is set and in-memory
// repositories otherwise. The SQLite local cache is used in both modes; redis
// is optional and only caches statistics.
func openStack(ctx context.Context, cfg config.Config, logger *zap.Logger) (*stack, error) {
	st := &stack{}

	var (
		repos  repositories
		remote domain.CheckInRepository
	)
	if cfg.RemoteBacked() {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		st.closers = append(st.closers, db.Close)
		repos, remote = db, db
		logger.Info("storage backend selected", zap.String("mode", "remote"))
	} else {
		repos = memory.New()
		logger.Info("storage backend selected", zap.String("mode", "local"))
	}

	cache, err := localcache.Open(cfg.LocalCachePath)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("open local cache: %w", err)
	}
	st.closers = append(st.closers, cache.Close)

	var summaries app.SummaryCache
	if cfg.RedisAddr != "" {
		rc, err := rediscache.New(ctx, rediscache.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if err != nil {
			logger.Warn("redis unavailable, statistics will not be cached", zap.Error(err))
		} else {
			st.closers = append(st.closers, rc.Close)
			summaries = rc
		}
	}

	st.game = app.NewGamificationService(repos, repos, repos, repos, repos, cache, logger)
	st.checkins = app.NewCheckInService(cache, remote, repos, st.game, summaries, logger)
	st.stats = app.NewStatsService(st.checkins, summaries, cfg.StatsTimeout, logger)
	st.profiles = app.NewProfileService(repos, logger)
	st.activity = app.NewActivityService(repos, cache, st.game, logger)
	st.auth = app.NewAuthService(repos, repos, repos, logger)
	return st, nil
}

// Close releases backends in reverse order of opening.
func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}
