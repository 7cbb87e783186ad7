package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"mindtrack/internal/adapter/memory"
	"mindtrack/internal/domain"
)

const fixtureToday = "2026-03-10"

func fixedNow() time.Time {
	return time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)
}

type fixture struct {
	db       *memory.DB
	cache    *memory.Cache
	game     *GamificationService
	checkins *CheckInService
	activity *ActivityService
	profiles *ProfileService
	stats    *StatsService
	summary  *fakeSummaryCache
}

func newFixture(t *testing.T, remote domain.CheckInRepository) *fixture {
	t.Helper()
	db := memory.New()
	cache := memory.NewCache()
	summary := &fakeSummaryCache{data: map[string][]byte{}}

	game := NewGamificationService(db, db, db, db, db, cache, nil)
	game.now = fixedNow
	checkins := NewCheckInService(cache, remote, db, game, summary, nil)
	checkins.now = fixedNow
	activity := NewActivityService(db, cache, game, nil)
	activity.now = fixedNow
	stats := NewStatsService(checkins, summary, time.Second, nil)
	stats.now = fixedNow

	if err := db.CreateProfile(context.Background(), domain.Profile{UserID: 1, Email: "a@example.com", CurrentLevel: 1}); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}

	return &fixture{
		db:       db,
		cache:    cache,
		game:     game,
		checkins: checkins,
		activity: activity,
		profiles: NewProfileService(db, nil),
		stats:    stats,
		summary:  summary,
	}
}

func ratings(v int) domain.Ratings {
	return domain.Ratings{
		Mood: v, StressManagement: v, Energy: v, Motivation: v,
		Confidence: v, Focus: v, Recovery: v, SleepQuality: v,
	}
}

type fakeSummaryCache struct {
	mu          sync.Mutex
	data        map[string][]byte
	invalidated []string
}

func (c *fakeSummaryCache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	return b, ok
}

func (c *fakeSummaryCache) Set(ctx context.Context, key string, b []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = b
}

func (c *fakeSummaryCache) InvalidatePrefix(ctx context.Context, prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, prefix)
	for k := range c.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.data, k)
		}
	}
}

type mockCheckInRepo struct {
	replaceFn func(ctx context.Context, c domain.CheckIn) error
	getFn     func(ctx context.Context, userID int64, date string) (*domain.CheckIn, error)
	listFn    func(ctx context.Context, userID int64, from, to string) ([]domain.CheckIn, error)
}

func (m *mockCheckInRepo) ReplaceCheckIn(ctx context.Context, c domain.CheckIn) error {
	if m.replaceFn != nil {
		return m.replaceFn(ctx, c)
	}
	return nil
}

func (m *mockCheckInRepo) GetCheckIn(ctx context.Context, userID int64, date string) (*domain.CheckIn, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID, date)
	}
	return nil, nil
}

func (m *mockCheckInRepo) ListCheckIns(ctx context.Context, userID int64, from, to string) ([]domain.CheckIn, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, from, to)
	}
	return nil, nil
}
