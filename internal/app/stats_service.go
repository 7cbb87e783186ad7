package app

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"mindtrack/internal/analytics"
	"mindtrack/internal/domain"
	"mindtrack/internal/metrics"
)

const (
	defaultStatsDays    = 7
	maxStatsDays        = 366
	defaultStatsTimeout = 8 * time.Second
	summaryTTL          = 10 * time.Minute
)

// CheckInReader is the read side of the check-in store used by statistics.
type CheckInReader interface {
	ListRange(ctx context.Context, userID int64, from, to string) ([]domain.CheckIn, error)
}

// StatsService builds statistics over check-in windows.
type StatsService struct {
	checkins CheckInReader
	cache    SummaryCache
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewStatsService creates a StatsService. cache may be nil; a non-positive
// timeout uses the default.
func NewStatsService(checkins CheckInReader, cache SummaryCache, timeout time.Duration, logger *zap.Logger) *StatsService {
	if timeout <= 0 {
		timeout = defaultStatsTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{checkins: checkins, cache: cache, timeout: timeout, logger: logger, now: time.Now}
}

// StatsSummary is a Summary with the window it covers.
type StatsSummary struct {
	Days     int    `json:"days"`
	From     string `json:"from"`
	To       string `json:"to"`
	Fallback bool   `json:"fallback"`
	analytics.Summary
}

func clampDays(days int) int {
	if days <= 0 {
		return defaultStatsDays
	}
	if days > maxStatsDays {
		return maxStatsDays
	}
	return days
}

// Summary compares the last days days with the window before it. Loading
// races a fixed timeout; on expiry or a load error the empty summary is
// returned. It never fails.
func (s *StatsService) Summary(ctx context.Context, userID int64, days int) StatsSummary {
	days = clampDays(days)
	today := domain.Today(s.now())
	from := domain.AddDays(today, -(days - 1))
	out := StatsSummary{Days: days, From: from, To: today}

	key := statsKey(userID, days, today)
	if s.cache != nil {
		if b, ok := s.cache.Get(ctx, key); ok {
			var cached analytics.Summary
			if err := json.Unmarshal(b, &cached); err == nil {
				out.Summary = cached
				return out
			}
		}
	}

	type result struct {
		summary analytics.Summary
		err     error
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ch := make(chan result, 1)
	go func() {
		cur, err := s.checkins.ListRange(ctx, userID, from, today)
		if err != nil {
			ch <- result{err: err}
			return
		}
		prev, err := s.checkins.ListRange(ctx, userID, domain.AddDays(from, -days), domain.AddDays(from, -1))
		if err != nil {
			ch <- result{err: err}
			return
		}
		ch <- result{summary: analytics.BuildSummary(cur, prev)}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			s.logger.Warn("stats load failed", zap.Int64("user_id", userID), zap.Error(r.err))
			return s.fallback(out)
		}
		out.Summary = r.summary
		if s.cache != nil {
			if b, err := json.Marshal(r.summary); err == nil {
				s.cache.Set(ctx, key, b, summaryTTL)
			}
		}
		return out
	case <-ctx.Done():
		s.logger.Warn("stats load timed out",
			zap.Int64("user_id", userID),
			zap.Int("days", days),
			zap.Duration("timeout", s.timeout),
		)
		return s.fallback(out)
	}
}

func (s *StatsService) fallback(out StatsSummary) StatsSummary {
	metrics.StatsFallbacks.Inc()
	out.Fallback = true
	out.Summary = analytics.Empty()
	return out
}

// DayPoint is one calendar day of the daily series. Ratings is nil for days
// without a check-in.
type DayPoint struct {
	Day            string              `json:"day"`
	Ratings        *domain.Ratings     `json:"ratings"`
	TrainingLoad   domain.TrainingLoad `json:"trainingLoad,omitempty"`
	PreCompetition bool                `json:"preCompetition"`
	// MoodAvg7 is the trailing mean mood of the last seven check-ins.
	MoodAvg7 *float64 `json:"moodAvg7"`
}

// Daily returns one point per day for the last days days, oldest first.
func (s *StatsService) Daily(ctx context.Context, userID int64, days int) ([]DayPoint, error) {
	days = clampDays(days)
	today := domain.Today(s.now())
	from := domain.AddDays(today, -(days - 1))

	records, err := s.checkins.ListRange(ctx, userID, from, today)
	if err != nil {
		return nil, err
	}
	byDay := make(map[string]domain.CheckIn, len(records))
	for _, c := range records {
		byDay[c.Date] = c
	}

	points := make([]DayPoint, 0, days)
	var moods []float64
	var moodIdx []int
	for i := 0; i < days; i++ {
		day := domain.AddDays(from, i)
		p := DayPoint{Day: day}
		if c, ok := byDay[day]; ok {
			r := c.Ratings
			p.Ratings = &r
			p.TrainingLoad = c.TrainingLoad
			p.PreCompetition = c.PreCompetition
			moods = append(moods, float64(c.Mood))
			moodIdx = append(moodIdx, len(points))
		}
		points = append(points, p)
	}

	for i, avg := range analytics.RollingAverage(moods, 7) {
		v := avg
		points[moodIdx[i]].MoodAvg7 = &v
	}
	return points, nil
}
