package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"mindtrack/internal/domain"
	"mindtrack/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit_RoundTrip(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	sleep := 7.5

	for i, r := range []domain.Ratings{
		ratings(1),
		ratings(10),
		{Mood: 3, StressManagement: 9, Energy: 1, Motivation: 10, Confidence: 4, Focus: 6, Recovery: 2, SleepQuality: 8},
	} {
		day := domain.AddDays(fixtureToday, -i)
		_, err := f.checkins.Submit(ctx, 1, CheckInInput{
			Date:           day,
			Ratings:        r,
			SleepHours:     &sleep,
			Note:           "felt sharp",
			TrainingLoad:   domain.TrainingHard,
			PreCompetition: true,
		})
		require.NoError(t, err)

		view, err := f.checkins.Get(ctx, 1, day)
		require.NoError(t, err)
		require.NotNil(t, view.CheckIn)
		assert.Equal(t, r, view.CheckIn.Ratings)
		assert.Equal(t, 7.5, *view.CheckIn.SleepHours)
		assert.Equal(t, "felt sharp", view.CheckIn.Note)
		assert.Equal(t, domain.TrainingHard, view.CheckIn.TrainingLoad)
		assert.True(t, view.CheckIn.PreCompetition)
		assert.Equal(t, domain.StateSubmitted, view.State)
	}
}

func TestSubmit_Defaults(t *testing.T) {
	f := newFixture(t, nil)
	res, err := f.checkins.Submit(context.Background(), 1, CheckInInput{Ratings: ratings(5)})
	require.NoError(t, err)
	assert.Equal(t, fixtureToday, res.CheckIn.Date)
	assert.Equal(t, domain.TrainingNone, res.CheckIn.TrainingLoad)
	assert.False(t, res.CheckIn.PreCompetition)
}

func TestSubmit_SecondSubmissionEdits(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := f.checkins.Submit(ctx, 1, CheckInInput{Ratings: ratings(5)})
	require.NoError(t, err)
	assert.Equal(t, domain.StateSubmitted, first.State)
	assert.Equal(t, 20, first.XPAwarded)

	second, err := f.checkins.Submit(ctx, 1, CheckInInput{Ratings: ratings(8)})
	require.NoError(t, err)
	assert.Equal(t, domain.StateEdited, second.State)
	assert.Equal(t, 2, second.CheckIn.Revision)
	assert.Equal(t, first.CheckIn.CreatedAt, second.CheckIn.CreatedAt)
	assert.Zero(t, second.XPAwarded)

	today, err := f.checkins.Today(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 8, today.CheckIn.Mood)
	assert.Equal(t, domain.StateEdited, today.State)

	xp, _ := f.db.SumXP(ctx, 1)
	assert.Equal(t, 20, xp)
}

func TestSubmit_ValidationWritesNothing(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	bad := []CheckInInput{
		{Ratings: ratings(0)},
		{Ratings: ratings(11)},
		{Ratings: ratings(5), Date: "2026-03-11"},
		{Ratings: ratings(5), TrainingLoad: "brutal"},
	}
	for _, in := range bad {
		_, err := f.checkins.Submit(ctx, 1, in)
		assert.True(t, domain.IsValidation(err), "input %+v", in)
	}

	view, err := f.checkins.Today(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StateNotStarted, view.State)
	xp, _ := f.db.SumXP(ctx, 1)
	assert.Zero(t, xp)
}

func TestSubmit_RemoteFailureIsAbsorbed(t *testing.T) {
	remote := &mockCheckInRepo{
		replaceFn: func(ctx context.Context, c domain.CheckIn) error {
			return errors.New("connection refused")
		},
	}
	f := newFixture(t, remote)
	before := testutil.ToFloat64(metrics.MirrorFailures)

	res, err := f.checkins.Submit(context.Background(), 1, CheckInInput{Ratings: ratings(6)})
	require.NoError(t, err)
	assert.Equal(t, domain.StateSubmitted, res.State)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.MirrorFailures))

	view, err := f.checkins.Today(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, view.CheckIn)
}

func TestSubmit_MirrorsToRemote(t *testing.T) {
	var mirrored []domain.CheckIn
	remote := &mockCheckInRepo{
		replaceFn: func(ctx context.Context, c domain.CheckIn) error {
			mirrored = append(mirrored, c)
			return nil
		},
	}
	f := newFixture(t, remote)

	_, err := f.checkins.Submit(context.Background(), 1, CheckInInput{Ratings: ratings(6)})
	require.NoError(t, err)
	require.Len(t, mirrored, 1)
	assert.Equal(t, int64(1), mirrored[0].UserID)
	assert.Equal(t, fixtureToday, mirrored[0].Date)
}

func TestSubmit_StreakAndAchievements(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	var last SubmitResult
	for _, day := range []string{"2026-03-08", "2026-03-09", "2026-03-10"} {
		res, err := f.checkins.Submit(ctx, 1, CheckInInput{Date: day, Ratings: ratings(7)})
		require.NoError(t, err)
		last = res
	}

	assert.Equal(t, domain.Streak{Current: 3, Longest: 3, LastDate: "2026-03-10"}, last.Streak)
	require.Len(t, last.Unlocked, 1)
	assert.Equal(t, "streak_3", last.Unlocked[0].ID)
	assert.Equal(t, 3*20+30, last.Progress.XP)
	assert.Equal(t, 20+30, last.XPAwarded, "daily task and achievement reward")

	p, _ := f.db.GetProfile(ctx, 1)
	assert.Equal(t, 3, p.CurrentStreak)
	assert.Equal(t, 3, p.LongestStreak)
	assert.Equal(t, "2026-03-10", p.LastCheckInDate)
	assert.Equal(t, []string{"streak_3"}, p.Badges)
}

func TestSubmit_NoteCompletesJournalTask(t *testing.T) {
	f := newFixture(t, nil)
	res, err := f.checkins.Submit(context.Background(), 1, CheckInInput{Ratings: ratings(7), Note: "tight hamstrings"})
	require.NoError(t, err)
	assert.Equal(t, 30, res.Progress.XP)
	assert.Equal(t, 30, res.XPAwarded, "daily check-in plus journal")

	tasks, _ := f.game.ListDailyTasks(context.Background(), 1, fixtureToday)
	for _, task := range tasks {
		if task.ID == domain.TaskJournal {
			assert.True(t, task.Done)
		}
	}
}

func TestSubmit_InvalidatesSummaryCache(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.checkins.Submit(context.Background(), 1, CheckInInput{Ratings: ratings(7)})
	require.NoError(t, err)
	assert.Equal(t, []string{"stats:1:"}, f.summary.invalidated)
}

func TestSubmit_ConcurrentSameDay(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 1; i <= 10; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			_, err := f.checkins.Submit(ctx, 1, CheckInInput{Ratings: ratings(v)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	view, err := f.checkins.Today(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, view.CheckIn.Revision)

	entries, _ := f.db.ListXP(ctx, 1)
	daily := 0
	for _, e := range entries {
		if e.Source == domain.SourceDailyTask {
			daily++
		}
	}
	assert.Equal(t, 1, daily)
}

func TestGet_FallsBackToRemoteAndWarmsCache(t *testing.T) {
	calls := 0
	remote := &mockCheckInRepo{
		getFn: func(ctx context.Context, userID int64, date string) (*domain.CheckIn, error) {
			calls++
			return &domain.CheckIn{UserID: userID, Date: date, Ratings: ratings(4), Revision: 1}, nil
		},
	}
	f := newFixture(t, remote)
	ctx := context.Background()

	view, err := f.checkins.Get(ctx, 1, "2026-03-01")
	require.NoError(t, err)
	require.NotNil(t, view.CheckIn)
	assert.Equal(t, 4, view.CheckIn.Mood)

	_, err = f.checkins.Get(ctx, 1, "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "second read should be served from the cache")
}

func TestGet_RemoteErrorMeansNotStarted(t *testing.T) {
	remote := &mockCheckInRepo{
		getFn: func(ctx context.Context, userID int64, date string) (*domain.CheckIn, error) {
			return nil, errors.New("timeout")
		},
	}
	f := newFixture(t, remote)
	view, err := f.checkins.Get(context.Background(), 1, fixtureToday)
	require.NoError(t, err)
	assert.Equal(t, domain.StateNotStarted, view.State)

	_, err = f.checkins.Get(context.Background(), 1, "yesterday")
	assert.True(t, domain.IsValidation(err))
}

func TestListRange(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for _, day := range []string{"2026-03-07", "2026-03-05", "2026-03-09"} {
		_, err := f.checkins.Submit(ctx, 1, CheckInInput{Date: day, Ratings: ratings(5)})
		require.NoError(t, err)
	}
	_, err := f.checkins.Submit(ctx, 2, CheckInInput{Date: "2026-03-06", Ratings: ratings(5)})
	require.NoError(t, err)

	list, err := f.checkins.ListRange(ctx, 1, "2026-03-05", "2026-03-08")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "2026-03-05", list[0].Date)
	assert.Equal(t, "2026-03-07", list[1].Date)

	_, err = f.checkins.ListRange(ctx, 1, "2026-03-08", "2026-03-05")
	assert.True(t, domain.IsValidation(err))
}

func TestListRange_RemoteFallback(t *testing.T) {
	remote := &mockCheckInRepo{
		listFn: func(ctx context.Context, userID int64, from, to string) ([]domain.CheckIn, error) {
			return []domain.CheckIn{
				{UserID: userID, Date: "2026-03-02", Ratings: ratings(3), Revision: 1},
				{UserID: userID, Date: "2026-03-03", Ratings: ratings(4), Revision: 1},
			}, nil
		},
	}
	f := newFixture(t, remote)
	ctx := context.Background()

	list, err := f.checkins.ListRange(ctx, 1, "2026-03-01", "2026-03-05")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	v, _ := f.cache.Get(ctx, checkInKey(1, "2026-03-03"))
	assert.NotNil(t, v, "remote rows should warm the cache")
}
