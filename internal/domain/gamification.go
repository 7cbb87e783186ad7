package domain

import (
	"context"
	"time"
)

// XPSource identifies what kind of event produced a ledger entry.
type XPSource string

const (
	SourceDailyTask   XPSource = "daily_task"
	SourceAchievement XPSource = "achievement"
)

// LedgerEntry is an append-only XP award. At most one entry exists per
// (UserID, Source, SourceID).
type LedgerEntry struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	Amount      int       `json:"amount"`
	Source      XPSource  `json:"source"`
	SourceID    string    `json:"sourceId"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// XPLedger persists ledger entries. AppendXP reports false without error when
// an entry with the same (user, source, source_id) already exists.
type XPLedger interface {
	AppendXP(ctx context.Context, e LedgerEntry) (bool, error)
	SumXP(ctx context.Context, userID int64) (int, error)
	ListXP(ctx context.Context, userID int64) ([]LedgerEntry, error)
}

// DailyTask is a repeatable once-per-day activity that earns XP.
type DailyTask struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	XP    int    `json:"xp"`
}

const (
	TaskDailyCheckIn = "daily_checkin"
	TaskBreathing    = "breathing"
	TaskJournal      = "journal"
	TaskLearn        = "learn"
)

// DailyTasks is the static task catalog.
var DailyTasks = []DailyTask{
	{ID: TaskDailyCheckIn, Label: "Complete your daily check-in", XP: 20},
	{ID: TaskBreathing, Label: "Finish a guided exercise", XP: 15},
	{ID: TaskJournal, Label: "Write a journal note", XP: 10},
	{ID: TaskLearn, Label: "Read an education module", XP: 10},
}

// FindDailyTask looks up a task by id.
func FindDailyTask(id string) (DailyTask, bool) {
	for _, t := range DailyTasks {
		if t.ID == id {
			return t, true
		}
	}
	return DailyTask{}, false
}

// DailyTaskRepository records task completions. MarkTaskDone reports false
// when the task was already done that day.
type DailyTaskRepository interface {
	MarkTaskDone(ctx context.Context, userID int64, taskID, day string) (bool, error)
	TasksDone(ctx context.Context, userID int64, day string) ([]string, error)
}

// AchievementGroup selects which counter an achievement is measured against.
type AchievementGroup string

const (
	GroupCheckins  AchievementGroup = "checkins"
	GroupExercise  AchievementGroup = "exercise"
	GroupResource  AchievementGroup = "resource"
	GroupEducation AchievementGroup = "education"
)

// Achievement is a static definition; unlocks are stored per user.
type Achievement struct {
	ID       string           `json:"id"`
	Group    AchievementGroup `json:"group"`
	Target   int              `json:"target"`
	XPReward int              `json:"xpReward"`
	Label    string           `json:"label"`
}

// Achievements is the static catalog.
var Achievements = []Achievement{
	{ID: "streak_3", Group: GroupCheckins, Target: 3, XPReward: 30, Label: "3-day check-in streak"},
	{ID: "streak_7", Group: GroupCheckins, Target: 7, XPReward: 75, Label: "One week strong"},
	{ID: "streak_30", Group: GroupCheckins, Target: 30, XPReward: 300, Label: "Monthly habit"},
	{ID: "exercise_1", Group: GroupExercise, Target: 1, XPReward: 10, Label: "First breath"},
	{ID: "exercise_10", Group: GroupExercise, Target: 10, XPReward: 50, Label: "Calm under pressure"},
	{ID: "exercise_50", Group: GroupExercise, Target: 50, XPReward: 200, Label: "Mindfulness master"},
	{ID: "resource_1", Group: GroupResource, Target: 1, XPReward: 10, Label: "Curious mind"},
	{ID: "resource_10", Group: GroupResource, Target: 10, XPReward: 50, Label: "Resource explorer"},
	{ID: "education_1", Group: GroupEducation, Target: 1, XPReward: 15, Label: "Student athlete"},
	{ID: "education_5", Group: GroupEducation, Target: 5, XPReward: 75, Label: "Mental skills scholar"},
}

// FindAchievement looks up an achievement definition by id.
func FindAchievement(id string) (Achievement, bool) {
	for _, a := range Achievements {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}

// AchievementRepository stores per-user unlocks. Unlocks are never deleted;
// UnlockAchievement reports false when id was already unlocked.
type AchievementRepository interface {
	UnlockAchievement(ctx context.Context, userID int64, id string) (bool, error)
	UnlockedAchievements(ctx context.Context, userID int64) ([]string, error)
}

// Counters are the activity totals achievements are evaluated against.
type Counters struct {
	Exercises      int `json:"exercises"`
	ResourceViews  int `json:"resourceViews"`
	EducationViews int `json:"educationViews"`
	Streak         int `json:"streak"`
}

// For returns the counter relevant to group g.
func (c Counters) For(g AchievementGroup) int {
	switch g {
	case GroupCheckins:
		return c.Streak
	case GroupExercise:
		return c.Exercises
	case GroupResource:
		return c.ResourceViews
	case GroupEducation:
		return c.EducationViews
	}
	return 0
}
