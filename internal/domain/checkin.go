package domain

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

// TrainingLoad is the athlete's self-reported training intensity for a day.
type TrainingLoad string

const (
	TrainingNone     TrainingLoad = "none"
	TrainingLight    TrainingLoad = "light"
	TrainingModerate TrainingLoad = "moderate"
	TrainingHard     TrainingLoad = "hard"
)

// TrainingLoads lists the valid loads in ascending intensity.
var TrainingLoads = []TrainingLoad{TrainingNone, TrainingLight, TrainingModerate, TrainingHard}

// Valid reports whether l is a known training load.
func (l TrainingLoad) Valid() bool {
	for _, v := range TrainingLoads {
		if l == v {
			return true
		}
	}
	return false
}

// DayState is the lifecycle of a single day's check-in.
type DayState string

const (
	StateNotStarted DayState = "not_started"
	StateSubmitted  DayState = "submitted"
	StateEdited     DayState = "edited"
)

const (
	MinRating     = 1
	MaxRating     = 10
	MaxNoteLength = 500
)

// Ratings holds the eight 1-10 self-assessment scores of a check-in.
type Ratings struct {
	Mood             int `json:"mood"`
	StressManagement int `json:"stressManagement"`
	Energy           int `json:"energy"`
	Motivation       int `json:"motivation"`
	Confidence       int `json:"confidence"`
	Focus            int `json:"focus"`
	Recovery         int `json:"recovery"`
	SleepQuality     int `json:"sleepQuality"`
}

// Metric names a rating dimension.
type Metric string

const (
	MetricMood             Metric = "mood"
	MetricStressManagement Metric = "stressManagement"
	MetricEnergy           Metric = "energy"
	MetricMotivation       Metric = "motivation"
	MetricConfidence       Metric = "confidence"
	MetricFocus            Metric = "focus"
	MetricRecovery         Metric = "recovery"
	MetricSleepQuality     Metric = "sleepQuality"
)

// Metrics lists every rating dimension in display order.
var Metrics = []Metric{
	MetricMood, MetricStressManagement, MetricEnergy, MetricMotivation,
	MetricConfidence, MetricFocus, MetricRecovery, MetricSleepQuality,
}

// Value returns the rating for m, or 0 for an unknown metric.
func (r Ratings) Value(m Metric) int {
	switch m {
	case MetricMood:
		return r.Mood
	case MetricStressManagement:
		return r.StressManagement
	case MetricEnergy:
		return r.Energy
	case MetricMotivation:
		return r.Motivation
	case MetricConfidence:
		return r.Confidence
	case MetricFocus:
		return r.Focus
	case MetricRecovery:
		return r.Recovery
	case MetricSleepQuality:
		return r.SleepQuality
	}
	return 0
}

// Validate checks that all ratings are within [MinRating, MaxRating].
func (r Ratings) Validate() error {
	for _, m := range Metrics {
		v := r.Value(m)
		if v < MinRating || v > MaxRating {
			return Invalid(string(m), "must be between %d and %d, got %d", MinRating, MaxRating, v)
		}
	}
	return nil
}

// CheckIn is one user's self-assessment for one calendar day.
type CheckIn struct {
	UserID int64  `json:"userId"`
	Date   string `json:"date"`
	Ratings
	SleepHours     *float64     `json:"sleepHours,omitempty"`
	Note           string       `json:"note,omitempty"`
	TrainingLoad   TrainingLoad `json:"trainingLoad"`
	PreCompetition bool         `json:"preCompetition"`
	Revision       int          `json:"revision"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// Soreness is derived from recovery; there is no separate soreness rating.
func (c CheckIn) Soreness() int {
	return MaxRating + 1 - c.Recovery
}

// Validate checks every field of c against the check-in rules. today is the
// caller's current calendar day; future dates are rejected.
func (c CheckIn) Validate(today string) error {
	if c.UserID <= 0 {
		return Invalid("userId", "is required")
	}
	d, err := ParseDay(c.Date)
	if err != nil {
		return Invalid("date", "must be YYYY-MM-DD")
	}
	if d.Format(DayLayout) > today {
		return Invalid("date", "must not be in the future")
	}
	if err := c.Ratings.Validate(); err != nil {
		return err
	}
	if utf8.RuneCountInString(c.Note) > MaxNoteLength {
		return Invalid("note", "must be at most %d characters", MaxNoteLength)
	}
	if !c.TrainingLoad.Valid() {
		return Invalid("trainingLoad", "must be one of none, light, moderate, hard")
	}
	if c.SleepHours != nil && (*c.SleepHours < 0 || *c.SleepHours > 24) {
		return Invalid("sleepHours", "must be between 0 and 24")
	}
	return nil
}

// Streak summarises consecutive check-in days.
type Streak struct {
	Current  int    `json:"current"`
	Longest  int    `json:"longest"`
	LastDate string `json:"lastDate,omitempty"`
}

// ComputeStreak derives the streak from the set of check-in dates as of today.
// The current streak counts back from today, or from yesterday when today has
// no check-in yet.
func ComputeStreak(dates []string, today string) Streak {
	set := make(map[string]bool, len(dates))
	var last string
	for _, d := range dates {
		d = strings.TrimSpace(d)
		if _, err := ParseDay(d); err != nil {
			continue
		}
		set[d] = true
		if d > last {
			last = d
		}
	}
	if len(set) == 0 {
		return Streak{}
	}

	s := Streak{LastDate: last}

	start := today
	if !set[start] {
		start = AddDays(today, -1)
	}
	for d := start; set[d]; d = AddDays(d, -1) {
		s.Current++
	}

	for d := range set {
		if set[AddDays(d, -1)] {
			continue
		}
		n := 0
		for cur := d; set[cur]; cur = AddDays(cur, 1) {
			n++
		}
		if n > s.Longest {
			s.Longest = n
		}
	}
	return s
}

// AsOf returns the streak as seen on today. A streak whose last check-in is
// more than a day old is broken, so Current drops to zero.
func (s Streak) AsOf(today string) Streak {
	if s.LastDate == "" {
		s.Current = 0
		return s
	}
	gap, err := DaysBetween(s.LastDate, today)
	if err != nil || gap > 1 {
		s.Current = 0
	}
	return s
}

// CheckInRepository is the remote mirror of check-ins. ReplaceCheckIn deletes
// any existing row for (user, date) and inserts c in one unit of work.
type CheckInRepository interface {
	ReplaceCheckIn(ctx context.Context, c CheckIn) error
	GetCheckIn(ctx context.Context, userID int64, date string) (*CheckIn, error)
	ListCheckIns(ctx context.Context, userID int64, from, to string) ([]CheckIn, error)
}
