package domain

import (
	"context"
	"time"
)

// ViewKind separates general resources from education modules.
type ViewKind string

const (
	ViewResource  ViewKind = "resource"
	ViewEducation ViewKind = "education"
)

// Valid reports whether k is a known view kind.
func (k ViewKind) Valid() bool {
	return k == ViewResource || k == ViewEducation
}

// ExerciseLog records one completed guided exercise.
type ExerciseLog struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	ExerciseID  string    `json:"exerciseId"`
	Seconds     int       `json:"seconds"`
	CompletedAt time.Time `json:"completedAt"`
}

// ActivityRepository stores exercise completions and content views.
// RecordView reports false when the (user, kind, resource) view already exists.
type ActivityRepository interface {
	AddExerciseLog(ctx context.Context, l ExerciseLog) (*ExerciseLog, error)
	ListExerciseLogs(ctx context.Context, userID int64) ([]ExerciseLog, error)
	RecordView(ctx context.Context, userID int64, kind ViewKind, resourceID string) (bool, error)
	CountViews(ctx context.Context, userID int64, kind ViewKind) (int, error)
}

// LocalCache is the durable local key/value store of JSON blobs. Get returns
// (nil, nil) on a miss.
type LocalCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Scan returns the values whose keys sort within [from, to], ordered by key.
	Scan(ctx context.Context, from, to string) ([][]byte, error)
}
