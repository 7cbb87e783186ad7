// Package memory implements in-memory repositories for local demo mode and
// tests.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"mindtrack/internal/domain"
)

type ledgerKey struct {
	userID   int64
	source   domain.XPSource
	sourceID string
}

type taskKey struct {
	userID int64
	taskID string
	day    string
}

type checkInKey struct {
	userID int64
	date   string
}

type viewKey struct {
	userID     int64
	kind       domain.ViewKind
	resourceID string
}

// DB implements every repository port in memory.
type DB struct {
	mu           sync.Mutex
	users        []*domain.User
	sessions     map[string]*domain.Session
	profiles     map[int64]*domain.Profile
	checkIns     map[checkInKey]domain.CheckIn
	ledger       []domain.LedgerEntry
	ledgerIndex  map[ledgerKey]bool
	tasks        map[taskKey]bool
	achievements map[int64][]string
	exercises    []domain.ExerciseLog
	views        map[viewKey]bool

	userIDCounter     int64
	ledgerIDCounter   int64
	exerciseIDCounter int64
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		sessions:     make(map[string]*domain.Session),
		profiles:     make(map[int64]*domain.Profile),
		checkIns:     make(map[checkInKey]domain.CheckIn),
		ledgerIndex:  make(map[ledgerKey]bool),
		tasks:        make(map[taskKey]bool),
		achievements: make(map[int64][]string),
		views:        make(map[viewKey]bool),
	}
}

// Ensure interfaces are met.
var (
	_ domain.UserRepository        = (*DB)(nil)
	_ domain.SessionRepository     = (*DB)(nil)
	_ domain.ProfileRepository     = (*DB)(nil)
	_ domain.CheckInRepository     = (*DB)(nil)
	_ domain.XPLedger              = (*DB)(nil)
	_ domain.DailyTaskRepository   = (*DB)(nil)
	_ domain.AchievementRepository = (*DB)(nil)
	_ domain.ActivityRepository    = (*DB)(nil)
)

// --- UserRepository ---

// GetUserByEmail retrieves a user by email, case-insensitively.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// CreateUser creates a new user.
func (db *DB) CreateUser(ctx context.Context, email, passwordHash string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if strings.EqualFold(u.Email, email) {
			return nil, domain.ConflictError("email already registered")
		}
	}

	db.userIDCounter++
	u := &domain.User{
		ID:           db.userIDCounter,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	db.users = append(db.users, u)
	cp := *u
	return &cp, nil
}

// CountUsers returns the total number of users.
func (db *DB) CountUsers(ctx context.Context) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.users), nil
}

// --- SessionRepository ---

// CreateSession stores a new session.
func (db *DB) CreateSession(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.sessions[token] = &domain.Session{
		Token:     token,
		UserID:    userID,
		UserAgent: userAgent,
		IP:        ip,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

// GetSession retrieves a session by token.
func (db *DB) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	s, ok := db.sessions[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

// DeleteSession deletes a session.
func (db *DB) DeleteSession(ctx context.Context, token string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.sessions, token)
	return nil
}

// DeleteExpiredSessions deletes all expired sessions.
func (db *DB) DeleteExpiredSessions(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	now := time.Now()
	for k, v := range db.sessions {
		if now.After(v.ExpiresAt) {
			delete(db.sessions, k)
		}
	}
	return nil
}

// --- ProfileRepository ---

func cloneProfile(p domain.Profile) *domain.Profile {
	cp := p
	if p.Username != nil {
		u := *p.Username
		cp.Username = &u
	}
	if p.Age != nil {
		a := *p.Age
		cp.Age = &a
	}
	cp.Goals = append([]string(nil), p.Goals...)
	cp.Badges = append([]string(nil), p.Badges...)
	return &cp
}

// GetProfile returns the user's profile, or nil if none exists.
func (db *DB) GetProfile(ctx context.Context, userID int64) (*domain.Profile, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	p, ok := db.profiles[userID]
	if !ok {
		return nil, nil
	}
	return cloneProfile(*p), nil
}

// CreateProfile stores a new profile.
func (db *DB) CreateProfile(ctx context.Context, p domain.Profile) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.profiles[p.UserID]; ok {
		return domain.ConflictError("profile already exists")
	}
	if p.Username != nil && db.usernameTakenLocked(*p.Username, p.UserID) {
		return domain.ConflictError("username already taken")
	}
	p.UpdatedAt = time.Now().UTC()
	db.profiles[p.UserID] = cloneProfile(p)
	return nil
}

// UpdateProfile replaces an existing profile.
func (db *DB) UpdateProfile(ctx context.Context, p domain.Profile) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.profiles[p.UserID]; !ok {
		return domain.ErrNotFound
	}
	if p.Username != nil && db.usernameTakenLocked(*p.Username, p.UserID) {
		return domain.ConflictError("username already taken")
	}
	p.UpdatedAt = time.Now().UTC()
	db.profiles[p.UserID] = cloneProfile(p)
	return nil
}

// UsernameTaken reports whether another user holds username.
func (db *DB) UsernameTaken(ctx context.Context, username string, exceptUserID int64) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.usernameTakenLocked(username, exceptUserID), nil
}

func (db *DB) usernameTakenLocked(username string, exceptUserID int64) bool {
	for id, p := range db.profiles {
		if id != exceptUserID && p.Username != nil && strings.EqualFold(*p.Username, username) {
			return true
		}
	}
	return false
}

// --- CheckInRepository ---

// ReplaceCheckIn deletes any check-in for (user, date) and stores c.
func (db *DB) ReplaceCheckIn(ctx context.Context, c domain.CheckIn) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	k := checkInKey{c.UserID, c.Date}
	delete(db.checkIns, k)
	db.checkIns[k] = c
	return nil
}

// GetCheckIn returns the check-in for (user, date), or nil.
func (db *DB) GetCheckIn(ctx context.Context, userID int64, date string) (*domain.CheckIn, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	c, ok := db.checkIns[checkInKey{userID, date}]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// ListCheckIns returns the user's check-ins with from <= date <= to, oldest first.
func (db *DB) ListCheckIns(ctx context.Context, userID int64, from, to string) ([]domain.CheckIn, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var out []domain.CheckIn
	for k, c := range db.checkIns {
		if k.userID == userID && k.date >= from && k.date <= to {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// --- XPLedger ---

// AppendXP adds e unless an entry with the same idempotency key exists.
func (db *DB) AppendXP(ctx context.Context, e domain.LedgerEntry) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	k := ledgerKey{e.UserID, e.Source, e.SourceID}
	if db.ledgerIndex[k] {
		return false, nil
	}
	db.ledgerIDCounter++
	e.ID = db.ledgerIDCounter
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	db.ledger = append(db.ledger, e)
	db.ledgerIndex[k] = true
	return true, nil
}

// SumXP totals the user's ledger.
func (db *DB) SumXP(ctx context.Context, userID int64) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	total := 0
	for _, e := range db.ledger {
		if e.UserID == userID {
			total += e.Amount
		}
	}
	return total, nil
}

// ListXP returns the user's ledger entries, oldest first.
func (db *DB) ListXP(ctx context.Context, userID int64) ([]domain.LedgerEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var out []domain.LedgerEntry
	for _, e := range db.ledger {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

// --- DailyTaskRepository ---

// MarkTaskDone records the task for the day, reporting whether it is new.
func (db *DB) MarkTaskDone(ctx context.Context, userID int64, taskID, day string) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	k := taskKey{userID, taskID, day}
	if db.tasks[k] {
		return false, nil
	}
	db.tasks[k] = true
	return true, nil
}

// TasksDone lists the task ids completed on day.
func (db *DB) TasksDone(ctx context.Context, userID int64, day string) ([]string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var out []string
	for k := range db.tasks {
		if k.userID == userID && k.day == day {
			out = append(out, k.taskID)
		}
	}
	sort.Strings(out)
	return out, nil
}

// --- AchievementRepository ---

// UnlockAchievement records the unlock, reporting whether it is new.
func (db *DB) UnlockAchievement(ctx context.Context, userID int64, id string) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, a := range db.achievements[userID] {
		if a == id {
			return false, nil
		}
	}
	db.achievements[userID] = append(db.achievements[userID], id)
	return true, nil
}

// UnlockedAchievements lists the user's unlocked achievement ids in unlock order.
func (db *DB) UnlockedAchievements(ctx context.Context, userID int64) ([]string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]string(nil), db.achievements[userID]...), nil
}

// --- ActivityRepository ---

// AddExerciseLog appends a completed exercise.
func (db *DB) AddExerciseLog(ctx context.Context, l domain.ExerciseLog) (*domain.ExerciseLog, error) {
	if l.ExerciseID == "" {
		return nil, errors.New("exercise id is required")
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	db.exerciseIDCounter++
	l.ID = db.exerciseIDCounter
	if l.CompletedAt.IsZero() {
		l.CompletedAt = time.Now().UTC()
	}
	db.exercises = append(db.exercises, l)
	return &l, nil
}

// ListExerciseLogs returns the user's completed exercises, oldest first.
func (db *DB) ListExerciseLogs(ctx context.Context, userID int64) ([]domain.ExerciseLog, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var out []domain.ExerciseLog
	for _, l := range db.exercises {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

// RecordView stores a distinct content view.
func (db *DB) RecordView(ctx context.Context, userID int64, kind domain.ViewKind, resourceID string) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	k := viewKey{userID, kind, resourceID}
	if db.views[k] {
		return false, nil
	}
	db.views[k] = true
	return true, nil
}

// CountViews counts the user's distinct views of kind.
func (db *DB) CountViews(ctx context.Context, userID int64, kind domain.ViewKind) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	n := 0
	for k := range db.views {
		if k.userID == userID && k.kind == kind {
			n++
		}
	}
	return n, nil
}
