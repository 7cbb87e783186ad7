package app

import (
	"context"
	"encoding/json"
	"fmt"

	"mindtrack/internal/domain"
)

// Local cache key layout. Check-in keys embed the date so a key range scan
// returns one user's check-ins in date order.
func checkInKey(userID int64, date string) string {
	return fmt.Sprintf("checkin:%d:%s", userID, date)
}

func checkInRange(userID int64, from, to string) (string, string) {
	return checkInKey(userID, from), checkInKey(userID, to)
}

func exercisesKey(userID int64) string    { return fmt.Sprintf("exercises:%d", userID) }
func achievementsKey(userID int64) string { return fmt.Sprintf("achievements:%d", userID) }
func xpKey(userID int64) string           { return fmt.Sprintf("xp:%d", userID) }
func streakKey(userID int64) string       { return fmt.Sprintf("streak:%d", userID) }

func statsPrefix(userID int64) string { return fmt.Sprintf("stats:%d:", userID) }

func statsKey(userID int64, days int, today string) string {
	return fmt.Sprintf("%s%d:%s", statsPrefix(userID), days, today)
}

func putJSON(ctx context.Context, c domain.LocalCache, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Put(ctx, key, b)
}

// getJSON decodes the value at key into v, reporting false on a miss.
func getJSON(ctx context.Context, c domain.LocalCache, key string, v any) (bool, error) {
	b, err := c.Get(ctx, key)
	if err != nil || b == nil {
		return false, err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}
