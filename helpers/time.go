package helpers

import (
	"time"
)

const Day = 24 * time.Hour

// AccountAge returns how old the account behind $userID is at $now
func AccountAge(userID string, now time.Time) time.Duration {
	created := GetTimeFromSnowflake(userID)
	if created.IsZero() {
		return 0
	}

	return now.Sub(created)
}

// AgeInDays truncates $age to whole days
func AgeInDays(age time.Duration) int {
	if age <= 0 {
		return 0
	}

	return int(age / Day)
}
