package joining

import (
	"fmt"
	"time"

	"github.com/go-redis/redis"
	"github.com/pkg/errors"
)

// DMLimiter rate limits the "account too new" DMs per user.
// Only accounts younger than DMRateLimitAge are limited, after DMMaxPerHour DMs the user is blocked for DMBlockDuration.
type DMLimiter struct {
	client *redis.Client
	config Config
}

func NewDMLimiter(client *redis.Client, config Config) *DMLimiter {
	return &DMLimiter{client: client, config: config}
}

func dmCountKey(userID string) string {
	return fmt.Sprintf("codex:joining:dm:count:%s", userID)
}

func dmBlockedKey(userID string) string {
	return fmt.Sprintf("codex:joining:dm:blocked:%s", userID)
}

// Allow reports whether a DM may be sent and why not
func (l *DMLimiter) Allow(userID string, accountAge time.Duration) (bool, string, error) {
	if accountAge >= l.config.DMRateLimitAge {
		return true, "account old enough", nil
	}

	blocked, err := l.client.TTL(dmBlockedKey(userID)).Result()
	if err != nil {
		return false, "", errors.Wrap(err, "unable to read dm block")
	}
	if blocked > 0 {
		return false, fmt.Sprintf("blocked for %dh %dm", int(blocked.Hours()), int(blocked.Minutes())%60), nil
	}

	count, err := l.client.Get(dmCountKey(userID)).Int64()
	if err != nil && err != redis.Nil {
		return false, "", errors.Wrap(err, "unable to read dm count")
	}

	if count >= int64(l.config.DMMaxPerHour) {
		err = l.client.Set(dmBlockedKey(userID), 1, l.config.DMBlockDuration).Err()
		if err != nil {
			return false, "", errors.Wrap(err, "unable to block dms")
		}
		return false, "rate limit exceeded", nil
	}

	return true, "within limits", nil
}

// Record counts a sent DM, the counter resets an hour after the first DM
func (l *DMLimiter) Record(userID string) error {
	count, err := l.client.Incr(dmCountKey(userID)).Result()
	if err != nil {
		return errors.Wrap(err, "unable to count dm")
	}

	if count == 1 {
		err = l.client.Expire(dmCountKey(userID), time.Hour).Err()
		if err != nil {
			return errors.Wrap(err, "unable to expire dm count")
		}
	}

	return nil
}

// Cooldown allows one use per key and duration
type Cooldown struct {
	client   *redis.Client
	prefix   string
	duration time.Duration
}

func NewCooldown(client *redis.Client, prefix string, duration time.Duration) *Cooldown {
	return &Cooldown{client: client, prefix: prefix, duration: duration}
}

// Take starts the cooldown for $key, if it is already running it returns false and the time left
func (c *Cooldown) Take(key string) (bool, time.Duration, error) {
	if c.duration <= 0 {
		return true, 0, nil
	}

	redisKey := fmt.Sprintf("codex:cooldown:%s:%s", c.prefix, key)

	ok, err := c.client.SetNX(redisKey, 1, c.duration).Result()
	if err != nil {
		return false, 0, errors.Wrap(err, "unable to take cooldown")
	}
	if ok {
		return true, 0, nil
	}

	left, err := c.client.TTL(redisKey).Result()
	if err != nil {
		return false, 0, errors.Wrap(err, "unable to read cooldown")
	}
	if left < 0 {
		left = 0
	}

	return false, left, nil
}
