package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds throttle tuning for the login and refresh paths.
type Config struct {
	EnableIPThrottle        bool
	EnableRefreshThrottle   bool
	MaxLoginAttempts        int
	LoginCooldownDuration   time.Duration
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration
}

// Limiter throttles login attempts per identifier and per client IP, and
// refresh attempts per session, using fixed-window Redis counters.
type Limiter struct {
	redis redis.UniversalClient
	cfg   Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{redis: redisClient, cfg: cfg}
}

func (l *Limiter) loginKeys(username, ip string) []string {
	keys := []string{loginUserKey(username)}
	if l.cfg.EnableIPThrottle && ip != "" {
		keys = append(keys, loginIPKey(ip))
	}
	return keys
}

// CheckLogin reports whether the identifier and IP are still within the
// login attempt window. It reads without incrementing so probing a locked
// identifier does not extend the lockout.
func (l *Limiter) CheckLogin(ctx context.Context, username, ip string) error {
	for _, key := range l.loginKeys(username, ip) {
		if err := l.underLimit(ctx, key, l.cfg.MaxLoginAttempts); err != nil {
			return err
		}
	}
	return nil
}

// IncrementLogin records a failed login attempt against the identifier and,
// when IP throttling is on, the client IP.
func (l *Limiter) IncrementLogin(ctx context.Context, username, ip string) error {
	for _, key := range l.loginKeys(username, ip) {
		count, err := l.bump(ctx, key, l.cfg.LoginCooldownDuration)
		if err != nil {
			return err
		}
		if count > int64(l.cfg.MaxLoginAttempts) {
			return ErrRateLimited
		}
	}
	return nil
}

// ResetLogin clears the failed-login counters after a successful login or
// password change.
func (l *Limiter) ResetLogin(ctx context.Context, username, ip string) error {
	if err := l.redis.Del(ctx, l.loginKeys(username, ip)...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// CheckRefresh counts a refresh attempt for the session and rejects it once
// the window budget is spent. Check and increment are one operation here;
// every refresh call costs budget whether or not it succeeds.
func (l *Limiter) CheckRefresh(ctx context.Context, sessionID string) error {
	if !l.cfg.EnableRefreshThrottle {
		return nil
	}

	count, err := l.bump(ctx, refreshKey(sessionID), l.cfg.RefreshCooldownDuration)
	if err != nil {
		return err
	}
	if count > int64(l.cfg.MaxRefreshAttempts) {
		return ErrRateLimited
	}
	return nil
}

// IncrementRefresh records a refresh attempt without enforcing the limit.
func (l *Limiter) IncrementRefresh(ctx context.Context, sessionID string) error {
	if !l.cfg.EnableRefreshThrottle {
		return nil
	}

	_, err := l.bump(ctx, refreshKey(sessionID), l.cfg.RefreshCooldownDuration)
	return err
}

// GetLoginAttempts returns the current attempt counter for an identifier.
// Missing keys return zero and do not reveal account existence.
func (l *Limiter) GetLoginAttempts(ctx context.Context, username string) (int, error) {
	count, err := l.redis.Get(ctx, loginUserKey(username)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) underLimit(ctx context.Context, key string, maxAttempts int) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count > int64(maxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// bump increments a window counter, starting the window TTL on first hit.
func (l *Limiter) bump(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
