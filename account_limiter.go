package trackd

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var (
	errAccountRateLimited      = errors.New("account rate limited")
	errAccountRedisUnavailable = errors.New("account redis unavailable")
)

// accountCreationLimiter throttles signups per identifier and per source IP
// using fixed Redis windows, independent of the login limiter.
type accountCreationLimiter struct {
	redis *redis.Client
	cfg   AccountConfig
}

func newAccountCreationLimiter(redisClient *redis.Client, cfg AccountConfig) *accountCreationLimiter {
	return &accountCreationLimiter{
		redis: redisClient,
		cfg:   cfg,
	}
}

// Enforce counts this attempt against every enabled throttle dimension.
// The identifier throttle runs first so a blocked identifier does not also
// consume IP budget.
func (l *accountCreationLimiter) Enforce(ctx context.Context, identifier, ip string) error {
	if l.cfg.EnableIdentifierThrottle {
		if err := l.enforceKey(ctx, accountIdentifierKey(identifier)); err != nil {
			return err
		}
	}

	if l.cfg.EnableIPThrottle && ip != "" {
		if err := l.enforceKey(ctx, accountIPKey(ip)); err != nil {
			return err
		}
	}

	return nil
}

// enforceKey is INCR-then-EXPIRE: the key's TTL starts on the first attempt
// in a window and is never extended by later attempts.
func (l *accountCreationLimiter) enforceKey(ctx context.Context, key string) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", errAccountRedisUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.cfg.AccountCreationCooldown).Err(); err != nil {
			return fmt.Errorf("%w: %v", errAccountRedisUnavailable, err)
		}
	}

	if count > int64(l.cfg.AccountCreationMaxAttempts) {
		return errAccountRateLimited
	}

	return nil
}

func accountIdentifierKey(identifier string) string {
	return "aca:" + identifier
}

func accountIPKey(ip string) string {
	return "acaip:" + ip
}
