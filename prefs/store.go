package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is an exported constant or variable used by the traceability engine.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Store persists preference documents in Redis, one JSON value per user.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewStore creates a preference [Store] backed by the given Redis client.
// prefix sets the Redis key namespace; ttl of zero keeps documents forever.
func NewStore(redis redis.UniversalClient, prefix string, ttl time.Duration) *Store {
	return &Store{
		redis:  redis,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *Store) key(userID string) string {
	return s.prefix + ":" + userID
}

// Get returns the stored preferences for a user, or [Defaults] when the
// user has never saved any.
func (s *Store) Get(ctx context.Context, userID string) (Preferences, error) {
	data, err := s.redis.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Defaults(), nil
		}
		return Preferences{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var p Preferences
	if err := json.Unmarshal(data, &p); err != nil {
		// A corrupt document behaves like an absent one.
		return Defaults(), nil
	}
	return p, nil
}

// Put validates and stores a full preference document, stamping UpdatedAt.
// Last write wins.
func (s *Store) Put(ctx context.Context, userID string, p Preferences) (Preferences, error) {
	if err := p.Validate(); err != nil {
		return Preferences{}, err
	}
	p.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(p)
	if err != nil {
		return Preferences{}, ErrInvalid
	}
	if err := s.redis.Set(ctx, s.key(userID), data, s.ttl).Err(); err != nil {
		return Preferences{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return p, nil
}

// Patch applies a partial update on top of the stored document and writes
// the merged result back.
func (s *Store) Patch(ctx context.Context, userID string, patch Patch) (Preferences, error) {
	current, err := s.Get(ctx, userID)
	if err != nil {
		return Preferences{}, err
	}
	return s.Put(ctx, userID, current.Apply(patch))
}

// Delete resets a user's preferences to defaults by removing the document.
func (s *Store) Delete(ctx context.Context, userID string) error {
	if err := s.redis.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
