package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no session exists for the given id.
var ErrNotFound = errors.New("session not found")

// ErrRedisUnavailable wraps transport-level Redis failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Store is the session persistence contract consumed by the engine.
// Create mints a fresh session id for the user. End reports whether a
// session existed; ending an absent session is not an error. Get returns
// [ErrNotFound] (possibly wrapped) when the session is missing or expired.
type Store interface {
	Create(ctx context.Context, userID uuid.UUID) (Session, error)
	Get(ctx context.Context, sessionID uuid.UUID) (Session, error)
	End(ctx context.Context, sessionID uuid.UUID) (bool, error)
}

// RedisStore is the reference [Store] on Redis: one binary record per
// session under a key prefix, TTL-bound, plus a per-user index set so all
// of a user's sessions can be ended at once.
type RedisStore struct {
	redis    redis.UniversalClient
	prefix   string
	lifetime time.Duration
	sliding  bool
	now      func() time.Time
}

const minSlidingTTL = time.Second

// NewRedisStore creates a [RedisStore]. prefix namespaces the Redis keys,
// lifetime bounds every session, and sliding renews the TTL on each Get up
// to the absolute lifetime.
func NewRedisStore(client redis.UniversalClient, prefix string, lifetime time.Duration, sliding bool) *RedisStore {
	return &RedisStore{
		redis:    client,
		prefix:   prefix,
		lifetime: lifetime,
		sliding:  sliding,
		now:      time.Now,
	}
}

func (s *RedisStore) key(sessionID uuid.UUID) string {
	return s.prefix + ":" + sessionID.String()
}

func (s *RedisStore) userKey(userID uuid.UUID) string {
	return s.prefix + ":u:" + userID.String()
}

// Create mints a session for userID and persists it with the configured
// lifetime.
func (s *RedisStore) Create(ctx context.Context, userID uuid.UUID) (Session, error) {
	sess, err := New(uuid.New(), userID)
	if err != nil {
		return Session{}, err
	}

	now := s.now()
	sess.CreatedAt = now.Unix()
	sess.ExpiresAt = now.Add(s.lifetime).Unix()

	data, err := Encode(sess)
	if err != nil {
		return Session{}, err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sess.SessionID), data, s.lifetime)
		pipe.SAdd(ctx, s.userKey(userID), sess.SessionID.String())
		pipe.Expire(ctx, s.userKey(userID), s.lifetime)
		return nil
	})
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return sess, nil
}

// Get fetches a session by id. Expired records are deleted lazily and
// reported as [ErrNotFound]. With sliding expiration the TTL is renewed up
// to the absolute lifetime recorded at creation.
func (s *RedisStore) Get(ctx context.Context, sessionID uuid.UUID) (Session, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return Session{}, err
	}

	now := s.now()
	remaining := time.Unix(sess.ExpiresAt, 0).Sub(now)
	if remaining <= 0 {
		if _, err := s.End(ctx, sessionID); err != nil {
			return Session{}, err
		}
		return Session{}, ErrNotFound
	}

	if s.sliding {
		nextTTL := remaining
		if nextTTL < minSlidingTTL {
			nextTTL = minSlidingTTL
		}
		if err := s.redis.Expire(ctx, s.key(sessionID), nextTTL).Err(); err != nil {
			return Session{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return sess, nil
}

// End removes a session and its user-index entry. It reports whether the
// session existed; a second End on the same id returns false, nil.
func (s *RedisStore) End(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		// Corrupt record: delete the key anyway so the id cannot linger.
		if delErr := s.redis.Del(ctx, s.key(sessionID)).Err(); delErr != nil {
			return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, delErr)
		}
		return true, nil
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(sessionID))
		pipe.SRem(ctx, s.userKey(sess.UserID), sessionID.String())
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return true, nil
}

// EndAllForUser removes every tracked session for a user. The read and the
// delete are separate round trips, so a session created in between survives;
// it expires on its own TTL.
func (s *RedisStore) EndAllForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	ids, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		sid, parseErr := uuid.Parse(id)
		if parseErr != nil {
			continue
		}
		keys = append(keys, s.key(sid))
	}
	keys = append(keys, s.userKey(userID))

	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return len(ids), nil
}

// ActiveSessionCount returns the number of tracked session ids for a user.
func (s *RedisStore) ActiveSessionCount(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := s.redis.SCard(ctx, s.userKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(count), nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
