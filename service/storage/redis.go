package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Config for the Redis-backed store.
type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// Store wraps the Redis client used for session lookup and the
// presence mirror. Constructed once in main() and injected; no
// package-level singleton.
type Store struct {
	client *redis.Client
}

func New(c Config) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
		PoolSize: c.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "redis ping")
	}
	return &Store{client: rdb}, nil
}

// NewWithClient wires an existing client (tests use a miniredis or a
// fake; production goes through New).
func NewWithClient(c *redis.Client) *Store { return &Store{client: c} }

func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// ===== session store =====

// The web application writes one hash per live browser session:
// session:<tokenHash> => {user_id, user_name}. The hub only reads.
func sessionKey(tokenHash string) string { return "session:" + tokenHash }

// LookupSession resolves a hashed session token to its user identity.
// ok=false with nil error means the session does not exist.
func (s *Store) LookupSession(ctx context.Context, tokenHash string) (userID, userName string, ok bool, err error) {
	vals, err := s.client.HMGet(ctx, sessionKey(tokenHash), "user_id", "user_name").Result()
	if err != nil {
		return "", "", false, errors.Wrap(err, "session lookup")
	}
	if len(vals) < 2 || vals[0] == nil {
		return "", "", false, nil
	}
	userID, _ = vals[0].(string)
	if userID == "" {
		return "", "", false, nil
	}
	if vals[1] != nil {
		userName, _ = vals[1].(string)
	}
	return userID, userName, true, nil
}

// ===== presence mirror =====

// presence key: presence:<user>. Value is the hub node ID; the TTL
// bounds staleness if the process dies without cleaning up.
func presenceKey(user string) string { return "presence:" + user }

// PresenceOnline marks the user online and renews the TTL.
func (s *Store) PresenceOnline(ctx context.Context, user, nodeID string, ttl time.Duration) error {
	return s.client.Set(ctx, presenceKey(user), nodeID, ttl).Err()
}

// PresenceOffline actively marks the user offline (deletes the key).
func (s *Store) PresenceOffline(ctx context.Context, user string) error {
	return s.client.Del(ctx, presenceKey(user)).Err()
}

// PresenceLookup reports whether the user is online and on which node.
func (s *Store) PresenceLookup(ctx context.Context, user string) (nodeID string, online bool, err error) {
	val, err := s.client.Get(ctx, presenceKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}
