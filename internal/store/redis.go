package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/guc1/domain-agent/internal/core"
)

const defaultRedisPrefix = "domainagent:session:"

// Redis stores sessions as JSON values with a sliding Redis TTL, so expiry is
// enforced by the server itself. Per-session mutation is serialized by an
// in-process keyed mutex; the backend assumes a single server process writes
// a given key space.
type Redis struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	locks  keyedMutex
}

// RedisOption configures a Redis store.
type RedisOption func(*Redis)

// WithRedisPrefix overrides the key prefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = prefix }
}

// NewRedis creates a Redis store from connection parameters.
func NewRedis(addr, password string, db int, ttl time.Duration, opts ...RedisOption) *Redis {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisFromClient(client, ttl, opts...)
}

// NewRedisFromClient creates a Redis store from an existing client.
func NewRedisFromClient(client *backend.Client, ttl time.Duration, opts ...RedisOption) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	r := &Redis{
		client: client,
		prefix: defaultRedisPrefix,
		ttl:    ttl,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) key(id string) string {
	return r.prefix + id
}

func (r *Redis) load(ctx context.Context, id string) (*core.Session, error) {
	val, err := r.client.Get(ctx, r.key(id)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, core.NewNotFound(id)
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var sess core.Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (r *Redis) save(ctx context.Context, sess *core.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(sess.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Put inserts a freshly created session.
func (r *Redis) Put(ctx context.Context, sess *core.Session) error {
	l := r.locks.acquire(sess.ID)
	defer r.locks.release(sess.ID, l)
	return r.save(ctx, sess)
}

// Get returns the stored session.
func (r *Redis) Get(ctx context.Context, id string) (*core.Session, error) {
	return r.load(ctx, id)
}

// Mutate applies fn under the session's lock; an error from fn commits
// nothing. The Redis TTL slides on successful mutation.
func (r *Redis) Mutate(ctx context.Context, id string, fn func(*core.Session) error) (*core.Session, error) {
	l := r.locks.acquire(id)
	defer r.locks.release(id, l)

	sess, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	sess.UpdatedAt = time.Now().UTC()
	if err := r.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess.Clone(), nil
}
