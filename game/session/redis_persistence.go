package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wricardo/shapegrid/game/service"
)

const defaultRedisPrefix = "shapegrid:session:"

// RedisPersistence implements SessionPersistence on Redis. Each session is
// a JSON value; a sorted set indexes ids by last update time.
type RedisPersistence struct {
	client        *redis.Client
	configManager service.ConfigManager
	prefix        string
	ttl           time.Duration
	timeout       time.Duration
}

// RedisOption configures a RedisPersistence.
type RedisOption func(*RedisPersistence)

// WithTTL expires stored sessions after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *RedisPersistence) {
		r.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(r *RedisPersistence) {
		r.prefix = prefix
	}
}

// NewRedisPersistence connects to addr.
func NewRedisPersistence(addr string, configManager service.ConfigManager, opts ...RedisOption) *RedisPersistence {
	client := redis.NewClient(&redis.Options{Addr: addr})
	return NewRedisPersistenceFromClient(client, configManager, opts...)
}

// NewRedisPersistenceFromClient uses an existing client.
func NewRedisPersistenceFromClient(client *redis.Client, configManager service.ConfigManager, opts ...RedisOption) *RedisPersistence {
	r := &RedisPersistence{
		client:        client,
		configManager: configManager,
		prefix:        defaultRedisPrefix,
		timeout:       5 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisPersistence) key(id string) string {
	return r.prefix + strings.ToLower(id)
}

func (r *RedisPersistence) indexKey() string {
	return r.prefix + "index"
}

func (r *RedisPersistence) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}

// Ping checks the connection.
func (r *RedisPersistence) Ping() error {
	ctx, cancel := r.ctx()
	defer cancel()
	return r.client.Ping(ctx).Err()
}

// Save persists a session with its index entry in one pipeline.
func (r *RedisPersistence) Save(session *service.Session) error {
	data, err := encodeSession(session)
	if err != nil {
		return err
	}

	ctx, cancel := r.ctx()
	defer cancel()

	id := strings.ToLower(session.ID)
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(id), data, r.ttl)
	pipe.ZAdd(ctx, r.indexKey(), redis.Z{
		Score:  float64(time.Now().Unix()),
		Member: id,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session to redis: %w", err)
	}
	return nil
}

// Load retrieves a session from Redis
func (r *RedisPersistence) Load(id string) (*service.Session, error) {
	ctx, cancel := r.ctx()
	defer cancel()

	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session from redis: %w", err)
	}

	return decodeSession(data, r.configManager)
}

// Delete removes a session and its index entry
func (r *RedisPersistence) Delete(id string) error {
	ctx, cancel := r.ctx()
	defer cancel()

	removed, err := r.client.Del(ctx, r.key(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete session from redis: %w", err)
	}
	if err := r.client.ZRem(ctx, r.indexKey(), strings.ToLower(id)).Err(); err != nil {
		return fmt.Errorf("failed to update redis index: %w", err)
	}
	if removed == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListAll returns stored ids, oldest update first. Index entries whose value
// has expired are pruned on the way.
func (r *RedisPersistence) ListAll() ([]string, error) {
	ctx, cancel := r.ctx()
	defer cancel()

	if r.ttl > 0 {
		cutoff := time.Now().Add(-r.ttl).Unix()
		err := r.client.ZRemRangeByScore(ctx, r.indexKey(), "-inf", fmt.Sprintf("(%d", cutoff)).Err()
		if err != nil {
			return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
		}
	}

	ids, err := r.client.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return ids, nil
}

// Exists checks if a session is stored
func (r *RedisPersistence) Exists(id string) bool {
	ctx, cancel := r.ctx()
	defer cancel()

	n, err := r.client.Exists(ctx, r.key(id)).Result()
	return err == nil && n > 0
}

// Close closes the redis client.
func (r *RedisPersistence) Close() error {
	return r.client.Close()
}
