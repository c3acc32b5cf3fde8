package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store using a Redis list per session key. It is
// suitable for multi-node deployments where the file store cannot be shared.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	keys   *keyLocks
	mu     sync.RWMutex
	closed bool
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string
	// Password is the Redis password (optional).
	Password string
	// DB is the Redis database number.
	DB int
	// Namespace separates independent conversation stores sharing a server.
	Namespace string
	// SessionTTL is the session expiry duration (0 = never expire).
	SessionTTL time.Duration
	// PoolSize is the connection pool size (default: 10).
	PoolSize int
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: poolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return newRedisStore(client, cfg.Namespace, cfg.SessionTTL), nil
}

// NewRedisStoreFromClient creates a Redis store from an existing client.
// This is useful for testing with miniredis.
func NewRedisStoreFromClient(client *redis.Client, namespace string, ttl time.Duration) *RedisStore {
	return newRedisStore(client, namespace, ttl)
}

func newRedisStore(client *redis.Client, namespace string, ttl time.Duration) *RedisStore {
	if namespace == "" {
		namespace = "default"
	}
	return &RedisStore{
		client: client,
		prefix: "atelier:session:" + namespace + ":",
		ttl:    ttl,
		keys:   newKeyLocks(),
	}
}

func (r *RedisStore) listKey(key string) string {
	return r.prefix + key
}

// Load retrieves the ordered message log for a key.
func (r *RedisStore) Load(ctx context.Context, key string) ([]Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, ErrStoreClosed
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}

	return r.readAll(ctx, key)
}

// Append adds a message to the end of the log and returns the new list.
func (r *RedisStore) Append(ctx context.Context, key string, msg Message) ([]Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, ErrStoreClosed
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}

	lock := r.keys.get(key)
	lock.Lock()
	defer lock.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	lk := r.listKey(key)
	if err := r.client.RPush(ctx, lk, data).Err(); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	if r.ttl > 0 {
		_ = r.client.Expire(ctx, lk, r.ttl).Err()
	}

	return r.readAll(ctx, key)
}

// Save replaces the full log for a key.
func (r *RedisStore) Save(ctx context.Context, key string, msgs []Message) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return ErrStoreClosed
	}
	if err := validateKey(key); err != nil {
		return err
	}

	lock := r.keys.get(key)
	lock.Lock()
	defer lock.Unlock()

	lk := r.listKey(key)
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, lk)
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}
		pipe.RPush(ctx, lk, data)
	}
	if r.ttl > 0 && len(msgs) > 0 {
		pipe.Expire(ctx, lk, r.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Close releases the underlying Redis client.
func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	return r.client.Close()
}

func (r *RedisStore) readAll(ctx context.Context, key string) ([]Message, error) {
	raw, err := r.client.LRange(ctx, r.listKey(key), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Message{}, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	msgs := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("parse message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}
