package kv

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/starford/quire/internal/apperr"
)

const defaultRedisNamespace = "quire:"

// Redis implements Store on Redis strings. Every key is stored under the
// configured namespace.
type Redis struct {
	client redis.UniversalClient
	ns     string
}

// OpenRedis connects to Redis and verifies the connection.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("kv: ping redis: %w", err)
	}
	return NewRedis(client, cfg.Namespace), nil
}

// NewRedis wraps an existing client.
func NewRedis(client redis.UniversalClient, namespace string) *Redis {
	if namespace == "" {
		namespace = defaultRedisNamespace
	}
	return &Redis{client: client, ns: namespace}
}

// Get returns the value stored at key.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, r.ns+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv: get %s: %w", key, err)
	}
	return value, nil
}

// Put stores value at key without expiry.
func (r *Redis) Put(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.ns+key, value, 0).Err(); err != nil {
		return fmt.Errorf("kv: put %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.ns+key).Err(); err != nil {
		return fmt.Errorf("kv: delete %s: %w", key, err)
	}
	return nil
}

// Keys scans for every key starting with prefix.
func (r *Redis) Keys(ctx context.Context, prefix string) ([]string, error) {
	out := []string{}
	iter := r.client.Scan(ctx, 0, escapeGlob(r.ns+prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		out = append(out, strings.TrimPrefix(iter.Val(), r.ns))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("kv: keys: %w", err)
	}
	slices.Sort(out)
	// SCAN may return a key more than once.
	return slices.Compact(out), nil
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func escapeGlob(s string) string {
	return strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`).Replace(s)
}
