package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgallion1/ubreader/internal/doctree"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ubreader:doc:"

// Redis is a Cache backed by a Redis server. Documents are stored as JSON.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	TTL      time.Duration
}

// NewRedis connects to Redis and checks the connection with a PING.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		PoolSize: opts.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	return &Redis{client: client, ttl: opts.TTL}, nil
}

func redisKey(key string) string {
	return keyPrefix + key
}

func (r *Redis) Get(ctx context.Context, key string) (*doctree.TransformedDocument, bool, error) {
	data, err := r.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, false, fmt.Errorf("decode cached document %s: %w", key, err)
	}
	return doc, true, nil
}

// decodeDocument reverses json.Marshal. Numbers in Metadata.Extra come back
// as int when integral and float64 otherwise, matching what a fresh
// transformation produces.
func decodeDocument(data []byte) (*doctree.TransformedDocument, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc doctree.TransformedDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	for k, v := range doc.Metadata.Extra {
		doc.Metadata.Extra[k] = restoreNumbers(v)
	}
	return &doc, nil
}

func restoreNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n)
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		for k, e := range x {
			x[k] = restoreNumbers(e)
		}
	case []any:
		for i, e := range x {
			x[i] = restoreNumbers(e)
		}
	}
	return v
}

func (r *Redis) Set(ctx context.Context, key string, doc *doctree.TransformedDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", key, err)
	}
	if err := r.client.Set(ctx, redisKey(key), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, redisKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
