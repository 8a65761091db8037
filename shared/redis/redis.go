// Package redis wraps the go-redis client for the chat-history response cache.
package redis

import (
	"context"
	"encoding/json"
	"time"

	"ai-agent-portal/backend/pkg/config"

	"github.com/redis/go-redis/v9"
)

// Nil is returned by Get when a key does not exist
var Nil = redis.Nil

type Client struct {
	client *redis.Client
}

// NewClient connects to the Redis instance named in configuration
func NewClient() *Client {
	cfg := config.Get()
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: "", // no password by default
		DB:       0,  // use default DB
	})
	return &Client{client: client}
}

// Ping verifies connectivity
func (r *Client) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// SetJSON marshals value and stores it under key with the given expiration
func (r *Client) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

// GetJSON loads key and unmarshals it into dest. Returns Nil when absent.
func (r *Client) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// Del removes the given keys
func (r *Client) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}
