package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"FundPulse/internal/domain/models"
)

// RedisMirror write-throughs stored quotes into a shared Redis instance so
// sibling processes see fresh data without re-fetching. It is strictly a
// mirror: the file snapshot stays the source of truth for restarts.
type RedisMirror struct {
	client *redis.Client
	prefix string
}

// NewRedisMirror connects and pings the Redis instance.
func NewRedisMirror(addr, password string, db int, prefix string) (*RedisMirror, error) {
	if prefix == "" {
		prefix = "fundpulse"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisMirror{client: client, prefix: prefix}, nil
}

// Client returns the underlying redis client (shared with the redis job lock).
func (m *RedisMirror) Client() *redis.Client {
	return m.client
}

func (m *RedisMirror) Put(ctx context.Context, q *models.Quote) error {
	b, err := json.Marshal(q)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("%s:quote:%s", m.prefix, q.Symbol)
	return m.client.Set(ctx, key, b, 0).Err()
}

// Get reads a mirrored quote; used by read-only siblings.
func (m *RedisMirror) Get(ctx context.Context, symbol string) (*models.Quote, error) {
	key := fmt.Sprintf("%s:quote:%s", m.prefix, symbol)
	b, err := m.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	var q models.Quote
	if err := json.Unmarshal(b, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (m *RedisMirror) Close() error {
	return m.client.Close()
}
