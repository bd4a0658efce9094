package sink

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis appends records to a list per kind (<prefix>:<kind>s) and also
// stores each record under <prefix>:<kind>:<key> for lookup by id.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to addr and verifies the connection with a PING.
func NewRedis(ctx context.Context, addr, password string, db int, prefix string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	if prefix == "" {
		prefix = "bootsweep"
	}
	return &Redis{client: client, prefix: prefix}, nil
}

func (s *Redis) ListKey(kind Kind) string {
	return fmt.Sprintf("%s:%ss", s.prefix, kind)
}

func (s *Redis) RecordKey(kind Kind, key string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, kind, key)
}

func (s *Redis) Write(ctx context.Context, rec Record) error {
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.ListKey(rec.Kind), rec.Payload)
	if rec.Key != "" {
		pipe.Set(ctx, s.RecordKey(rec.Kind, rec.Key), rec.Payload, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pushing %s record %s to redis: %w", rec.Kind, rec.Key, err)
	}
	return nil
}

func (s *Redis) Close() error {
	return s.client.Close()
}
