// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisIdemStore backs the idempotency ledger with Redis. SETNX gives the
// atomic first-writer-wins claim across processes.
type RedisIdemStore struct {
	client *redis.Client

	// TTL bounds how long completed records stay around; zero means forever.
	TTL time.Duration
}

// NewRedisIdemStore connects to Redis and verifies the connection.
func NewRedisIdemStore(addr string) (*RedisIdemStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return &RedisIdemStore{client: client}, nil
}

func (s *RedisIdemStore) Close() error { return s.client.Close() }

func idemKey(key string) string { return "idem:" + key }

func (s *RedisIdemStore) Claim(ctx context.Context, key string) (IdemRecord, bool, error) {
	rec := IdemRecord{Key: key, State: IdemPending, UpdatedAt: time.Now()}
	buf, err := json.Marshal(rec)
	if err != nil {
		return IdemRecord{}, false, err
	}

	claimed, err := s.client.SetNX(ctx, idemKey(key), buf, s.TTL).Result()
	if err != nil {
		return IdemRecord{}, false, err
	}
	if claimed {
		return rec, true, nil
	}

	existing, ok, err := s.Get(ctx, key)
	if err != nil {
		return IdemRecord{}, false, err
	}
	if !ok {
		// The prior claim expired between SETNX and GET; claim again.
		return s.Claim(ctx, key)
	}
	return existing, false, nil
}

func (s *RedisIdemStore) Complete(ctx context.Context, key, referenceID, outcome string) error {
	rec := IdemRecord{
		Key:         key,
		State:       IdemSucceeded,
		ReferenceID: referenceID,
		Outcome:     outcome,
		UpdatedAt:   time.Now(),
	}
	buf, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, idemKey(key), buf, s.TTL).Err()
}

func (s *RedisIdemStore) Release(ctx context.Context, key string) error {
	rec, ok, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok || rec.State != IdemPending {
		return nil
	}
	return s.client.Del(ctx, idemKey(key)).Err()
}

func (s *RedisIdemStore) Get(ctx context.Context, key string) (IdemRecord, bool, error) {
	val, err := s.client.Get(ctx, idemKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return IdemRecord{}, false, nil
	}
	if err != nil {
		return IdemRecord{}, false, err
	}
	var rec IdemRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return IdemRecord{}, false, err
	}
	return rec, true, nil
}

var _ IdempotencyStore = (*RedisIdemStore)(nil)
