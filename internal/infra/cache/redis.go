package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/BruksfildServices01/homeservices-coverage/internal/domain/coverage"
	"github.com/BruksfildServices01/homeservices-coverage/internal/metrics"
)

const keyPrefix = "coverage:worker:"

// RedisCoverageCache keeps two keys per worker: the JSON code set (with TTL)
// and a generation counter that Invalidate increments.
type RedisCoverageCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCoverageCache(client *redis.Client, ttl time.Duration) *RedisCoverageCache {
	return &RedisCoverageCache{client: client, ttl: ttl}
}

var _ coverage.Cache = (*RedisCoverageCache)(nil)

func workerKey(workerID uint) string {
	return fmt.Sprintf("%s%d", keyPrefix, workerID)
}

func genKey(workerID uint) string {
	return fmt.Sprintf("%s%d:gen", keyPrefix, workerID)
}

func (c *RedisCoverageCache) Get(ctx context.Context, workerID uint) (coverage.CacheRead, error) {
	vals, err := c.client.MGet(ctx, workerKey(workerID), genKey(workerID)).Result()
	if err != nil {
		return coverage.CacheRead{}, fmt.Errorf("redis mget: %w", err)
	}

	gen, err := parseGen(vals[1])
	if err != nil {
		return coverage.CacheRead{}, err
	}

	raw, ok := vals[0].(string)
	if !ok {
		metrics.CacheMissesTotal.Inc()
		return coverage.CacheRead{Gen: gen}, nil
	}

	var codes []string
	if err := json.Unmarshal([]byte(raw), &codes); err != nil {
		return coverage.CacheRead{}, fmt.Errorf("decode cached coverage: %w", err)
	}
	metrics.CacheHitsTotal.Inc()
	return coverage.CacheRead{Codes: codes, Hit: true, Gen: gen}, nil
}

// Set writes under WATCH on the generation key, so an Invalidate landing
// between the caller's Get and this call aborts the write.
func (c *RedisCoverageCache) Set(ctx context.Context, workerID uint, gen uint64, codes []string) (bool, error) {
	if codes == nil {
		codes = []string{}
	}
	b, err := json.Marshal(codes)
	if err != nil {
		return false, err
	}

	stored := false
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, genKey(workerID)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		cur, err := parseGen(nilIfMissing(raw, err))
		if err != nil {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, workerKey(workerID), b, c.ttl)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, genKey(workerID))

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis set: %w", err)
	}
	return stored, nil
}

func (c *RedisCoverageCache) Invalidate(ctx context.Context, workerID uint) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey(workerID))
		pipe.Del(ctx, workerKey(workerID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate: %w", err)
	}
	return nil
}

func nilIfMissing(raw string, err error) any {
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return raw
}

func parseGen(v any) (uint64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, nil
	}
	gen, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad coverage generation %q: %w", s, err)
	}
	return gen, nil
}
