package db

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/mezonai/mnlight/logx"
	"github.com/redis/go-redis/v9"
)

// RedisProvider implements DatabaseProvider for Redis
type RedisProvider struct {
	client *redis.Client
	ctx    context.Context
}

// convertKeyToHumanReadable keeps the textual prefix of a key and hex-encodes the
// binary remainder, so "hdr:" + 32 raw bytes becomes "hdr:<64 hex chars>"
func convertKeyToHumanReadable(key []byte) string {
	keyStr := string(key)
	idx := strings.IndexByte(keyStr, ':')
	if idx < 0 {
		return keyStr
	}
	rest := key[idx+1:]
	if isPrintableASCII(rest) {
		return keyStr
	}
	return keyStr[:idx+1] + hex.EncodeToString(rest)
}

func isPrintableASCII(b []byte) bool {
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}

// convertKeyFromHumanReadable reverses convertKeyToHumanReadable for keys returned by SCAN
func convertKeyFromHumanReadable(redisKey string, binaryPrefixes map[string]bool) []byte {
	idx := strings.IndexByte(redisKey, ':')
	if idx < 0 || !binaryPrefixes[redisKey[:idx+1]] {
		return []byte(redisKey)
	}
	raw, err := hex.DecodeString(redisKey[idx+1:])
	if err != nil {
		return []byte(redisKey)
	}
	return append([]byte(redisKey[:idx+1]), raw...)
}

// NewRedisProvider creates a new Redis provider
func NewRedisProvider(address string, db int) (DatabaseProvider, error) {
	client := redis.NewClient(&redis.Options{
		Addr: address,
		DB:   db,
	})

	ctx := context.Background()

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", address, err)
	}

	return &RedisProvider{
		client: client,
		ctx:    ctx,
	}, nil
}

// Get retrieves a value by key
func (p *RedisProvider) Get(key []byte) ([]byte, error) {
	value, err := p.client.Get(p.ctx, convertKeyToHumanReadable(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return value, nil
}

// GetBatch retrieves multiple values with a single MGET
func (p *RedisProvider) GetBatch(keys [][]byte) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return result, nil
	}
	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = convertKeyToHumanReadable(k)
	}
	values, err := p.client.MGet(p.ctx, redisKeys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		if s, ok := v.(string); ok {
			result[string(keys[i])] = []byte(s)
		}
	}
	return result, nil
}

// Put stores a key-value pair
func (p *RedisProvider) Put(key, value []byte) error {
	redisKey := convertKeyToHumanReadable(key)
	logx.Debug("REDIS", "Put key:", redisKey, " value length:", len(value))
	return p.client.Set(p.ctx, redisKey, value, 0).Err()
}

// Delete removes a key-value pair
func (p *RedisProvider) Delete(key []byte) error {
	return p.client.Del(p.ctx, convertKeyToHumanReadable(key)).Err()
}

// Has checks if a key exists
func (p *RedisProvider) Has(key []byte) (bool, error) {
	count, err := p.client.Exists(p.ctx, convertKeyToHumanReadable(key)).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Close closes the database connection
func (p *RedisProvider) Close() error {
	return p.client.Close()
}

// Batch returns a new batch for atomic operations
func (p *RedisProvider) Batch() DatabaseBatch {
	return &RedisBatch{
		client: p.client,
		ctx:    p.ctx,
		pipe:   p.client.TxPipeline(),
	}
}

// IteratePrefix implements IterableProvider for Redis using SCAN
func (p *RedisProvider) IteratePrefix(prefix []byte, fn func(key, value []byte) bool) error {
	pattern := convertKeyToHumanReadable(prefix) + "*"
	binaryPrefixes := map[string]bool{}
	if idx := strings.IndexByte(string(prefix), ':'); idx >= 0 {
		binaryPrefixes[string(prefix[:idx+1])] = true
	}

	var cursor uint64
	for {
		keys, newCursor, err := p.client.Scan(p.ctx, cursor, pattern, 1000).Result()
		if err != nil {
			return err
		}
		cursor = newCursor
		for _, k := range keys {
			val, err := p.client.Get(p.ctx, k).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				return err
			}
			if !fn(convertKeyFromHumanReadable(k, binaryPrefixes), val) {
				return nil
			}
		}
		if cursor == 0 {
			break
		}
	}
	return nil
}

// RedisBatch implements DatabaseBatch for Redis as a MULTI/EXEC pipeline
type RedisBatch struct {
	client *redis.Client
	ctx    context.Context
	pipe   redis.Pipeliner
}

// Put adds a key-value pair to the batch
func (b *RedisBatch) Put(key, value []byte) {
	b.pipe.Set(b.ctx, convertKeyToHumanReadable(key), value, 0)
}

// Delete adds a deletion to the batch
func (b *RedisBatch) Delete(key []byte) {
	b.pipe.Del(b.ctx, convertKeyToHumanReadable(key))
}

// Write commits all operations in the batch
func (b *RedisBatch) Write() error {
	_, err := b.pipe.Exec(b.ctx)
	return err
}

// Reset clears the batch
func (b *RedisBatch) Reset() {
	b.pipe.Discard()
	b.pipe = b.client.TxPipeline()
}

// Close releases batch resources
func (b *RedisBatch) Close() {
	b.pipe.Discard()
}
