// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/research-agent/internal/logging"
	"github.com/pdiddy/research-agent/pkg/types"
)

const defaultRedisPrefix = "research-agent"

// RedisStore keeps the index in one hash (<prefix>:index, field = paper ID)
// and each blob under its own string key.
type RedisStore struct {
	client *redis.Client
	prefix string
	url    string
	log    logrus.FieldLogger
}

// NewRedisStore connects to rawURL (redis://...) and verifies the
// connection with PING.
func NewRedisStore(rawURL, prefix string, log logrus.FieldLogger) (*RedisStore, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	if log == nil {
		log = logging.Discard()
	}

	s := &RedisStore{
		client: redis.NewClient(opt),
		prefix: prefix,
		url:    opt.Addr,
		log:    log,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		s.client.Close()
		return nil, fmt.Errorf("connection to Redis failed: %w", err)
	}
	log.WithFields(logrus.Fields{"addr": opt.Addr, "prefix": prefix}).Info("redis cache connected")
	return s, nil
}

func (s *RedisStore) indexKey() string { return s.prefix + ":index" }
func (s *RedisStore) paperKey(id string) string { return s.prefix + ":paper:" + id }
func (s *RedisStore) analysisKey(id string) string {
	return s.prefix + ":analysis:" + id
}

func (s *RedisStore) Entries(ctx context.Context) ([]types.CacheEntry, error) {
	all, err := s.client.HGetAll(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("reading index: %w", err)
	}
	out := make([]types.CacheEntry, 0, len(all))
	for id, raw := range all {
		out = append(out, decodeEntry(id, raw))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaperID < out[j].PaperID })
	return out, nil
}

func (s *RedisStore) Entry(ctx context.Context, id string) (types.CacheEntry, error) {
	raw, err := s.client.HGet(ctx, s.indexKey(), id).Result()
	if errors.Is(err, redis.Nil) {
		return types.CacheEntry{}, ErrNotFound
	}
	if err != nil {
		return types.CacheEntry{}, fmt.Errorf("reading entry %s: %w", id, err)
	}
	return decodeEntry(id, raw), nil
}

// decodeEntry returns a zero-timestamp entry when raw is malformed.
func decodeEntry(id, raw string) types.CacheEntry {
	var e types.CacheEntry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		e = types.CacheEntry{}
	}
	e.PaperID = id
	return e
}

func (s *RedisStore) SaveEntry(ctx context.Context, e types.CacheEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding entry %s: %w", e.PaperID, err)
	}
	if err := s.client.HSet(ctx, s.indexKey(), e.PaperID, data).Err(); err != nil {
		return fmt.Errorf("writing entry %s: %w", e.PaperID, err)
	}
	return nil
}

func (s *RedisStore) SavePaper(ctx context.Context, p types.Paper) error {
	return s.set(ctx, s.paperKey(p.ID), p)
}

func (s *RedisStore) LoadPaper(ctx context.Context, id string) (types.Paper, error) {
	var p types.Paper
	err := s.get(ctx, s.paperKey(id), &p)
	return p, err
}

func (s *RedisStore) SaveAnalysis(ctx context.Context, a types.Analysis) error {
	return s.set(ctx, s.analysisKey(a.PaperID), a)
}

func (s *RedisStore) LoadAnalysis(ctx context.Context, id string) (types.Analysis, error) {
	var a types.Analysis
	err := s.get(ctx, s.analysisKey(id), &a)
	return a, err
}

func (s *RedisStore) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) get(ctx context.Context, key string, v any) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, s.indexKey(), id)
		pipe.Del(ctx, s.paperKey(id), s.analysisKey(id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting %s: %w", id, err)
	}
	return nil
}

// Clear deletes every key under the prefix.
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clearing keys: %w", err)
	}
	return nil
}

// Size sums the stored value lengths of indexed blobs.
func (s *RedisStore) Size(ctx context.Context) (int64, error) {
	entries, err := s.Entries(ctx)
	if err != nil {
		return 0, err
	}
	cmds := make([]*redis.IntCmd, 0, 2*len(entries))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, e := range entries {
			cmds = append(cmds,
				pipe.StrLen(ctx, s.paperKey(e.PaperID)),
				pipe.StrLen(ctx, s.analysisKey(e.PaperID)))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("measuring blobs: %w", err)
	}
	var total int64
	for _, c := range cmds {
		total += c.Val()
	}
	return total, nil
}

func (s *RedisStore) Location() string { return "redis://" + s.url + "/" + s.prefix }

func (s *RedisStore) Close() error {
	s.log.Info("closing redis cache")
	return s.client.Close()
}
