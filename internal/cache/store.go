// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/research-agent/pkg/types"
)

// ErrNotFound is returned by a Store when an entry or blob does not exist.
var ErrNotFound = errors.New("cache: not found")

// Store persists the three durable parts of the cache: the metadata index,
// serialized papers, and serialized analyses, all keyed by paper ID.
//
// Delete and Clear are best-effort: removing something already absent is
// not an error. Index writes must be durable before the call returns.
type Store interface {
	Entries(ctx context.Context) ([]types.CacheEntry, error)
	Entry(ctx context.Context, id string) (types.CacheEntry, error)
	SaveEntry(ctx context.Context, e types.CacheEntry) error

	SavePaper(ctx context.Context, p types.Paper) error
	LoadPaper(ctx context.Context, id string) (types.Paper, error)
	SaveAnalysis(ctx context.Context, a types.Analysis) error
	LoadAnalysis(ctx context.Context, id string) (types.Analysis, error)

	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error

	// Size reports the approximate bytes held by the store.
	Size(ctx context.Context) (int64, error)
	// Location describes where the data lives (directory, DSN, URL).
	Location() string
	Close() error
}

// Open creates the Store selected by cfg.Backend.
func Open(cfg types.CacheConfig, log logrus.FieldLogger) (Store, error) {
	switch cfg.Backend {
	case types.CacheFile, "":
		return NewFileStore(cfg.Dir)
	case types.CacheSQLite:
		return NewSQLiteStore(cfg.Dir)
	case types.CacheRedis:
		return NewRedisStore(cfg.RedisURL, cfg.RedisPrefix, log)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// blobName maps a paper ID to a file-system safe name. Old-style arXiv IDs
// such as "hep-th/9901001v1" contain a slash.
func blobName(id string) string {
	return strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(id)
}
