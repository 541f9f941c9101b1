// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache remembers which papers have already been analyzed so the
// reasoning service is not called twice for the same content. Entries are
// keyed by paper ID and validated against a content hash and a TTL.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/research-agent/internal/logging"
	"github.com/pdiddy/research-agent/pkg/types"
)

// DefaultTTL is used when the configured TTL is not positive.
const DefaultTTL = 7 * 24 * time.Hour

const (
	maxTitleLen      = 100
	maxCategoryCount = 3
)

// Cache is the analysis cache. Expired or invalid entries are purged
// lazily on access; EvictExpired sweeps them eagerly.
type Cache struct {
	store Store
	ttl   time.Duration
	log   logrus.FieldLogger
	now   func() time.Time

	mu sync.Mutex
}

// EvictionReport summarizes a cleanup run.
type EvictionReport struct {
	Removed   int `json:"removed_entries" yaml:"removed_entries"`
	Remaining int `json:"remaining_entries" yaml:"remaining_entries"`
}

// Stats describes the cache contents.
type Stats struct {
	Count     int           `json:"total_cached_papers" yaml:"total_cached_papers"`
	Recent24h int           `json:"recent_analyses_24h" yaml:"recent_analyses_24h"`
	SizeBytes int64         `json:"size_bytes" yaml:"size_bytes"`
	TTL       time.Duration `json:"ttl" yaml:"ttl"`
	Location  string        `json:"location" yaml:"location"`
}

// New wraps store with TTL and content-hash validation. A nil log
// discards output.
func New(store Store, ttl time.Duration, log logrus.FieldLogger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Cache{store: store, ttl: ttl, log: log, now: time.Now}
}

// SetClock replaces the time source used for TTL checks.
func (c *Cache) SetClock(now func() time.Time) { c.now = now }

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Close closes the underlying store.
func (c *Cache) Close() error { return c.store.Close() }

// ContentHash is the MD5 hex digest of title, abstract and the updated
// timestamp. A new arXiv revision changes the hash.
func ContentHash(p types.Paper) string {
	sum := md5.Sum([]byte(p.Title + "|" + p.Abstract + "|" + p.Updated.UTC().Format(time.RFC3339)))
	return hex.EncodeToString(sum[:])
}

// IsAnalyzed reports whether p has a live entry whose hash matches the
// paper's current content. Stale, expired, or invalid entries are purged.
func (c *Cache) IsAnalyzed(ctx context.Context, p types.Paper) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isAnalyzedLocked(ctx, p)
}

func (c *Cache) isAnalyzedLocked(ctx context.Context, p types.Paper) bool {
	e, ok := c.liveEntryLocked(ctx, p.ID)
	if !ok {
		return false
	}
	if e.ContentHash != ContentHash(p) {
		c.log.WithField("paper", p.ID).Info("paper content changed, will re-analyze")
		c.purgeLocked(ctx, p.ID)
		return false
	}
	return true
}

// liveEntryLocked loads the entry for id, purging it when the timestamp is
// invalid or past the TTL.
func (c *Cache) liveEntryLocked(ctx context.Context, id string) (types.CacheEntry, bool) {
	e, err := c.store.Entry(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.log.WithError(err).WithField("paper", id).Warn("cache lookup failed")
		}
		return types.CacheEntry{}, false
	}
	if e.AnalyzedAt.IsZero() {
		c.log.WithField("paper", id).Warn("invalid cache timestamp, purging entry")
		c.purgeLocked(ctx, id)
		return types.CacheEntry{}, false
	}
	if c.expired(e) {
		c.log.WithField("paper", id).Info("cached analysis expired, will re-analyze")
		c.purgeLocked(ctx, id)
		return types.CacheEntry{}, false
	}
	return e, true
}

func (c *Cache) expired(e types.CacheEntry) bool {
	return !e.AnalyzedAt.After(c.now().Add(-c.ttl))
}

// Get returns the cached analysis for id. A missing or undecodable blob
// behind an existing entry purges the entry and reports absent.
func (c *Cache) Get(ctx context.Context, id string) (types.Analysis, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(ctx, id)
}

func (c *Cache) getLocked(ctx context.Context, id string) (types.Analysis, bool) {
	if _, ok := c.liveEntryLocked(ctx, id); !ok {
		return types.Analysis{}, false
	}
	a, err := c.store.LoadAnalysis(ctx, id)
	if err != nil {
		c.log.WithError(err).WithField("paper", id).Warn("cached analysis unreadable, purging entry")
		c.purgeLocked(ctx, id)
		return types.Analysis{}, false
	}
	return a, true
}

// GetMany returns the cached analyses for ids in order, skipping absent ones.
func (c *Cache) GetMany(ctx context.Context, ids []string) []types.Analysis {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []types.Analysis
	for _, id := range ids {
		if a, ok := c.getLocked(ctx, id); ok {
			out = append(out, a)
		}
	}
	return out
}

// Put stores p and a. Blobs are written before the index entry, so a crash
// in between leaves only harmless orphans.
func (c *Cache) Put(ctx context.Context, p types.Paper, a types.Analysis) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if a.PaperID == "" {
		a.PaperID = p.ID
	}
	if err := c.store.SavePaper(ctx, p); err != nil {
		return err
	}
	if err := c.store.SaveAnalysis(ctx, a); err != nil {
		return err
	}

	cats := p.Categories
	if len(cats) > maxCategoryCount {
		cats = cats[:maxCategoryCount]
	}
	entry := types.CacheEntry{
		PaperID:           p.ID,
		ContentHash:       ContentHash(p),
		AnalyzedAt:        c.now().UTC(),
		Title:             truncate(p.Title, maxTitleLen),
		SignificanceScore: a.SignificanceScore,
		Categories:        append([]string(nil), cats...),
	}
	if err := c.store.SaveEntry(ctx, entry); err != nil {
		return err
	}
	c.log.WithField("paper", p.ID).Debug("cached analysis")
	return nil
}

// FilterNew returns the papers that are not analyzed, in input order.
func (c *Cache) FilterNew(ctx context.Context, papers []types.Paper) []types.Paper {
	c.mu.Lock()
	defer c.mu.Unlock()

	fresh := make([]types.Paper, 0, len(papers))
	for _, p := range papers {
		if !c.isAnalyzedLocked(ctx, p) {
			fresh = append(fresh, p)
		}
	}
	c.log.WithFields(logrus.Fields{
		"new":    len(fresh),
		"cached": len(papers) - len(fresh),
	}).Info("filtered analyzed papers")
	return fresh
}

// Evict removes the entry and blobs for id. Missing data is not an error.
func (c *Cache) Evict(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Delete(ctx, id)
}

// EvictExpired removes every expired or invalid entry.
func (c *Cache) EvictExpired(ctx context.Context) (EvictionReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.store.Entries(ctx)
	if err != nil {
		return EvictionReport{}, err
	}
	var report EvictionReport
	for _, e := range entries {
		if e.AnalyzedAt.IsZero() || c.expired(e) {
			if err := c.store.Delete(ctx, e.PaperID); err != nil {
				return report, err
			}
			report.Removed++
			continue
		}
		report.Remaining++
	}
	if report.Removed > 0 {
		c.log.WithField("removed", report.Removed).Info("cleaned expired cache entries")
	}
	return report, nil
}

// Clear removes every entry and blob.
func (c *Cache) Clear(ctx context.Context) (EvictionReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.store.Entries(ctx)
	if err != nil {
		return EvictionReport{}, err
	}
	if err := c.store.Clear(ctx); err != nil {
		return EvictionReport{}, err
	}
	c.log.WithField("removed", len(entries)).Info("cache cleared")
	return EvictionReport{Removed: len(entries)}, nil
}

// Entries lists every index record, expired ones included.
func (c *Cache) Entries(ctx context.Context) ([]types.CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Entries(ctx)
}

// Stats reports entry counts and storage size.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.store.Entries(ctx)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{Count: len(entries), TTL: c.ttl, Location: c.store.Location()}
	cutoff := c.now().Add(-24 * time.Hour)
	for _, e := range entries {
		if e.AnalyzedAt.After(cutoff) {
			st.Recent24h++
		}
	}
	size, err := c.store.Size(ctx)
	if err != nil {
		c.log.WithError(err).Warn("measuring cache size")
	}
	st.SizeBytes = size
	return st, nil
}

func (c *Cache) purgeLocked(ctx context.Context, id string) {
	if err := c.store.Delete(ctx, id); err != nil {
		c.log.WithError(err).WithField("paper", id).Warn("purging cache entry")
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
