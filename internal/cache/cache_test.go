// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-agent/pkg/types"
)

var baseTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func samplePaper(id string) types.Paper {
	return types.Paper{
		ID:              id,
		Title:           "Paper " + id,
		Authors:         []string{"Ada Lovelace", "Alan Turing"},
		Abstract:        "We study " + id + ".",
		Categories:      []string{"cs.AI", "cs.LG", "cs.CL", "stat.ML"},
		Published:       baseTime.Add(-48 * time.Hour),
		Updated:         baseTime.Add(-24 * time.Hour),
		PDFURL:          "https://arxiv.org/pdf/" + id + ".pdf",
		ArxivURL:        "https://arxiv.org/abs/" + id,
		PrimaryCategory: "cs.AI",
	}
}

func sampleAnalysis(id string) types.Analysis {
	return types.Analysis{
		PaperID:                  id,
		RelevanceScore:           0.8,
		SignificanceScore:        0.7,
		NoveltyScore:             0.6,
		Summary:                  "A summary.",
		KeyInsights:              []string{"one", "two"},
		TechnicalDetails:         "details",
		PotentialImpact:          "impact",
		ImplementationDifficulty: "medium",
		BusinessRelevance:        "high",
		ConnectionsToOtherWork:   []string{},
		RecommendedFor:           []string{"researchers"},
		Tags:                     []string{"agents"},
	}
}

// backends returns a fresh store per backend that needs no external service.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	fileStore, err := NewFileStore(filepath.Join(t.TempDir(), "files"))
	require.NoError(t, err)
	sqliteStore, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })

	stores := map[string]Store{"file": fileStore, "sqlite": sqliteStore}
	if url := os.Getenv("RESEARCH_AGENT_TEST_REDIS_URL"); url != "" {
		redisStore, err := NewRedisStore(url, "test-"+t.Name(), nil)
		require.NoError(t, err)
		require.NoError(t, redisStore.Clear(context.Background()))
		t.Cleanup(func() {
			redisStore.Clear(context.Background())
			redisStore.Close()
		})
		stores["redis"] = redisStore
	}
	return stores
}

func forEachBackend(t *testing.T, ttl time.Duration, fn func(t *testing.T, c *Cache, clk *testClock, store Store)) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			clk := &testClock{t: baseTime}
			c := New(store, ttl, nil)
			c.SetClock(clk.now)
			fn(t, c, clk, store)
		})
	}
}

func TestPutThenGet(t *testing.T) {
	forEachBackend(t, time.Hour, func(t *testing.T, c *Cache, _ *testClock, _ Store) {
		ctx := context.Background()
		p := samplePaper("2503.00001v1")
		a := sampleAnalysis(p.ID)

		require.NoError(t, c.Put(ctx, p, a))

		assert.True(t, c.IsAnalyzed(ctx, p))
		got, ok := c.Get(ctx, p.ID)
		require.True(t, ok)
		assert.Equal(t, a, got)
	})
}

func TestPut_FillsPaperID(t *testing.T) {
	forEachBackend(t, time.Hour, func(t *testing.T, c *Cache, _ *testClock, _ Store) {
		ctx := context.Background()
		p := samplePaper("2503.00002v1")
		a := sampleAnalysis("")

		require.NoError(t, c.Put(ctx, p, a))
		got, ok := c.Get(ctx, p.ID)
		require.True(t, ok)
		assert.Equal(t, p.ID, got.PaperID)
	})
}

func TestPut_EntryMetadata(t *testing.T) {
	forEachBackend(t, time.Hour, func(t *testing.T, c *Cache, _ *testClock, store Store) {
		ctx := context.Background()
		p := samplePaper("2503.00003v1")
		p.Title = strings.Repeat("x", 150)
		require.NoError(t, c.Put(ctx, p, sampleAnalysis(p.ID)))

		e, err := store.Entry(ctx, p.ID)
		require.NoError(t, err)
		assert.Len(t, e.Title, 100)
		assert.Equal(t, []string{"cs.AI", "cs.LG", "cs.CL"}, e.Categories)
		assert.Equal(t, 0.7, e.SignificanceScore)
		assert.Equal(t, ContentHash(p), e.ContentHash)
		assert.True(t, e.AnalyzedAt.Equal(baseTime))
	})
}

func TestIsAnalyzed_ContentChangeInvalidates(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *types.Paper)
	}{
		{"title", func(p *types.Paper) { p.Title += " (revised)" }},
		{"abstract", func(p *types.Paper) { p.Abstract += " More." }},
		{"updated", func(p *types.Paper) { p.Updated = p.Updated.Add(time.Hour) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forEachBackend(t, time.Hour, func(t *testing.T, c *Cache, _ *testClock, _ Store) {
				ctx := context.Background()
				p := samplePaper("2503.00004v1")
				require.NoError(t, c.Put(ctx, p, sampleAnalysis(p.ID)))

				changed := p
				tt.mutate(&changed)
				assert.False(t, c.IsAnalyzed(ctx, changed))

				// The stale entry is purged.
				_, ok := c.Get(ctx, p.ID)
				assert.False(t, ok)
			})
		})
	}
}

func TestTTLExpiry(t *testing.T) {
	forEachBackend(t, time.Hour, func(t *testing.T, c *Cache, clk *testClock, store Store) {
		ctx := context.Background()
		p := samplePaper("2503.00005v1")
		require.NoError(t, c.Put(ctx, p, sampleAnalysis(p.ID)))

		clk.advance(2 * time.Hour)

		assert.False(t, c.IsAnalyzed(ctx, p))
		_, err := store.Entry(ctx, p.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		_, ok := c.Get(ctx, p.ID)
		assert.False(t, ok)
	})
}

func TestGet_MissingBlobSelfHeals(t *testing.T) {
	forEachBackend(t, time.Hour, func(t *testing.T, c *Cache, _ *testClock, store Store) {
		ctx := context.Background()
		require.NoError(t, store.SaveEntry(ctx, types.CacheEntry{
			PaperID:     "2503.00006v1",
			ContentHash: "abc",
			AnalyzedAt:  baseTime,
		}))

		_, ok := c.Get(ctx, "2503.00006v1")
		assert.False(t, ok)

		_, err := store.Entry(ctx, "2503.00006v1")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGet_InvalidTimestampSelfHeals(t *testing.T) {
	forEachBackend(t, time.Hour, func(t *testing.T, c *Cache, _ *testClock, store Store) {
		ctx := context.Background()
		p := samplePaper("2503.00007v1")
		require.NoError(t, store.SaveAnalysis(ctx, sampleAnalysis(p.ID)))
		require.NoError(t, store.SaveEntry(ctx, types.CacheEntry{PaperID: p.ID, ContentHash: ContentHash(p)}))

		assert.False(t, c.IsAnalyzed(ctx, p))
		_, err := store.Entry(ctx, p.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestFilterNew_PreservesOrder(t *testing.T) {
	forEachBackend(t, time.Hour, func(t *testing.T, c *Cache, _ *testClock, _ Store) {
		ctx := context.Background()
		papers := []types.Paper{
			samplePaper("a"), samplePaper("b"), samplePaper("c"), samplePaper("d"), samplePaper("e"),
		}
		require.NoError(t, c.Put(ctx, papers[1], sampleAnalysis("b")))
		require.NoError(t, c.Put(ctx, papers[3], sampleAnalysis("d")))

		got := c.FilterNew(ctx, papers)
		ids := make([]string, len(got))
		for i, p := range got {
			ids[i] = p.ID
		}
		assert.Equal(t, []string{"a", "c", "e"}, ids)
	})
}

func TestGetMany(t *testing.T) {
	forEachBackend(t, time.Hour, func(t *testing.T, c *Cache, _ *testClock, _ Store) {
		ctx := context.Background()
		require.NoError(t, c.Put(ctx, samplePaper("x"), sampleAnalysis("x")))
		require.NoError(t, c.Put(ctx, samplePaper("z"), sampleAnalysis("z")))

		got := c.GetMany(ctx, []string{"z", "missing", "x"})
		require.Len(t, got, 2)
		assert.Equal(t, "z", got[0].PaperID)
		assert.Equal(t, "x", got[1].PaperID)
	})
}

func TestEvict_Idempotent(t *testing.T) {
	forEachBackend(t, time.Hour, func(t *testing.T, c *Cache, _ *testClock, store Store) {
		ctx := context.Background()
		p := samplePaper("hep-th/9901001v1")
		require.NoError(t, c.Put(ctx, p, sampleAnalysis(p.ID)))

		require.NoError(t, c.Evict(ctx, p.ID))
		require.NoError(t, c.Evict(ctx, p.ID))

		assert.False(t, c.IsAnalyzed(ctx, p))
		_, err := store.LoadPaper(ctx, p.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = store.LoadAnalysis(ctx, p.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestEvictExpired(t *testing.T) {
	forEachBackend(t, time.Hour, func(t *testing.T, c *Cache, clk *testClock, _ Store) {
		ctx := context.Background()
		require.NoError(t, c.Put(ctx, samplePaper("old1"), sampleAnalysis("old1")))
		require.NoError(t, c.Put(ctx, samplePaper("old2"), sampleAnalysis("old2")))
		clk.advance(90 * time.Minute)
		require.NoError(t, c.Put(ctx, samplePaper("fresh"), sampleAnalysis("fresh")))

		report, err := c.EvictExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, EvictionReport{Removed: 2, Remaining: 1}, report)

		before, err := c.Entries(ctx)
		require.NoError(t, err)

		report, err = c.EvictExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, EvictionReport{Removed: 0, Remaining: 1}, report)

		after, err := c.Entries(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})
}

func TestClear(t *testing.T) {
	forEachBackend(t, time.Hour, func(t *testing.T, c *Cache, _ *testClock, store Store) {
		ctx := context.Background()
		require.NoError(t, c.Put(ctx, samplePaper("a"), sampleAnalysis("a")))
		require.NoError(t, c.Put(ctx, samplePaper("b"), sampleAnalysis("b")))
		// Orphaned blob with no index entry.
		require.NoError(t, store.SaveAnalysis(ctx, sampleAnalysis("orphan")))

		report, err := c.Clear(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, report.Removed)

		entries, err := c.Entries(ctx)
		require.NoError(t, err)
		assert.Empty(t, entries)
		_, err = store.LoadAnalysis(ctx, "orphan")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStats(t *testing.T) {
	forEachBackend(t, 72*time.Hour, func(t *testing.T, c *Cache, clk *testClock, store Store) {
		ctx := context.Background()
		require.NoError(t, c.Put(ctx, samplePaper("a"), sampleAnalysis("a")))
		clk.advance(30 * time.Hour)
		require.NoError(t, c.Put(ctx, samplePaper("b"), sampleAnalysis("b")))

		st, err := c.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, st.Count)
		assert.Equal(t, 1, st.Recent24h)
		assert.Equal(t, 72*time.Hour, st.TTL)
		assert.Equal(t, store.Location(), st.Location)
		assert.Positive(t, st.SizeBytes)
	})
}

func TestRoundTrip(t *testing.T) {
	forEachBackend(t, time.Hour, func(t *testing.T, _ *Cache, _ *testClock, store Store) {
		ctx := context.Background()
		p := samplePaper("2503.00008v2")
		a := sampleAnalysis(p.ID)

		require.NoError(t, store.SavePaper(ctx, p))
		require.NoError(t, store.SaveAnalysis(ctx, a))

		gotP, err := store.LoadPaper(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p, gotP)

		gotA, err := store.LoadAnalysis(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, a, gotA)
	})
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s1, err := NewFileStore(dir)
	require.NoError(t, err)
	c1 := New(s1, time.Hour, nil)
	c1.SetClock(func() time.Time { return baseTime })
	p := samplePaper("2503.00009v1")
	require.NoError(t, c1.Put(ctx, p, sampleAnalysis(p.ID)))

	s2, err := NewFileStore(dir)
	require.NoError(t, err)
	c2 := New(s2, time.Hour, nil)
	c2.SetClock(func() time.Time { return baseTime.Add(time.Minute) })
	assert.True(t, c2.IsAnalyzed(ctx, p))
}

func TestFileStore_BadIndexRecordPurged(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.SaveAnalysis(ctx, sampleAnalysis("bad")))

	index := map[string]any{
		"bad": map[string]any{"paper_id": "bad", "analyzed_at": "yesterday-ish"},
	}
	data, err := json.Marshal(index)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, metadataDir, indexFile), data, 0o644))

	s, err = NewFileStore(dir)
	require.NoError(t, err)
	c := New(s, time.Hour, nil)

	_, ok := c.Get(ctx, "bad")
	assert.False(t, ok)
	entries, err := c.Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestContentHash(t *testing.T) {
	p := samplePaper("x")
	assert.Len(t, ContentHash(p), 32)
	assert.Equal(t, ContentHash(p), ContentHash(p))

	q := p
	q.Authors = []string{"Someone Else"}
	assert.Equal(t, ContentHash(p), ContentHash(q), "authors are not part of the hash")
}

func TestBlobName(t *testing.T) {
	assert.Equal(t, "hep-th_9901001v1", blobName("hep-th/9901001v1"))
	assert.Equal(t, "2301.00001v1", blobName("2301.00001v1"))
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(types.CacheConfig{Backend: "tape"}, nil)
	assert.Error(t, err)
}
