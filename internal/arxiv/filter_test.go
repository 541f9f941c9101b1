// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package arxiv

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/research-agent/pkg/types"
)

func clock() time.Time { return fixedNow }

func TestScore_ConcreteScenario(t *testing.T) {
	s := NewScorer(nil, clock)
	p := types.Paper{
		ID:              "2503.00001v1",
		Title:           "A Novel State-of-the-Art Method for Graph Learning",
		Published:       fixedNow.Add(-2 * time.Hour),
		PrimaryCategory: "cs.AI",
	}
	// novel + state-of-the-art + today + popular category
	assert.InDelta(t, 0.9, s.Score(p), 1e-9)
}

func TestScore_RecencyBands(t *testing.T) {
	s := NewScorer(nil, clock)
	tests := []struct {
		age  time.Duration
		want float64
	}{
		{0, 0.3},
		{36 * time.Hour, 0.3},
		{3 * 24 * time.Hour, 0.2},
		{6 * 24 * time.Hour, 0.1},
		{8 * 24 * time.Hour, 0},
	}
	for _, tt := range tests {
		t.Run(tt.age.String(), func(t *testing.T) {
			p := types.Paper{Title: "plain", Published: fixedNow.Add(-tt.age)}
			assert.InDelta(t, tt.want, s.Score(p), 1e-9)
		})
	}
}

func TestScore_ClampedWithManyKeywords(t *testing.T) {
	s := NewScorer([]string{"agents", "graph"}, clock)
	p := types.Paper{
		Title:           strings.Join(highValueKeywords, " ") + " agents graph",
		Published:       fixedNow,
		PrimaryCategory: "cs.LG",
	}
	assert.Equal(t, 1.0, s.Score(p))
}

func TestScore_AlwaysInRange(t *testing.T) {
	s := NewScorer([]string{"NOVEL", "", "extra"}, clock)
	titles := []string{"", "novel", "NOVEL breakthrough sota first new", "unrelated words"}
	ages := []time.Duration{-48 * time.Hour, 0, 72 * time.Hour, 400 * 24 * time.Hour}
	cats := []string{"", "cs.AI", "math.CO"}
	for _, title := range titles {
		for _, age := range ages {
			for _, cat := range cats {
				score := s.Score(types.Paper{Title: title, Published: fixedNow.Add(-age), PrimaryCategory: cat})
				assert.GreaterOrEqual(t, score, 0.0)
				assert.LessOrEqual(t, score, 1.0)
			}
		}
	}
}

func TestNewScorer_DeduplicatesBoostKeywords(t *testing.T) {
	s := NewScorer([]string{"Novel", "breakthrough", "agents"}, clock)
	assert.Len(t, s.keywords, len(highValueKeywords)+1)
}

func TestFilter(t *testing.T) {
	s := NewScorer(nil, clock)
	fresh := fixedNow.Add(-time.Hour)
	papers := []types.Paper{
		{ID: "a", Title: "Novel agents", Published: fresh, PrimaryCategory: "cs.AI"},
		{ID: "b", Title: "A Survey of Agents", Published: fresh, PrimaryCategory: "cs.AI"},
		{ID: "c", Title: "Plain title", Abstract: "old and plain", Published: fixedNow.Add(-30 * 24 * time.Hour)},
		{ID: "d", Title: "Breakthrough", Abstract: "contains TUTORIAL text", Published: fresh},
		{ID: "e", Title: "Outperforms baselines", Published: fresh},
	}

	t.Run("default exclusions", func(t *testing.T) {
		got := s.Filter(papers, nil, 0.3)
		assert.Equal(t, []string{"a", "e"}, ids(got))
	})

	t.Run("custom exclusions", func(t *testing.T) {
		got := s.Filter(papers, []string{"agents"}, 0)
		assert.Equal(t, []string{"c", "d", "e"}, ids(got))
	})

	t.Run("high threshold", func(t *testing.T) {
		got := s.Filter(papers, nil, 0.7)
		assert.Equal(t, []string{"a"}, ids(got))
	})
}

func ids(papers []types.Paper) []string {
	out := make([]string, len(papers))
	for i, p := range papers {
		out[i] = p.ID
	}
	return out
}
