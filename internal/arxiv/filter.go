// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package arxiv

import (
	"math"
	"strings"
	"time"

	"github.com/pdiddy/research-agent/pkg/types"
)

// highValueKeywords each add keywordBonus to the heuristic score when they
// appear anywhere in the title or abstract.
var highValueKeywords = []string{
	"breakthrough", "novel", "state-of-the-art", "sota",
	"significant", "improvement", "outperforms", "beats",
	"first", "new", "innovative", "groundbreaking",
}

// popularCategories earn a bonus when they are the primary category.
var popularCategories = map[string]bool{
	"cs.AI": true,
	"cs.LG": true,
}

// defaultExcludeKeywords apply when the caller supplies none.
var defaultExcludeKeywords = []string{"survey", "review", "tutorial"}

const (
	keywordBonus  = 0.2
	categoryBonus = 0.2
)

// Scorer computes the heuristic relevance score used for pre-filtering.
// It is not related to the scores produced by the analyzer.
type Scorer struct {
	keywords []string
	now      func() time.Time
}

// NewScorer returns a Scorer whose keyword list is the built-in list plus
// boost, deduplicated case-insensitively. A nil now uses time.Now.
func NewScorer(boost []string, now func() time.Time) *Scorer {
	if now == nil {
		now = time.Now
	}
	seen := make(map[string]bool, len(highValueKeywords)+len(boost))
	var keywords []string
	for _, kw := range append(append([]string{}, highValueKeywords...), boost...) {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		keywords = append(keywords, kw)
	}
	return &Scorer{keywords: keywords, now: now}
}

// Score returns the heuristic relevance of p in [0,1].
func (s *Scorer) Score(p types.Paper) float64 {
	score := 0.0
	text := p.Text()

	for _, kw := range s.keywords {
		if strings.Contains(text, kw) {
			score += keywordBonus
		}
	}

	score += recencyBonus(s.now().Sub(p.Published))

	if popularCategories[p.PrimaryCategory] {
		score += categoryBonus
	}

	return math.Max(0, math.Min(score, 1.0))
}

// recencyBonus rewards papers by whole days of age.
func recencyBonus(age time.Duration) float64 {
	days := int(math.Floor(age.Hours() / 24))
	switch {
	case days <= 1:
		return 0.3
	case days <= 3:
		return 0.2
	case days <= 7:
		return 0.1
	default:
		return 0
	}
}

// Filter drops papers whose title or abstract contains any excluded keyword
// (case-insensitive), then papers scoring below minScore. Input order is
// preserved.
func (s *Scorer) Filter(papers []types.Paper, exclude []string, minScore float64) []types.Paper {
	if len(exclude) == 0 {
		exclude = defaultExcludeKeywords
	}
	lowered := make([]string, 0, len(exclude))
	for _, kw := range exclude {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			lowered = append(lowered, kw)
		}
	}

	filtered := make([]types.Paper, 0, len(papers))
	for _, p := range papers {
		if containsAny(p.Text(), lowered) {
			continue
		}
		if s.Score(p) < minScore {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
