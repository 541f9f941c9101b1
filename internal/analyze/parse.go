// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/pdiddy/research-agent/pkg/types"
)

// Parse failures. Each one means the analysis is absent for this cycle.
var (
	ErrNoResponse = errors.New("no response fragments received")
	ErrNoJSON     = errors.New("no JSON object in response")
	ErrMalformed  = errors.New("malformed JSON in response")
)

const (
	defaultScore   = 0.5
	fragmentJoiner = " "
)

// parseAnalysis joins the fragments, takes the text between the first '{'
// and the last '}', and decodes it leniently:
//
//   - scores default to 0.5 when missing or non-numeric, then clamp to [0,1]
//   - string fields default to ""
//   - list fields default to empty and keep only string elements
func parseAnalysis(paperID string, fragments []string) (types.Analysis, error) {
	if len(fragments) == 0 {
		return types.Analysis{}, ErrNoResponse
	}
	full := strings.Join(fragments, fragmentJoiner)

	start := strings.Index(full, "{")
	end := strings.LastIndex(full, "}")
	if start < 0 || end < start {
		return types.Analysis{}, ErrNoJSON
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(full[start:end+1]), &fields); err != nil {
		return types.Analysis{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return types.Analysis{
		PaperID:                  paperID,
		RelevanceScore:           score(fields["relevance_score"]),
		SignificanceScore:        score(fields["significance_score"]),
		NoveltyScore:             score(fields["novelty_score"]),
		Summary:                  str(fields["summary"]),
		KeyInsights:              list(fields["key_insights"]),
		TechnicalDetails:         str(fields["technical_details"]),
		PotentialImpact:          str(fields["potential_impact"]),
		ImplementationDifficulty: str(fields["implementation_difficulty"]),
		BusinessRelevance:        str(fields["business_relevance"]),
		ConnectionsToOtherWork:   list(fields["connections_to_other_work"]),
		RecommendedFor:           list(fields["recommended_for"]),
		Tags:                     list(fields["tags"]),
	}, nil
}

func score(v any) float64 {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) {
		return defaultScore
	}
	return clamp(f)
}

func clamp(f float64) float64 {
	return math.Max(0, math.Min(f, 1))
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func list(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
