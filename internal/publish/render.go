// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package publish

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-agent/pkg/types"
)

// document is the serialized form of a Digest for JSON and YAML output.
type document struct {
	Title       string             `json:"title" yaml:"title"`
	Job         string             `json:"job" yaml:"job"`
	CycleID     string             `json:"cycle_id,omitempty" yaml:"cycle_id,omitempty"`
	GeneratedAt time.Time          `json:"generated_at" yaml:"generated_at"`
	PapersCount int                `json:"papers_count" yaml:"papers_count"`
	HighCount   int                `json:"high_significance_count" yaml:"high_significance_count"`
	AvgNovelty  float64            `json:"average_novelty" yaml:"average_novelty"`
	Insights    string             `json:"insights,omitempty" yaml:"insights,omitempty"`
	Trends      *types.TrendReport `json:"trends,omitempty" yaml:"trends,omitempty"`
	Items       []types.Analyzed   `json:"items" yaml:"items"`
}

func toDocument(d Digest) document {
	items := d.Items
	if items == nil {
		items = []types.Analyzed{}
	}
	return document{
		Title:       d.Title,
		Job:         d.Job,
		CycleID:     d.CycleID,
		GeneratedAt: d.GeneratedAt,
		PapersCount: len(d.Items),
		HighCount:   d.HighSignificanceCount(),
		AvgNovelty:  d.AverageNovelty(),
		Insights:    d.Insights,
		Trends:      d.Trends,
		Items:       items,
	}
}

// RenderJSON encodes d as indented JSON.
func RenderJSON(d Digest) ([]byte, error) {
	data, err := json.MarshalIndent(toDocument(d), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return data, nil
}

// RenderYAML encodes d as YAML.
func RenderYAML(d Digest) ([]byte, error) {
	data, err := yaml.Marshal(toDocument(d))
	if err != nil {
		return nil, fmt.Errorf("marshaling YAML: %w", err)
	}
	return data, nil
}

var funcs = template.FuncMap{
	"join":    strings.Join,
	"inc":     func(i int) int { return i + 1 },
	"authors": authorList,
	"marker":  marker,
	"first": func(xs []string, fallback string) string {
		if len(xs) == 0 {
			return fallback
		}
		return xs[0]
	},
	"date": func(t time.Time, layout string) string { return t.Format(layout) },
}

var markdownTmpl = template.Must(template.New("markdown").Funcs(funcs).Parse(
	`# {{.Title}}
*Generated on {{date .GeneratedAt "January 02, 2006 at 03:04 PM"}}*

## Summary Statistics
- **Papers Analyzed:** {{len .Items}}
- **High Significance Papers:** {{.HighSignificanceCount}}
- **Average Novelty Score:** {{printf "%.2f" .AverageNovelty}}
{{- if .Insights}}

## Daily Insights

{{.Insights}}
{{- end}}
{{- with .Trends}}{{if .TrendAnalysis}}

## Research Trends

{{.TrendAnalysis}}
{{- end}}{{end}}

---
{{range $i, $it := .Items}}
## {{marker $it.Analysis.SignificanceScore}} {{inc $i}}. {{$it.Paper.Title}}

**Authors:** {{authors $it.Paper.Authors 5}}

**Scores:** Significance: {{printf "%.2f" $it.Analysis.SignificanceScore}} | Novelty: {{printf "%.2f" $it.Analysis.NoveltyScore}} | Relevance: {{printf "%.2f" $it.Analysis.RelevanceScore}}

### Summary
{{$it.Analysis.Summary}}

### Key Insights
{{range $it.Analysis.KeyInsights}}- {{.}}
{{end}}
### Business Impact
{{$it.Analysis.BusinessRelevance}}

### Implementation
{{$it.Analysis.ImplementationDifficulty}}

**Tags:** {{join $it.Analysis.Tags ", "}}

**Links:** [arXiv]({{$it.Paper.ArxivURL}}) | [PDF]({{$it.Paper.PDFURL}})

---
{{end}}`))

// RenderMarkdown renders the full digest document.
func RenderMarkdown(d Digest) ([]byte, error) {
	var buf bytes.Buffer
	if err := markdownTmpl.Execute(&buf, d); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.Bytes(), nil
}

// summaryTop is the number of papers listed in the short text summary.
const summaryTop = 5

var summaryTmpl = template.Must(template.New("summary").Funcs(funcs).Parse(
	`{{.Title}} - {{date .GeneratedAt "January 02, 2006"}}

{{len .Items}} papers analyzed | {{.HighSignificanceCount}} high-significance papers
{{range $i, $it := .Top}}
{{marker $it.Analysis.SignificanceScore}} {{inc $i}}. {{$it.Paper.Title}}
{{authors $it.Paper.Authors 3}}
Significance: {{printf "%.2f" $it.Analysis.SignificanceScore}} | Novelty: {{printf "%.2f" $it.Analysis.NoveltyScore}}
{{$it.Analysis.Summary}}
Key insight: {{first $it.Analysis.KeyInsights "Novel contribution to the field"}}
{{$it.Paper.ArxivURL}}
{{end}}`))

// RenderSummary renders the short plain-text summary used by chat
// notifications: the top five papers with one insight each.
func RenderSummary(d Digest) (string, error) {
	top := d.Items
	if len(top) > summaryTop {
		top = top[:summaryTop]
	}
	var buf bytes.Buffer
	err := summaryTmpl.Execute(&buf, struct {
		Digest
		Top []types.Analyzed
	}{d, top})
	if err != nil {
		return "", fmt.Errorf("rendering summary: %w", err)
	}
	return buf.String(), nil
}

// marker is a text badge for the significance band.
func marker(score float64) string {
	switch {
	case score >= 0.8:
		return "[HOT]"
	case score >= 0.6:
		return "[NOTABLE]"
	default:
		return "[PAPER]"
	}
}

func authorList(authors []string, n int) string {
	if len(authors) <= n {
		return strings.Join(authors, ", ")
	}
	return strings.Join(authors[:n], ", ") + "..."
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
