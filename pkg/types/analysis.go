// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Analysis is the structured result of sending one Paper to the reasoning
// service. All three scores are clamped to [0,1].
type Analysis struct {
	PaperID                  string   `json:"paper_id" yaml:"paper_id"`
	RelevanceScore           float64  `json:"relevance_score" yaml:"relevance_score"`
	SignificanceScore        float64  `json:"significance_score" yaml:"significance_score"`
	NoveltyScore             float64  `json:"novelty_score" yaml:"novelty_score"`
	Summary                  string   `json:"summary" yaml:"summary"`
	KeyInsights              []string `json:"key_insights" yaml:"key_insights"`
	TechnicalDetails         string   `json:"technical_details" yaml:"technical_details"`
	PotentialImpact          string   `json:"potential_impact" yaml:"potential_impact"`
	ImplementationDifficulty string   `json:"implementation_difficulty" yaml:"implementation_difficulty"`
	BusinessRelevance        string   `json:"business_relevance" yaml:"business_relevance"`
	ConnectionsToOtherWork   []string `json:"connections_to_other_work" yaml:"connections_to_other_work"`
	RecommendedFor           []string `json:"recommended_for" yaml:"recommended_for"`
	Tags                     []string `json:"tags" yaml:"tags"`
}

// OverallScore is the unweighted mean of the three scores.
func (a Analysis) OverallScore() float64 {
	return (a.RelevanceScore + a.SignificanceScore + a.NoveltyScore) / 3
}

// CacheEntry is the metadata index record for one analyzed paper. It carries
// a few denormalized fields so listings don't need to decode the blobs.
type CacheEntry struct {
	PaperID           string    `json:"paper_id" yaml:"paper_id"`
	ContentHash       string    `json:"content_hash" yaml:"content_hash"`
	AnalyzedAt        time.Time `json:"analyzed_at" yaml:"analyzed_at"`
	Title             string    `json:"title" yaml:"title"`
	SignificanceScore float64   `json:"significance_score" yaml:"significance_score"`
	Categories        []string  `json:"categories" yaml:"categories"`
}

// Analyzed pairs a Paper with its Analysis for publishing.
type Analyzed struct {
	Paper    Paper    `json:"paper" yaml:"paper"`
	Analysis Analysis `json:"analysis" yaml:"analysis"`
}

// TrendReport is the narrative produced by trend identification. Error is
// set instead of TrendAnalysis when the reasoning call failed.
type TrendReport struct {
	AnalysisDate   time.Time `json:"analysis_date,omitzero" yaml:"analysis_date,omitempty"`
	PapersAnalyzed int       `json:"papers_analyzed" yaml:"papers_analyzed"`
	TrendAnalysis  string    `json:"trend_analysis,omitempty" yaml:"trend_analysis,omitempty"`
	Error          string    `json:"error,omitempty" yaml:"error,omitempty"`
}
