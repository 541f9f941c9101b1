// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package analyze scores and summarizes papers through an external
// reasoning service and aggregates the results into rankings, trend
// reports, and daily insights.
package analyze

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/research-agent/internal/logging"
	"github.com/pdiddy/research-agent/pkg/types"
)

// backoffBase controls the base duration for exponential backoff between
// retries of one reasoning call. Tests override this to avoid real sleeps.
var backoffBase = 2 * time.Second

const (
	defaultConcurrency      = 3
	defaultBreakerThreshold = 5
	breakerCooldown         = time.Minute
	insightsTopN            = 5
	insightsPerPaper        = 2
	noPapersMessage         = "No papers analyzed today."
)

// Criterion selects the score used by Rank.
type Criterion string

const (
	ByRelevance    Criterion = "relevance"
	BySignificance Criterion = "significance"
	ByNovelty      Criterion = "novelty"
	ByOverall      Criterion = "overall"
)

// Analyzer turns papers into Analyses. Calls to the reasoning service go
// through a circuit breaker shared by every paper in every batch.
type Analyzer struct {
	reasoner    Reasoner
	opts        Options
	concurrency int
	retries     int
	timeout     time.Duration
	breaker     *gobreaker.CircuitBreaker
	log         logrus.FieldLogger
	now         func() time.Time
}

// New creates an Analyzer over r configured from cfg. A nil log discards
// output.
func New(r Reasoner, cfg types.AnalyzerConfig, log logrus.FieldLogger) *Analyzer {
	if log == nil {
		log = logging.Discard()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	threshold := cfg.BreakerThreshold
	if threshold <= 0 {
		threshold = defaultBreakerThreshold
	}

	a := &Analyzer{
		reasoner: r,
		opts: Options{
			MaxTurns:       cfg.MaxTurns,
			MaxTokens:      cfg.MaxTokens,
			PermissionMode: cfg.PermissionMode,
		},
		concurrency: concurrency,
		retries:     max(cfg.RetryAttempts, 0),
		timeout:     cfg.Timeout,
		log:         log,
		now:         time.Now,
	}
	a.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "reasoning",
		Timeout: breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(threshold)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("reasoning circuit breaker state changed")
		},
	})
	return a
}

// SetClock replaces the time source used for report dates.
func (a *Analyzer) SetClock(now func() time.Time) { a.now = now }

// Analyze sends one paper to the reasoning service. Any error means the
// analysis is absent and the paper should be skipped this cycle.
func (a *Analyzer) Analyze(ctx context.Context, p types.Paper, interests []string) (types.Analysis, error) {
	prompt, err := renderAnalysisPrompt(p, interests)
	if err != nil {
		return types.Analysis{}, fmt.Errorf("rendering prompt: %w", err)
	}

	a.log.WithFields(logrus.Fields{
		"paper": p.ID,
		"title": truncate(p.Title, 50),
	}).Info("analyzing paper")

	fragments, err := a.callWithRetry(ctx, prompt)
	if err != nil {
		return types.Analysis{}, err
	}

	analysis, err := parseAnalysis(p.ID, fragments)
	if err != nil {
		return types.Analysis{}, err
	}
	a.log.WithField("paper", p.ID).Info("analyzed paper")
	return analysis, nil
}

// AnalyzeBatch analyzes papers with at most the configured number of calls
// in flight. Failures are logged and left out of the result; they never
// cancel sibling tasks.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, papers []types.Paper, interests []string) []types.Analysis {
	var (
		mu      sync.Mutex
		results = make([]types.Analysis, 0, len(papers))
		g       errgroup.Group
	)
	g.SetLimit(a.concurrency)

	for _, p := range papers {
		g.Go(func() error {
			analysis, err := a.Analyze(ctx, p, interests)
			if err != nil {
				a.log.WithError(err).WithField("paper", p.ID).Error("analysis failed")
				return nil
			}
			mu.Lock()
			results = append(results, analysis)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	a.log.WithFields(logrus.Fields{
		"requested": len(papers),
		"analyzed":  len(results),
	}).Info("batch analysis complete")
	return results
}

// callWithRetry runs one reasoning call through the breaker, retrying
// backend errors with exponential backoff. An open breaker is not retried.
func (a *Analyzer) callWithRetry(ctx context.Context, prompt string) ([]string, error) {
	var lastErr error
	for attempt := 0; attempt <= a.retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		out, err := a.breaker.Execute(func() (interface{}, error) {
			callCtx := ctx
			if a.timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, a.timeout)
				defer cancel()
			}
			return collect(callCtx, a.reasoner, prompt, a.opts)
		})
		if err == nil {
			fragments, _ := out.([]string)
			return fragments, nil
		}
		lastErr = err
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) || ctx.Err() != nil {
			break
		}
		a.log.WithError(err).WithField("attempt", attempt+1).Warn("reasoning call failed")
	}
	return nil, fmt.Errorf("reasoning call: %w", lastErr)
}

// Rank returns a copy of analyses sorted descending by criterion. Ties keep
// their input order. Unknown criteria rank by the overall average.
func Rank(analyses []types.Analysis, by Criterion) []types.Analysis {
	key := func(x types.Analysis) float64 { return x.OverallScore() }
	switch by {
	case ByRelevance:
		key = func(x types.Analysis) float64 { return x.RelevanceScore }
	case BySignificance:
		key = func(x types.Analysis) float64 { return x.SignificanceScore }
	case ByNovelty:
		key = func(x types.Analysis) float64 { return x.NoveltyScore }
	}

	ranked := append([]types.Analysis(nil), analyses...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return key(ranked[i]) > key(ranked[j])
	})
	return ranked
}

// IdentifyTrends asks the reasoning service for a narrative over all
// analyses. Failures are reported in the Error field.
func (a *Analyzer) IdentifyTrends(ctx context.Context, analyses []types.Analysis) types.TrendReport {
	if len(analyses) == 0 {
		return types.TrendReport{}
	}

	type paperInfo struct {
		ID                string   `json:"id"`
		Summary           string   `json:"summary"`
		SignificanceScore float64  `json:"significance_score"`
		NoveltyScore      float64  `json:"novelty_score"`
		Tags              []string `json:"tags"`
		KeyInsights       []string `json:"key_insights"`
	}
	infos := make([]paperInfo, len(analyses))
	for i, x := range analyses {
		infos[i] = paperInfo{x.PaperID, x.Summary, x.SignificanceScore, x.NoveltyScore, x.Tags, x.KeyInsights}
	}

	text, err := a.narrate(ctx, infos, func(data string) (string, error) {
		return renderTrendsPrompt(data)
	})
	if err != nil {
		a.log.WithError(err).Error("trend analysis failed")
		return types.TrendReport{Error: err.Error()}
	}
	return types.TrendReport{
		AnalysisDate:   a.now(),
		PapersAnalyzed: len(analyses),
		TrendAnalysis:  text,
	}
}

// GenerateDailyInsights writes a markdown narrative over the top papers.
// On failure the returned text describes the error.
func (a *Analyzer) GenerateDailyInsights(ctx context.Context, analyses []types.Analysis) string {
	if len(analyses) == 0 {
		return noPapersMessage
	}

	type topPaper struct {
		ID           string   `json:"id"`
		Summary      string   `json:"summary"`
		Significance float64  `json:"significance"`
		KeyInsights  []string `json:"key_insights"`
	}
	ranked := Rank(analyses, ByOverall)
	if len(ranked) > insightsTopN {
		ranked = ranked[:insightsTopN]
	}
	top := make([]topPaper, len(ranked))
	for i, x := range ranked {
		insights := x.KeyInsights
		if len(insights) > insightsPerPaper {
			insights = insights[:insightsPerPaper]
		}
		top[i] = topPaper{x.PaperID, x.Summary, x.SignificanceScore, insights}
	}

	date := a.now().Format("2006-01-02")
	data := struct {
		Date           string     `json:"date"`
		PapersAnalyzed int        `json:"papers_analyzed"`
		TopPapers      []topPaper `json:"top_papers"`
	}{date, len(analyses), top}

	text, err := a.narrate(ctx, data, func(s string) (string, error) {
		return renderInsightsPrompt(date, s)
	})
	if err != nil {
		a.log.WithError(err).Error("daily insights failed")
		return fmt.Sprintf("Error generating insights: %v", err)
	}
	return text
}

// narrate marshals data, renders a prompt from it, and returns the joined
// response text.
func (a *Analyzer) narrate(ctx context.Context, data any, prompt func(string) (string, error)) (string, error) {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding summary: %w", err)
	}
	text, err := prompt(string(raw))
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	fragments, err := a.callWithRetry(ctx, text)
	if err != nil {
		return "", err
	}
	if len(fragments) == 0 {
		return "", ErrNoResponse
	}
	return strings.Join(fragments, fragmentJoiner), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
