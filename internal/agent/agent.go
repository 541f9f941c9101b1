// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package agent runs the research cycle: fetch candidates, skip what the
// cache already holds, analyze the rest, and publish a digest. It owns the
// schedule, the cycle retry policy, and the health endpoints.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/research-agent/internal/analyze"
	"github.com/pdiddy/research-agent/internal/arxiv"
	"github.com/pdiddy/research-agent/internal/cache"
	"github.com/pdiddy/research-agent/internal/logging"
	"github.com/pdiddy/research-agent/internal/publish"
	"github.com/pdiddy/research-agent/pkg/types"
)

// ErrCycleRunning is returned when a trigger arrives while another cycle
// is still in flight. The trigger is dropped, not queued.
var ErrCycleRunning = errors.New("a cycle is already running")

// Fetcher retrieves candidate papers from the catalog.
type Fetcher interface {
	Fetch(ctx context.Context, q arxiv.Query) ([]types.Paper, error)
}

// AnalysisCache remembers which papers have been analyzed.
type AnalysisCache interface {
	FilterNew(ctx context.Context, papers []types.Paper) []types.Paper
	GetMany(ctx context.Context, ids []string) []types.Analysis
	Put(ctx context.Context, p types.Paper, a types.Analysis) error
	EvictExpired(ctx context.Context) (cache.EvictionReport, error)
}

// PaperAnalyzer produces analyses and the narratives built on them.
type PaperAnalyzer interface {
	AnalyzeBatch(ctx context.Context, papers []types.Paper, interests []string) []types.Analysis
	IdentifyTrends(ctx context.Context, analyses []types.Analysis) types.TrendReport
	GenerateDailyInsights(ctx context.Context, analyses []types.Analysis) string
}

// ConfigSource supplies the configuration in force. It is read once at
// the start of every cycle, so a reload never changes a running cycle.
type ConfigSource interface {
	Current() types.AgentConfig
}

// StaticConfig is a ConfigSource that never changes.
type StaticConfig types.AgentConfig

// Current implements ConfigSource.
func (c StaticConfig) Current() types.AgentConfig { return types.AgentConfig(c) }

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Fetcher   Fetcher
	Cache     AnalysisCache
	Analyzer  PaperAnalyzer
	Publisher publish.Publisher
	Config    ConfigSource
	Log       logrus.FieldLogger
}

// Orchestrator runs at most one cycle at a time.
type Orchestrator struct {
	fetcher   Fetcher
	cache     AnalysisCache
	analyzer  PaperAnalyzer
	publisher publish.Publisher
	config    ConfigSource
	log       logrus.FieldLogger
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error

	active  atomic.Bool
	running atomic.Bool
	wg      sync.WaitGroup
	phase   atomic.Value

	mu     sync.Mutex
	status Status
	sched  *Scheduler
	stop   context.CancelFunc
}

// New creates an Orchestrator from d.
func New(d Deps) *Orchestrator {
	log := d.Log
	if log == nil {
		log = logging.Discard()
	}
	o := &Orchestrator{
		fetcher:   d.Fetcher,
		cache:     d.Cache,
		analyzer:  d.Analyzer,
		publisher: d.Publisher,
		config:    d.Config,
		log:       log,
		now:       time.Now,
		sleep:     sleepCtx,
	}
	o.phase.Store(PhaseIdle)
	return o
}

// SetClock replaces the time source used for timestamps, scoring, and the
// schedule.
func (o *Orchestrator) SetClock(now func() time.Time) { o.now = now }

// Phase returns the current state.
func (o *Orchestrator) Phase() Phase { return o.phase.Load().(Phase) }

func (o *Orchestrator) setPhase(p Phase) {
	if prev := o.phase.Swap(p); prev != p {
		o.log.WithFields(logrus.Fields{"from": prev, "to": p}).Debug("phase changed")
	}
}

// RunOnce runs one daily cycle with retries and returns its result.
func (o *Orchestrator) RunOnce(ctx context.Context) (types.CycleResult, error) {
	return o.Run(ctx, DailyJob)
}

// Run runs job synchronously. It fails with ErrCycleRunning if another
// cycle is in flight, and with ErrRetriesExhausted when every attempt
// failed.
func (o *Orchestrator) Run(ctx context.Context, job Job) (types.CycleResult, error) {
	if !o.active.CompareAndSwap(false, true) {
		return o.skipped(job), ErrCycleRunning
	}
	defer o.active.Store(false)
	return o.runJob(ctx, job)
}

// Trigger starts job in the background unless a cycle is already running,
// in which case the trigger is logged and dropped.
func (o *Orchestrator) Trigger(ctx context.Context, job Job) error {
	if !o.active.CompareAndSwap(false, true) {
		o.skipped(job)
		return ErrCycleRunning
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.active.Store(false)
		_, _ = o.runJob(ctx, job)
	}()
	return nil
}

func (o *Orchestrator) skipped(job Job) types.CycleResult {
	o.log.WithField("job", job.Name).Warn("cycle still running, skipping trigger")
	o.mu.Lock()
	o.status.Skipped++
	o.mu.Unlock()
	now := o.now()
	return types.CycleResult{
		ID:         uuid.NewString(),
		Job:        job.Name,
		Status:     types.CycleSkipped,
		Message:    ErrCycleRunning.Error(),
		StartedAt:  now,
		FinishedAt: now,
	}
}

// runJob snapshots the configuration and runs the cycle under the retry
// policy. Attempts run on a context detached from ctx so shutdown lets an
// in-flight attempt finish; ctx only interrupts the waits between attempts.
func (o *Orchestrator) runJob(ctx context.Context, job Job) (types.CycleResult, error) {
	cfg := o.config.Current()
	policy := NewRetryPolicy(cfg.Retry)
	policy.sleep = o.sleep

	res := types.CycleResult{
		ID:        uuid.NewString(),
		Job:       job.Name,
		StartedAt: o.now(),
	}
	log := o.log.WithFields(logrus.Fields{"cycle": res.ID, "job": job.Name})
	log.Info("cycle started")

	cycleCtx := context.WithoutCancel(ctx)
	attempts, err := policy.Run(ctx, func() error {
		attempt := res
		if err := o.cycle(cycleCtx, job, cfg, &attempt, log); err != nil {
			return err
		}
		res = attempt
		return nil
	}, func(attempt int, delay time.Duration, err error) {
		o.setPhase(PhaseRetrying)
		log.WithError(err).WithFields(logrus.Fields{
			"attempt": attempt,
			"delay":   delay,
		}).Warn("cycle failed, retrying")
	})
	o.setPhase(PhaseIdle)

	res.Attempts = attempts
	res.FinishedAt = o.now()
	res.Duration = res.FinishedAt.Sub(res.StartedAt)
	if err != nil {
		res.Status = types.CycleError
		res.Error = err.Error()
		log.WithError(err).Error("cycle failed")
	} else {
		log.WithFields(logrus.Fields{
			"status":    res.Status,
			"fetched":   res.Fetched,
			"analyzed":  res.Analyzed,
			"cached":    res.Cached,
			"published": res.Published,
			"duration":  res.Duration,
		}).Info("cycle finished")
	}
	o.record(res, err)
	return res, err
}

// cycle runs one attempt. Only failures that make the whole attempt
// pointless are returned; everything else degrades and is logged.
func (o *Orchestrator) cycle(ctx context.Context, job Job, cfg types.AgentConfig, res *types.CycleResult, log logrus.FieldLogger) error {
	rc := cfg.Research

	if report, err := o.cache.EvictExpired(ctx); err != nil {
		log.WithError(err).Warn("evicting expired cache entries")
	} else if report.Removed > 0 {
		log.WithField("removed", report.Removed).Info("evicted expired cache entries")
	}

	o.setPhase(PhaseFetching)
	daysBack := rc.DaysBack
	if job.DaysBack > 0 {
		daysBack = job.DaysBack
	}
	papers, err := o.fetcher.Fetch(ctx, arxiv.Query{
		Categories: rc.Categories,
		Keywords:   rc.Interests,
		MaxResults: rc.MaxPapersPerDay,
		DaysBack:   daysBack,
	})
	if err != nil {
		return fmt.Errorf("fetching papers: %w", err)
	}
	res.Fetched = len(papers)

	candidates := arxiv.NewScorer(rc.BoostKeywords, o.now).Filter(papers, rc.ExcludeKeywords, rc.MinRelevanceScore)
	res.Filtered = len(candidates)
	if len(candidates) == 0 {
		res.Status = types.CycleNoContent
		res.Message = "no papers matched the research criteria"
		return nil
	}

	o.setPhase(PhaseCacheFilter)
	fresh := o.cache.FilterNew(ctx, candidates)
	res.New = len(fresh)
	freshIDs := make(map[string]bool, len(fresh))
	for _, p := range fresh {
		freshIDs[p.ID] = true
	}
	if limit := cfg.Analyzer.MaxPapersPerCycle; limit > 0 && len(fresh) > limit {
		log.WithFields(logrus.Fields{"new": len(fresh), "limit": limit}).Info("capping papers analyzed this cycle")
		fresh = fresh[:limit]
	}

	o.setPhase(PhaseAnalyzing)
	var analyses []types.Analysis
	if len(fresh) > 0 {
		analyses = o.analyzer.AnalyzeBatch(ctx, fresh, rc.Interests)
	}
	res.Analyzed = len(analyses)

	byID := make(map[string]types.Paper, len(candidates))
	for _, p := range candidates {
		byID[p.ID] = p
	}

	all := analyses
	if rc.IncludeCached {
		var ids []string
		for _, p := range candidates {
			if !freshIDs[p.ID] {
				ids = append(ids, p.ID)
			}
		}
		if len(ids) > 0 {
			cached := o.cache.GetMany(ctx, ids)
			res.Cached = len(cached)
			all = append(append([]types.Analysis(nil), analyses...), cached...)
		}
	}

	var significant []types.Analysis
	seen := make(map[string]bool, len(all))
	for _, a := range all {
		if seen[a.PaperID] {
			continue
		}
		if _, ok := byID[a.PaperID]; !ok {
			continue
		}
		seen[a.PaperID] = true
		if a.SignificanceScore >= rc.MinSignificanceScore {
			significant = append(significant, a)
		}
	}

	if len(significant) == 0 {
		res.Status = types.CycleNoContent
		res.Message = "no papers passed the significance threshold"
	} else {
		o.setPhase(PhasePublishing)
		o.publishDigest(ctx, job, cfg, significant, byID, res, log)
		res.Status = types.CycleSuccess
	}

	for _, a := range analyses {
		p, ok := byID[a.PaperID]
		if !ok {
			continue
		}
		if err := o.cache.Put(ctx, p, a); err != nil {
			log.WithError(err).WithField("paper", a.PaperID).Warn("caching analysis")
		}
	}
	return nil
}

func (o *Orchestrator) publishDigest(ctx context.Context, job Job, cfg types.AgentConfig, significant []types.Analysis, byID map[string]types.Paper, res *types.CycleResult, log logrus.FieldLogger) {
	ranked := analyze.Rank(significant, analyze.BySignificance)
	items := make([]types.Analyzed, len(ranked))
	for i, a := range ranked {
		items[i] = types.Analyzed{Paper: byID[a.PaperID], Analysis: a}
	}

	d := publish.Digest{
		Title:       job.Title,
		Job:         job.Name,
		CycleID:     res.ID,
		GeneratedAt: o.now(),
		Items:       items,
	}
	if job.Trends {
		trends := o.analyzer.IdentifyTrends(ctx, ranked)
		d.Trends = &trends
	}
	if job.Insights && cfg.Schedule.DailyInsights {
		d.Insights = o.analyzer.GenerateDailyInsights(ctx, ranked)
	}

	report, err := o.publisher.Publish(ctx, d)
	if err != nil {
		log.WithError(err).Warn("digest published with errors")
	}
	res.Published = len(items)
	res.Artifacts = report.Artifacts
	res.Notifications = report.Notifications
}
