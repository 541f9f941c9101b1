// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/research-agent/pkg/types"
)

// Status is the health snapshot of the agent.
type Status struct {
	Running             bool               `json:"running"`
	Phase               Phase              `json:"phase"`
	RunCount            int                `json:"run_count"`
	Skipped             int                `json:"skipped"`
	ConsecutiveFailures int                `json:"consecutive_failures"`
	Fatal               bool               `json:"fatal"`
	LastRun             time.Time          `json:"last_run,omitzero"`
	LastResult          *types.CycleResult `json:"last_result,omitempty"`
	Jobs                []ScheduledJob     `json:"jobs,omitempty"`
}

func (o *Orchestrator) record(res types.CycleResult, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status.RunCount++
	o.status.LastRun = res.FinishedAt
	o.status.LastResult = &res
	if err != nil {
		o.status.ConsecutiveFailures++
		o.status.Fatal = errors.Is(err, ErrRetriesExhausted)
		return
	}
	o.status.ConsecutiveFailures = 0
	o.status.Fatal = false
}

// Status returns a copy of the current health snapshot.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	s := o.status
	sched := o.sched
	o.mu.Unlock()

	s.Running = o.running.Load()
	s.Phase = o.Phase()
	if s.LastResult != nil {
		r := *s.LastResult
		s.LastResult = &r
	}
	if sched != nil {
		s.Jobs = sched.Jobs()
	}
	return s
}

const defaultPollInterval = time.Minute

// Start registers the scheduled jobs from the current configuration and
// polls them until ctx is done or Stop is called. On return the in-flight
// cycle, if any, has finished.
func (o *Orchestrator) Start(ctx context.Context) error {
	cfg := o.config.Current()
	sched, err := o.buildSchedule(cfg.Schedule)
	if err != nil {
		return err
	}
	o.mu.Lock()
	o.sched = sched
	o.mu.Unlock()

	poll := cfg.Schedule.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	o.mu.Lock()
	o.stop = cancel
	o.mu.Unlock()

	o.running.Store(true)
	for _, j := range sched.Jobs() {
		o.log.WithFields(logrus.Fields{"job": j.Name, "trigger": j.Trigger, "next": j.Next}).Info("scheduled job")
	}
	o.log.Info("agent started")

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-loopCtx.Done():
			o.running.Store(false)
			o.log.Info("agent stopping, waiting for in-flight cycle")
			o.wg.Wait()
			o.log.Info("agent stopped")
			return nil
		case <-ticker.C:
			if !o.running.Load() {
				continue
			}
			sched.RunPending(loopCtx)
		}
	}
}

// Stop clears the running flag and ends the poll loop started by Start.
// Jobs not yet triggered never run.
func (o *Orchestrator) Stop() {
	o.running.Store(false)
	o.mu.Lock()
	stop := o.stop
	o.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// Wait blocks until no background cycle is in flight.
func (o *Orchestrator) Wait() { o.wg.Wait() }

func (o *Orchestrator) buildSchedule(sc types.ScheduleConfig) (*Scheduler, error) {
	loc := time.UTC
	if sc.Timezone != "" {
		l, err := time.LoadLocation(sc.Timezone)
		if err != nil {
			return nil, fmt.Errorf("loading timezone: %w", err)
		}
		loc = l
	}

	sched := NewScheduler(o.now)
	trigger := func(job Job) func(context.Context) {
		return func(ctx context.Context) { _ = o.Trigger(ctx, job) }
	}

	if sc.DailyEnabled {
		h, m, err := ParseClock(sc.DailyTime)
		if err != nil {
			return nil, fmt.Errorf("daily schedule: %w", err)
		}
		sched.Add(DailyJob.Name, Daily{Hour: h, Minute: m, Loc: loc}, trigger(DailyJob))
	}
	if sc.WeeklyEnabled {
		day, err := ParseWeekday(sc.WeeklyDay)
		if err != nil {
			return nil, fmt.Errorf("weekly schedule: %w", err)
		}
		h, m, err := ParseClock(sc.WeeklyTime)
		if err != nil {
			return nil, fmt.Errorf("weekly schedule: %w", err)
		}
		sched.Add(WeeklyJob.Name, Weekly{Day: day, Hour: h, Minute: m, Loc: loc}, trigger(WeeklyJob))
	}
	if sc.MonitoringEnabled {
		if sc.MonitoringInterval <= 0 {
			return nil, fmt.Errorf("monitoring schedule: interval must be positive")
		}
		sched.Add(MonitoringJob.Name, Every{Interval: sc.MonitoringInterval}, trigger(MonitoringJob))
	}
	return sched, nil
}
