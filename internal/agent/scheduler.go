// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Trigger computes the next time a job is due strictly after a given time.
type Trigger interface {
	Next(after time.Time) time.Time
	String() string
}

// Daily fires once a day at Hour:Minute in Loc.
type Daily struct {
	Hour, Minute int
	Loc          *time.Location
}

func (d Daily) Next(after time.Time) time.Time {
	t := after.In(d.Loc)
	next := time.Date(t.Year(), t.Month(), t.Day(), d.Hour, d.Minute, 0, 0, d.Loc)
	if !next.After(t) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (d Daily) String() string {
	return fmt.Sprintf("daily at %02d:%02d %s", d.Hour, d.Minute, d.Loc)
}

// Weekly fires once a week on Day at Hour:Minute in Loc.
type Weekly struct {
	Day          time.Weekday
	Hour, Minute int
	Loc          *time.Location
}

func (w Weekly) Next(after time.Time) time.Time {
	t := after.In(w.Loc)
	offset := (int(w.Day) - int(t.Weekday()) + 7) % 7
	next := time.Date(t.Year(), t.Month(), t.Day()+offset, w.Hour, w.Minute, 0, 0, w.Loc)
	if !next.After(t) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

func (w Weekly) String() string {
	return fmt.Sprintf("every %s at %02d:%02d %s", w.Day, w.Hour, w.Minute, w.Loc)
}

// Every fires at a fixed interval.
type Every struct {
	Interval time.Duration
}

func (e Every) Next(after time.Time) time.Time { return after.Add(e.Interval) }

func (e Every) String() string { return "every " + e.Interval.String() }

// ParseClock parses "HH:MM" in 24-hour form.
func ParseClock(s string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	hour, err = strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}

// ParseWeekday parses an English weekday name, case-insensitively.
func ParseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(strings.TrimSpace(s), d.String()) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", s)
}

// ScheduledJob describes one registered job for status reporting.
type ScheduledJob struct {
	Name    string    `json:"name"`
	Trigger string    `json:"trigger"`
	Next    time.Time `json:"next"`
}

type entry struct {
	name    string
	trigger Trigger
	task    func(context.Context)
	next    time.Time
}

// Scheduler holds an ordered list of (trigger, task) pairs and runs the
// due ones each time it is polled.
type Scheduler struct {
	mu      sync.Mutex
	entries []*entry
	now     func() time.Time
}

// NewScheduler returns an empty Scheduler. A nil now uses time.Now.
func NewScheduler(now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{now: now}
}

// Add registers task under name. Its first run is the trigger's next time
// after now.
func (s *Scheduler) Add(name string, t Trigger, task func(context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, &entry{name: name, trigger: t, task: task, next: t.Next(s.now())})
}

// RunPending runs every task whose time has come, in registration order,
// and returns how many ran. A job missed by several periods runs once.
func (s *Scheduler) RunPending(ctx context.Context) int {
	now := s.now()

	s.mu.Lock()
	var due []*entry
	for _, e := range s.entries {
		if !now.Before(e.next) {
			e.next = e.trigger.Next(now)
			due = append(due, e)
		}
	}
	s.mu.Unlock()

	for _, e := range due {
		e.task(ctx)
	}
	return len(due)
}

// Jobs lists the registered jobs with their next run times.
func (s *Scheduler) Jobs() []ScheduledJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ScheduledJob, len(s.entries))
	for i, e := range s.entries {
		out[i] = ScheduledJob{Name: e.name, Trigger: e.trigger.String(), Next: e.next}
	}
	return out
}

// Clear removes every job.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}
