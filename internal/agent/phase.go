// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

// Phase is the orchestrator state. A cycle moves through
// idle → fetching → caching-filter → analyzing → publishing → idle, and
// enters retrying from any step that fails.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseFetching    Phase = "fetching"
	PhaseCacheFilter Phase = "caching-filter"
	PhaseAnalyzing   Phase = "analyzing"
	PhasePublishing  Phase = "publishing"
	PhaseRetrying    Phase = "retrying"
)

// Job selects what one cycle fetches and which narratives it attaches.
type Job struct {
	Name  string
	Title string

	// DaysBack overrides the configured lookback when positive.
	DaysBack int

	Trends   bool
	Insights bool
}

// The jobs the continuous agent schedules.
var (
	DailyJob      = Job{Name: "daily", Title: "AI Research Digest", Insights: true}
	WeeklyJob     = Job{Name: "weekly", Title: "Weekly AI Research Summary", DaysBack: 7, Trends: true}
	MonitoringJob = Job{Name: "monitoring", Title: "AI Research Update"}
)

// LookupJob returns the job with the given name.
func LookupJob(name string) (Job, bool) {
	for _, j := range []Job{DailyJob, WeeklyJob, MonitoringJob} {
		if j.Name == name {
			return j, true
		}
	}
	return Job{}, false
}
