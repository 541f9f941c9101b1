// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"errors"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/pdiddy/research-agent/pkg/types"
)

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

var weekdays = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// Validate checks every section and reports all problems at once.
func Validate(cfg *types.AgentConfig) error {
	return validation.Errors{
		"research":      validateResearch(&cfg.Research),
		"fetch":         validateFetch(&cfg.Fetch),
		"cache":         validateCache(&cfg.Cache),
		"analyzer":      validateAnalyzer(&cfg.Analyzer),
		"schedule":      validateSchedule(&cfg.Schedule),
		"retry":         validateRetry(&cfg.Retry),
		"output":        validateOutput(&cfg.Output),
		"notifications": validateNotifications(&cfg.Notifications),
		"logging":       validateLogging(&cfg.Logging),
		"health":        validateHealth(&cfg.Health),
	}.Filter()
}

func validateResearch(c *types.ResearchConfig) error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Categories, validation.Required),
		validation.Field(&c.MaxPapersPerDay, validation.Required, validation.Min(1)),
		validation.Field(&c.MinRelevanceScore, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.MinSignificanceScore, validation.Min(0.0), validation.Max(1.0)),
	)
}

func validateFetch(c *types.FetchConfig) error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MinInterval, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxRetries, validation.Min(0)),
	)
}

func validateCache(c *types.CacheConfig) error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required,
			validation.In(types.CacheFile, types.CacheSQLite, types.CacheRedis)),
		validation.Field(&c.Dir, validation.When(c.Backend != types.CacheRedis, validation.Required)),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Duration(0)).Exclusive()),
		validation.Field(&c.RedisURL, validation.When(c.Backend == types.CacheRedis, validation.Required)),
	)
}

func validateAnalyzer(c *types.AnalyzerConfig) error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required,
			validation.In(types.BackendClaude, types.BackendOpenAI, types.BackendCLI)),
		validation.Field(&c.Model, validation.When(c.Backend != types.BackendCLI, validation.Required)),
		validation.Field(&c.Command, validation.When(c.Backend == types.BackendCLI, validation.Required)),
		validation.Field(&c.Concurrency, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxPapersPerCycle, validation.Required, validation.Min(1)),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Duration(0)).Exclusive()),
		validation.Field(&c.RetryAttempts, validation.Min(0)),
		validation.Field(&c.BreakerThreshold, validation.Required, validation.Min(1)),
	)
}

func validateSchedule(c *types.ScheduleConfig) error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DailyTime, validation.When(c.DailyEnabled, validation.Required, validation.Match(clockPattern))),
		validation.Field(&c.WeeklyDay, validation.When(c.WeeklyEnabled, validation.Required, validation.By(weekday))),
		validation.Field(&c.WeeklyTime, validation.When(c.WeeklyEnabled, validation.Required, validation.Match(clockPattern))),
		validation.Field(&c.MonitoringInterval, validation.When(c.MonitoringEnabled,
			validation.Required, validation.Min(time.Minute))),
		validation.Field(&c.Timezone, validation.By(timezone)),
		validation.Field(&c.PollInterval, validation.Min(time.Duration(0))),
	)
}

func validateRetry(c *types.RetryConfig) error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxRetries, validation.Min(0)),
		validation.Field(&c.BaseDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxDelay, validation.Min(c.BaseDelay)),
	)
}

func validateOutput(c *types.OutputConfig) error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

func validateNotifications(c *types.NotificationConfig) error {
	d := &c.Discord
	o := &c.ObjectStore
	return validation.Errors{
		"object_store": validation.ValidateStruct(o,
			validation.Field(&o.Endpoint, validation.When(o.Enabled, validation.Required)),
			validation.Field(&o.Bucket, validation.When(o.Enabled, validation.Required)),
		),
		"discord": validation.ValidateStruct(d,
			validation.Field(&d.MentionRole, validation.Match(regexp.MustCompile(`^\d*$`))),
		),
	}.Filter()
}

func validateLogging(c *types.LoggingConfig) error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Level, validation.In("trace", "debug", "info", "warn", "warning", "error", "fatal", "panic")),
		validation.Field(&c.Format, validation.In("text", "json")),
		validation.Field(&c.MaxSizeMB, validation.Min(0)),
		validation.Field(&c.MaxBackups, validation.Min(0)),
	)
}

func validateHealth(c *types.HealthConfig) error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Addr, validation.When(c.Enabled, validation.Required)),
	)
}

func weekday(value any) error {
	s, _ := value.(string)
	for _, d := range weekdays {
		if strings.EqualFold(s, d) {
			return nil
		}
	}
	return errors.New("must be a weekday name")
}

func timezone(value any) error {
	s, _ := value.(string)
	if _, err := time.LoadLocation(s); err != nil {
		return errors.New("must be an IANA time zone")
	}
	return nil
}
