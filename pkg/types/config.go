// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ResearchConfig declares what the agent is interested in. It is immutable
// for the duration of one cycle and reloaded between cycles.
type ResearchConfig struct {
	// Interests are topical keywords; they drive the catalog query and the analysis prompt.
	Interests []string `json:"interests" yaml:"interests"`

	// Categories are catalog category tags (e.g. "cs.AI") OR-combined in the query.
	Categories []string `json:"categories" yaml:"categories"`

	// BoostKeywords extend the built-in high-value keyword list of the heuristic score.
	BoostKeywords []string `json:"boost_keywords" yaml:"boost_keywords"`

	// ExcludeKeywords drop any paper whose title or abstract contains one of them.
	ExcludeKeywords []string `json:"exclude_keywords" yaml:"exclude_keywords"`

	// MaxPapersPerDay caps the number of results requested from the catalog.
	MaxPapersPerDay int `json:"max_papers_per_day" yaml:"max_papers_per_day"`

	// DaysBack is the lookback window for the daily job.
	DaysBack int `json:"days_back" yaml:"days_back"`

	// MinRelevanceScore is the heuristic pre-filter threshold.
	MinRelevanceScore float64 `json:"min_relevance_score" yaml:"min_relevance_score"`

	// MinSignificanceScore is the publishing threshold on the analysis significance score.
	MinSignificanceScore float64 `json:"min_significance_score" yaml:"min_significance_score"`

	// IncludeCached merges still-valid cached analyses of re-fetched papers into the digest.
	IncludeCached bool `json:"include_cached" yaml:"include_cached"`
}

// FetchConfig holds settings for the catalog client.
type FetchConfig struct {
	HTTP HTTPConfig `json:"http" yaml:"http"`

	// BaseURL overrides the catalog query endpoint.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// MinInterval is the minimum delay between two catalog requests.
	MinInterval time.Duration `json:"min_interval" yaml:"min_interval"`

	// MaxRetries is the number of retries on HTTP 429.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// CacheBackend selects where the analysis cache persists its data.
type CacheBackend string

const (
	CacheFile   CacheBackend = "file"
	CacheSQLite CacheBackend = "sqlite"
	CacheRedis  CacheBackend = "redis"
)

// CacheConfig holds settings for the analysis cache.
type CacheConfig struct {
	Backend CacheBackend `json:"backend" yaml:"backend"`

	// Dir is the cache root for the file backend and the sqlite database location.
	Dir string `json:"dir" yaml:"dir"`

	// TTL is the maximum age of a cache entry.
	TTL time.Duration `json:"ttl" yaml:"ttl"`

	// RedisURL is used by the redis backend (e.g. "redis://localhost:6379/0").
	RedisURL string `json:"redis_url,omitempty" yaml:"redis_url,omitempty"`

	// RedisPrefix namespaces every redis key.
	RedisPrefix string `json:"redis_prefix,omitempty" yaml:"redis_prefix,omitempty"`
}

// AnalyzerBackend identifies the reasoning service implementation.
type AnalyzerBackend string

const (
	BackendClaude AnalyzerBackend = "claude"
	BackendOpenAI AnalyzerBackend = "openai"
	BackendCLI    AnalyzerBackend = "cli"
)

// AnalyzerConfig holds settings for the paper analyzer and its reasoning backend.
type AnalyzerConfig struct {
	Backend AnalyzerBackend `json:"backend" yaml:"backend"`

	// Model is the model identifier passed to the backend.
	Model string `json:"model" yaml:"model"`

	// APIKey authenticates against the backend API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the backend endpoint (OpenAI-compatible servers).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Command is the executable used by the cli backend.
	Command string `json:"command,omitempty" yaml:"command,omitempty"`

	// WorkingDir is the working directory of the cli backend.
	WorkingDir string `json:"working_dir,omitempty" yaml:"working_dir,omitempty"`

	MaxTurns       int    `json:"max_turns" yaml:"max_turns"`
	MaxTokens      int    `json:"max_tokens" yaml:"max_tokens"`
	PermissionMode string `json:"permission_mode" yaml:"permission_mode"`

	// Concurrency bounds in-flight reasoning calls per batch.
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// MaxPapersPerCycle caps how many new papers are analyzed per cycle.
	MaxPapersPerCycle int `json:"max_papers_per_cycle" yaml:"max_papers_per_cycle"`

	// Timeout bounds one reasoning call.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// RetryAttempts is the number of retries of a failed reasoning call.
	RetryAttempts int `json:"retry_attempts" yaml:"retry_attempts"`

	// BreakerThreshold opens the circuit after this many consecutive failures.
	BreakerThreshold int `json:"breaker_threshold" yaml:"breaker_threshold"`
}

// ScheduleConfig holds the calendar triggers of the continuous agent.
type ScheduleConfig struct {
	DailyEnabled bool   `json:"daily_enabled" yaml:"daily_enabled"`
	DailyTime    string `json:"daily_time" yaml:"daily_time"`

	WeeklyEnabled bool   `json:"weekly_enabled" yaml:"weekly_enabled"`
	WeeklyDay     string `json:"weekly_day" yaml:"weekly_day"`
	WeeklyTime    string `json:"weekly_time" yaml:"weekly_time"`

	MonitoringEnabled  bool          `json:"monitoring_enabled" yaml:"monitoring_enabled"`
	MonitoringInterval time.Duration `json:"monitoring_interval" yaml:"monitoring_interval"`

	// Timezone is an IANA name used to evaluate calendar times.
	Timezone string `json:"timezone" yaml:"timezone"`

	// PollInterval is how often triggers are evaluated.
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`

	// DailyInsights enables the narrative insights call for daily digests.
	DailyInsights bool `json:"daily_insights" yaml:"daily_insights"`
}

// RetryConfig holds the cycle-level retry policy.
type RetryConfig struct {
	MaxRetries int           `json:"max_retries" yaml:"max_retries"`
	BaseDelay  time.Duration `json:"base_delay" yaml:"base_delay"`
	MaxDelay   time.Duration `json:"max_delay" yaml:"max_delay"`
}

// OutputConfig holds settings for digest files.
type OutputConfig struct {
	Dir             string `json:"dir" yaml:"dir"`
	JSON            bool   `json:"json" yaml:"json"`
	YAML            bool   `json:"yaml" yaml:"yaml"`
	Markdown        bool   `json:"markdown" yaml:"markdown"`
	FilenamePattern string `json:"filename_pattern" yaml:"filename_pattern"`
}

// DiscordConfig holds the chat webhook settings.
type DiscordConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	WebhookURL  string `json:"webhook_url,omitempty" yaml:"webhook_url,omitempty"`
	MentionRole string `json:"mention_role,omitempty" yaml:"mention_role,omitempty"`
}

// ObjectStoreConfig holds the S3-compatible archive settings.
type ObjectStoreConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	Region    string `json:"region" yaml:"region"`
	Bucket    string `json:"bucket" yaml:"bucket"`
	AccessKey string `json:"access_key,omitempty" yaml:"access_key,omitempty"`
	SecretKey string `json:"secret_key,omitempty" yaml:"secret_key,omitempty"`
	UseSSL    bool   `json:"use_ssl" yaml:"use_ssl"`
	Prefix    string `json:"prefix" yaml:"prefix"`
}

// NotificationConfig groups the notification sinks.
type NotificationConfig struct {
	Discord     DiscordConfig     `json:"discord" yaml:"discord"`
	ObjectStore ObjectStoreConfig `json:"object_store" yaml:"object_store"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level      string `json:"level" yaml:"level"`
	Format     string `json:"format" yaml:"format"`
	File       string `json:"file" yaml:"file"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	Console    bool   `json:"console" yaml:"console"`
}

// HealthConfig holds the status endpoint settings.
type HealthConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

// AgentConfig groups all subsystem configurations.
type AgentConfig struct {
	Research      ResearchConfig     `json:"research" yaml:"research"`
	Fetch         FetchConfig        `json:"fetch" yaml:"fetch"`
	Cache         CacheConfig        `json:"cache" yaml:"cache"`
	Analyzer      AnalyzerConfig     `json:"analyzer" yaml:"analyzer"`
	Schedule      ScheduleConfig     `json:"schedule" yaml:"schedule"`
	Retry         RetryConfig        `json:"retry" yaml:"retry"`
	Output        OutputConfig       `json:"output" yaml:"output"`
	Notifications NotificationConfig `json:"notifications" yaml:"notifications"`
	Logging       LoggingConfig      `json:"logging" yaml:"logging"`
	Health        HealthConfig       `json:"health" yaml:"health"`
}

// DefaultAgentConfig returns the configuration used when no file overrides a value.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		Research: ResearchConfig{
			Interests:            []string{"Large Language Models", "AI Agents", "Machine Learning"},
			Categories:           []string{"cs.AI", "cs.LG", "cs.CL"},
			BoostKeywords:        []string{"breakthrough", "novel", "state-of-the-art"},
			ExcludeKeywords:      []string{"survey", "review"},
			MaxPapersPerDay:      50,
			DaysBack:             1,
			MinRelevanceScore:    0.3,
			MinSignificanceScore: 0.4,
			IncludeCached:        true,
		},
		Fetch: FetchConfig{
			HTTP: HTTPConfig{
				Timeout:   60 * time.Second,
				UserAgent: "research-agent/0.1",
			},
			MinInterval: 3 * time.Second,
			MaxRetries:  5,
		},
		Cache: CacheConfig{
			Backend:     CacheFile,
			Dir:         "cache",
			TTL:         7 * 24 * time.Hour,
			RedisPrefix: "research-agent",
		},
		Analyzer: AnalyzerConfig{
			Backend:           BackendClaude,
			Model:             "claude-sonnet-4-5-20250929",
			Command:           "claude",
			MaxTurns:          3,
			MaxTokens:         8000,
			PermissionMode:    "acceptEdits",
			Concurrency:       3,
			MaxPapersPerCycle: 10,
			Timeout:           300 * time.Second,
			RetryAttempts:     2,
			BreakerThreshold:  5,
		},
		Schedule: ScheduleConfig{
			DailyEnabled:       true,
			DailyTime:          "09:00",
			WeeklyEnabled:      true,
			WeeklyDay:          "Monday",
			WeeklyTime:         "08:00",
			MonitoringInterval: 4 * time.Hour,
			Timezone:           "UTC",
			PollInterval:       time.Minute,
			DailyInsights:      true,
		},
		Retry: RetryConfig{
			MaxRetries: 5,
			BaseDelay:  30 * time.Second,
			MaxDelay:   30 * time.Minute,
		},
		Output: OutputConfig{
			Dir:             "output",
			JSON:            true,
			Markdown:        true,
			FilenamePattern: "digest_{date}_{time}",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			File:       "logs/agent.log",
			MaxSizeMB:  10,
			MaxBackups: 5,
			Console:    true,
		},
		Health: HealthConfig{
			Addr: "127.0.0.1:8089",
		},
	}
}
