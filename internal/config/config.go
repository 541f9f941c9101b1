// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config resolves the agent configuration from built-in defaults,
// a YAML file with ${VAR} placeholders, the environment, and the secrets
// directory, then validates it.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-agent/internal/logging"
	"github.com/pdiddy/research-agent/internal/secrets"
	"github.com/pdiddy/research-agent/pkg/types"
)

const (
	// EnvPrefix namespaces environment overrides, e.g.
	// RESEARCH_AGENT_RESEARCH_DAYS_BACK=3.
	EnvPrefix = "RESEARCH_AGENT"

	// Name is the config file base name searched for by default.
	Name = "research-agent"

	defaultEnvFile = ".env"
)

// Options controls where configuration is read from.
type Options struct {
	// File is an explicit config path. Empty searches ./research-agent.yaml
	// and ~/.config/research-agent/config.yaml.
	File string

	// EnvFile is loaded into the environment without overriding variables
	// already set. Empty means ".env".
	EnvFile string

	// SecretsDir holds credential files. Empty means ".secrets".
	SecretsDir string

	Log logrus.FieldLogger
}

// Loaded is a resolved configuration.
type Loaded struct {
	Config types.AgentConfig

	// File is the config file used, or empty when only defaults applied.
	File string

	// Secrets lists the secret keys found on disk.
	Secrets []string
}

// keys without a default still need explicit env bindings.
var optionalKeys = []string{
	"analyzer.api_key",
	"analyzer.base_url",
	"analyzer.command",
	"analyzer.working_dir",
	"cache.redis_url",
	"cache.redis_prefix",
	"notifications.discord.webhook_url",
	"notifications.discord.mention_role",
	"notifications.object_store.access_key",
	"notifications.object_store.secret_key",
}

// Load resolves and validates the configuration.
func Load(opts Options) (Loaded, error) {
	log := opts.Log
	if log == nil {
		log = logging.Discard()
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = defaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Loaded{}, fmt.Errorf("loading %s: %w", envFile, err)
	}

	path, err := resolvePath(opts.File)
	if err != nil {
		return Loaded{}, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	defaults, err := yaml.Marshal(types.DefaultAgentConfig())
	if err != nil {
		return Loaded{}, fmt.Errorf("encoding defaults: %w", err)
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Loaded{}, fmt.Errorf("reading defaults: %w", err)
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Loaded{}, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := v.MergeConfig(strings.NewReader(ExpandEnv(string(raw)))); err != nil {
			return Loaded{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
		log.WithField("file", path).Debug("using config file")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range optionalKeys {
		if err := v.BindEnv(k); err != nil {
			return Loaded{}, fmt.Errorf("binding %s: %w", k, err)
		}
	}

	var cfg types.AgentConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) { dc.TagName = "yaml" }); err != nil {
		return Loaded{}, fmt.Errorf("decoding config: %w", err)
	}

	secretsDir := opts.SecretsDir
	if secretsDir == "" {
		secretsDir = secrets.DefaultDir
	}
	s, err := secrets.Load(secretsDir, log)
	if err != nil {
		return Loaded{}, err
	}
	applyCredentials(&cfg, s)

	if len(cfg.Research.Interests) == 0 {
		log.Warn("no research interests defined")
	}
	if err := Validate(&cfg); err != nil {
		return Loaded{}, fmt.Errorf("invalid config: %w", err)
	}
	return Loaded{Config: cfg, File: path, Secrets: s.Keys()}, nil
}

// resolvePath returns the explicit file, or the first default location
// that exists, or "" when there is none.
func resolvePath(explicit string) (string, error) {
	if explicit != "" {
		abs, err := filepath.Abs(explicit)
		if err != nil {
			return "", fmt.Errorf("resolving %s: %w", explicit, err)
		}
		if _, err := os.Stat(abs); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return abs, nil
	}

	candidates := []string{Name + ".yaml", Name + ".yml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", Name, "config.yaml"))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return filepath.Abs(c)
		}
	}
	return "", nil
}

var placeholder = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// ExpandEnv replaces ${VAR} and ${VAR:default} with the environment value.
// An unset variable takes the default, or "" when none is given.
func ExpandEnv(s string) string {
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		groups := placeholder.FindStringSubmatch(m)
		if v, ok := os.LookupEnv(groups[1]); ok {
			return v
		}
		return groups[2]
	})
}

// applyCredentials fills empty credentials from well-known environment
// variables, then from secret files.
func applyCredentials(cfg *types.AgentConfig, s secrets.Secrets) {
	an := &cfg.Analyzer
	switch an.Backend {
	case types.BackendClaude:
		an.APIKey = s.Or(secrets.AnthropicAPIKey, firstSet(an.APIKey, os.Getenv("ANTHROPIC_API_KEY")))
	case types.BackendOpenAI:
		an.APIKey = s.Or(secrets.OpenAIAPIKey, firstSet(an.APIKey, os.Getenv("OPENAI_API_KEY")))
	}

	d := &cfg.Notifications.Discord
	d.WebhookURL = s.Or(secrets.DiscordWebhookURL, firstSet(d.WebhookURL, os.Getenv("DISCORD_WEBHOOK_URL")))

	o := &cfg.Notifications.ObjectStore
	o.AccessKey = s.Or(secrets.ObjectStoreAccessKey, o.AccessKey)
	o.SecretKey = s.Or(secrets.ObjectStoreSecretKey, o.SecretKey)
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
