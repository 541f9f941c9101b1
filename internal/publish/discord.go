// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/research-agent/internal/httputil"
	"github.com/pdiddy/research-agent/internal/logging"
	"github.com/pdiddy/research-agent/pkg/types"
)

const (
	// discordMaxContent keeps messages under the webhook's 2000 character cap
	// with room for the mention prefix.
	discordMaxContent = 1500
	discordUsername   = "AI Research Agent"
	discordRetries    = 2
)

// Discord posts a short digest summary to a chat webhook.
type Discord struct {
	cfg  types.DiscordConfig
	http *http.Client
	log  logrus.FieldLogger
}

// NewDiscord returns a Discord sink. A nil log discards output.
func NewDiscord(cfg types.DiscordConfig, log logrus.FieldLogger) *Discord {
	if log == nil {
		log = logging.Discard()
	}
	return &Discord{cfg: cfg, http: &http.Client{Timeout: 30 * time.Second}, log: log}
}

// Name implements Publisher.
func (s *Discord) Name() string { return "discord" }

type webhookPayload struct {
	Content  string `json:"content"`
	Username string `json:"username,omitempty"`
}

// Publish sends the summary. The delivery outcome is always recorded in
// the report, failures included.
func (s *Discord) Publish(ctx context.Context, d Digest) (Report, error) {
	report := newReport()
	report.Notifications[s.Name()] = false

	summary, err := RenderSummary(d)
	if err != nil {
		return report, err
	}
	content := truncateRunes(summary, discordMaxContent)
	if s.cfg.MentionRole != "" {
		content = fmt.Sprintf("<@&%s>\n%s", s.cfg.MentionRole, content)
	}

	body, err := json.Marshal(webhookPayload{Content: content, Username: discordUsername})
	if err != nil {
		return report, fmt.Errorf("encoding webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return report, fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httputil.DoWithRetry(ctx, s.http, req, discordRetries, s.log)
	if err != nil {
		return report, fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return report, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	report.Notifications[s.Name()] = true
	return report, nil
}
