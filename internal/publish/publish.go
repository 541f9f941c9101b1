// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package publish turns the final set of analyzed papers into digest
// documents and notification deliveries.
package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/research-agent/internal/logging"
	"github.com/pdiddy/research-agent/pkg/types"
)

// highSignificance marks papers counted as high significance in summaries.
const highSignificance = 0.7

// Digest is everything one cycle hands to the publish layer. Items are
// ranked, deduplicated, and already past the significance threshold.
type Digest struct {
	Title       string
	Job         string
	CycleID     string
	GeneratedAt time.Time
	Items       []types.Analyzed
	Trends      *types.TrendReport
	Insights    string
}

// HighSignificanceCount returns how many items score at least 0.7 on
// significance.
func (d Digest) HighSignificanceCount() int {
	n := 0
	for _, it := range d.Items {
		if it.Analysis.SignificanceScore >= highSignificance {
			n++
		}
	}
	return n
}

// AverageNovelty returns the mean novelty score, or 0 for an empty digest.
func (d Digest) AverageNovelty() float64 {
	if len(d.Items) == 0 {
		return 0
	}
	var sum float64
	for _, it := range d.Items {
		sum += it.Analysis.NoveltyScore
	}
	return sum / float64(len(d.Items))
}

// Report records where a digest ended up. Artifacts maps a format or
// upload key to its location; Notifications maps a sink to delivery success.
type Report struct {
	Artifacts     map[string]string
	Notifications map[string]bool
}

func newReport() Report {
	return Report{Artifacts: map[string]string{}, Notifications: map[string]bool{}}
}

func (r Report) merge(other Report) {
	for k, v := range other.Artifacts {
		r.Artifacts[k] = v
	}
	for k, v := range other.Notifications {
		r.Notifications[k] = v
	}
}

// Publisher delivers a digest to one destination.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, d Digest) (Report, error)
}

// Multi fans a digest out to every sink in order. A failing sink is logged
// and recorded; it never stops the remaining sinks.
type Multi struct {
	sinks []Publisher
	log   logrus.FieldLogger
}

// NewMulti returns a Multi over sinks. A nil log discards output.
func NewMulti(log logrus.FieldLogger, sinks ...Publisher) *Multi {
	if log == nil {
		log = logging.Discard()
	}
	return &Multi{sinks: sinks, log: log}
}

// Name implements Publisher.
func (m *Multi) Name() string { return "multi" }

// Publish sends d to every sink and returns the merged report together
// with the joined sink errors.
func (m *Multi) Publish(ctx context.Context, d Digest) (Report, error) {
	report := newReport()
	var errs []error
	for _, s := range m.sinks {
		r, err := s.Publish(ctx, d)
		report.merge(r)
		if err != nil {
			m.log.WithError(err).WithField("sink", s.Name()).Error("publishing digest failed")
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		m.log.WithField("sink", s.Name()).Info("published digest")
	}
	return report, errors.Join(errs...)
}

// New builds the configured sinks: the file writer always, the object
// store archive and the chat webhook when enabled.
func New(ctx context.Context, out types.OutputConfig, notif types.NotificationConfig, log logrus.FieldLogger) (*Multi, error) {
	if log == nil {
		log = logging.Discard()
	}

	fw := NewFileWriter(out, log)
	if notif.ObjectStore.Enabled {
		store, err := NewObjectStore(ctx, notif.ObjectStore)
		if err != nil {
			return nil, fmt.Errorf("connecting object store: %w", err)
		}
		fw.Archive = store
	}

	sinks := []Publisher{fw}
	if notif.Discord.Enabled {
		if notif.Discord.WebhookURL == "" {
			log.Warn("discord enabled without a webhook URL, skipping")
		} else {
			sinks = append(sinks, NewDiscord(notif.Discord, log))
		}
	}
	return NewMulti(log, sinks...), nil
}
