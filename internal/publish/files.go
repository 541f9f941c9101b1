// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/research-agent/internal/logging"
	"github.com/pdiddy/research-agent/pkg/types"
)

const defaultFilenamePattern = "digest_{date}_{time}"

// Archiver copies a written digest file somewhere durable and returns its
// location.
type Archiver interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
}

// FileWriter writes digest documents into the output directory and, when
// Archive is set, uploads each file after writing it.
type FileWriter struct {
	cfg     types.OutputConfig
	Archive Archiver
	log     logrus.FieldLogger
}

// NewFileWriter returns a FileWriter for cfg. A nil log discards output.
func NewFileWriter(cfg types.OutputConfig, log logrus.FieldLogger) *FileWriter {
	if log == nil {
		log = logging.Discard()
	}
	if cfg.FilenamePattern == "" {
		cfg.FilenamePattern = defaultFilenamePattern
	}
	return &FileWriter{cfg: cfg, log: log}
}

// Name implements Publisher.
func (w *FileWriter) Name() string { return "files" }

type format struct {
	name   string
	ext    string
	render func(Digest) ([]byte, error)
}

func (w *FileWriter) formats() []format {
	var out []format
	if w.cfg.JSON {
		out = append(out, format{"json", ".json", RenderJSON})
	}
	if w.cfg.YAML {
		out = append(out, format{"yaml", ".yaml", RenderYAML})
	}
	if w.cfg.Markdown {
		out = append(out, format{"markdown", ".md", RenderMarkdown})
	}
	return out
}

// Publish writes one file per enabled format. Report artifacts are keyed
// by format name; archived copies are keyed "archive:<format>".
func (w *FileWriter) Publish(ctx context.Context, d Digest) (Report, error) {
	report := newReport()
	if err := os.MkdirAll(w.cfg.Dir, 0o755); err != nil {
		return report, fmt.Errorf("creating output directory: %w", err)
	}

	base := w.basename(d)
	var errs []error
	for _, f := range w.formats() {
		data, err := f.render(d)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		path := filepath.Join(w.cfg.Dir, base+f.ext)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			errs = append(errs, fmt.Errorf("writing %s: %w", path, err))
			continue
		}
		report.Artifacts[f.name] = path
		w.log.WithFields(logrus.Fields{"format": f.name, "path": path}).Info("wrote digest")

		if w.Archive == nil {
			continue
		}
		location, err := w.Archive.Upload(ctx, path, base+f.ext)
		if err != nil {
			errs = append(errs, fmt.Errorf("archiving %s: %w", path, err))
			continue
		}
		report.Artifacts["archive:"+f.name] = location
	}
	return report, errors.Join(errs...)
}

// basename expands {date}, {time}, and {job} in the filename pattern.
func (w *FileWriter) basename(d Digest) string {
	job := d.Job
	if job == "" {
		job = "digest"
	}
	return strings.NewReplacer(
		"{date}", d.GeneratedAt.Format("20060102"),
		"{time}", d.GeneratedAt.Format("150405"),
		"{job}", job,
	).Replace(w.cfg.FilenamePattern)
}
