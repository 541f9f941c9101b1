// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-agent/pkg/types"
)

type fakeArchive struct {
	uploads map[string]string
	err     error
}

func (f *fakeArchive) Upload(_ context.Context, localPath, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.uploads == nil {
		f.uploads = map[string]string{}
	}
	f.uploads[key] = localPath
	return "s3://bucket/" + key, nil
}

func TestFileWriter_WritesEnabledFormats(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	w := NewFileWriter(types.OutputConfig{Dir: dir, JSON: true, YAML: true, Markdown: true}, nil)

	report, err := w.Publish(context.Background(), sampleDigest())
	require.NoError(t, err)

	want := map[string]string{
		"json":     filepath.Join(dir, "digest_20250310_090507.json"),
		"yaml":     filepath.Join(dir, "digest_20250310_090507.yaml"),
		"markdown": filepath.Join(dir, "digest_20250310_090507.md"),
	}
	assert.Equal(t, want, report.Artifacts)
	for _, path := range want {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}

func TestFileWriter_NoFormats(t *testing.T) {
	w := NewFileWriter(types.OutputConfig{Dir: t.TempDir()}, nil)
	report, err := w.Publish(context.Background(), sampleDigest())
	require.NoError(t, err)
	assert.Empty(t, report.Artifacts)
}

func TestFileWriter_Basename(t *testing.T) {
	tests := []struct {
		pattern string
		job     string
		want    string
	}{
		{"", "daily", "digest_20250310_090507"},
		{"{job}-{date}", "weekly", "weekly-20250310"},
		{"{job}", "", "digest"},
		{"static", "daily", "static"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			w := NewFileWriter(types.OutputConfig{FilenamePattern: tt.pattern}, nil)
			assert.Equal(t, tt.want, w.basename(Digest{Job: tt.job, GeneratedAt: generatedAt}))
		})
	}
}

func TestFileWriter_Archives(t *testing.T) {
	dir := t.TempDir()
	archive := &fakeArchive{}
	w := NewFileWriter(types.OutputConfig{Dir: dir, JSON: true, FilenamePattern: "{job}_{date}"}, nil)
	w.Archive = archive

	report, err := w.Publish(context.Background(), sampleDigest())
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/daily_20250310.json", report.Artifacts["archive:json"])
	assert.Equal(t, filepath.Join(dir, "daily_20250310.json"), archive.uploads["daily_20250310.json"])
}

func TestFileWriter_ArchiveFailureKeepsLocalFile(t *testing.T) {
	dir := t.TempDir()
	w := NewFileWriter(types.OutputConfig{Dir: dir, Markdown: true}, nil)
	w.Archive = &fakeArchive{err: errors.New("bucket gone")}

	report, err := w.Publish(context.Background(), sampleDigest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket gone")
	assert.Contains(t, report.Artifacts, "markdown")
	assert.NotContains(t, report.Artifacts, "archive:markdown")
}

func TestObjectKeyAndContentType(t *testing.T) {
	assert.Equal(t, "d.json", objectKey("", "d.json"))
	assert.Equal(t, "digests/d.json", objectKey("digests/", "d.json"))

	assert.Equal(t, "application/json", contentType("/x/d.json"))
	assert.Equal(t, "application/yaml", contentType("d.yaml"))
	assert.Equal(t, "text/markdown; charset=utf-8", contentType("d.md"))
	assert.Equal(t, "application/octet-stream", contentType("d.bin"))
}
