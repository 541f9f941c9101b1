// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pdiddy/research-agent/pkg/types"
)

const (
	papersDir   = "papers"
	analysesDir = "analyses"
	metadataDir = "metadata"
	indexFile   = "index.json"
)

// FileStore keeps the cache as JSON files under a directory:
//
//	<dir>/metadata/index.json
//	<dir>/papers/<id>.json
//	<dir>/analyses/<id>.json
//
// The index is held in memory and rewritten atomically on every change.
type FileStore struct {
	dir string

	mu    sync.Mutex
	index map[string]types.CacheEntry
}

// NewFileStore opens (creating if needed) a file-backed store rooted at dir.
// Index records that fail to decode are kept with a zero timestamp so the
// Cache purges them on first access.
func NewFileStore(dir string) (*FileStore, error) {
	for _, sub := range []string{papersDir, analysesDir, metadataDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	s := &FileStore{dir: dir, index: make(map[string]types.CacheEntry)}

	data, err := os.ReadFile(s.indexPath())
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache index: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// Corrupt index: start empty, existing blobs become orphans.
		return s, nil
	}
	for id, msg := range raw {
		var e types.CacheEntry
		if err := json.Unmarshal(msg, &e); err != nil {
			e = types.CacheEntry{}
		}
		e.PaperID = id
		s.index[id] = e
	}
	return s, nil
}

func (s *FileStore) indexPath() string {
	return filepath.Join(s.dir, metadataDir, indexFile)
}

func (s *FileStore) paperPath(id string) string {
	return filepath.Join(s.dir, papersDir, blobName(id)+".json")
}

func (s *FileStore) analysisPath(id string) string {
	return filepath.Join(s.dir, analysesDir, blobName(id)+".json")
}

// Entries returns all index records ordered by paper ID.
func (s *FileStore) Entries(_ context.Context) ([]types.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.CacheEntry, 0, len(s.index))
	for _, e := range s.index {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaperID < out[j].PaperID })
	return out, nil
}

func (s *FileStore) Entry(_ context.Context, id string) (types.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.index[id]
	if !ok {
		return types.CacheEntry{}, ErrNotFound
	}
	return e, nil
}

func (s *FileStore) SaveEntry(_ context.Context, e types.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, existed := s.index[e.PaperID]
	s.index[e.PaperID] = e
	if err := s.flushLocked(); err != nil {
		if existed {
			s.index[e.PaperID] = prev
		} else {
			delete(s.index, e.PaperID)
		}
		return err
	}
	return nil
}

func (s *FileStore) SavePaper(_ context.Context, p types.Paper) error {
	return writeJSON(s.paperPath(p.ID), p)
}

func (s *FileStore) LoadPaper(_ context.Context, id string) (types.Paper, error) {
	var p types.Paper
	err := readJSON(s.paperPath(id), &p)
	return p, err
}

func (s *FileStore) SaveAnalysis(_ context.Context, a types.Analysis) error {
	return writeJSON(s.analysisPath(a.PaperID), a)
}

func (s *FileStore) LoadAnalysis(_ context.Context, id string) (types.Analysis, error) {
	var a types.Analysis
	err := readJSON(s.analysisPath(id), &a)
	return a, err
}

// Delete removes the index record and both blobs for id.
func (s *FileStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if _, ok := s.index[id]; ok {
		delete(s.index, id)
		if err := s.flushLocked(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, path := range []string{s.paperPath(id), s.analysisPath(id)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Clear empties the index and removes every blob, orphans included.
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.index = make(map[string]types.CacheEntry)
	errs := []error{s.flushLocked()}
	for _, sub := range []string{papersDir, analysesDir} {
		matches, _ := filepath.Glob(filepath.Join(s.dir, sub, "*.json"))
		for _, m := range matches {
			if err := os.Remove(m); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Size sums the sizes of all regular files under the cache directory.
func (s *FileStore) Size(_ context.Context) (int64, error) {
	var total int64
	err := filepath.WalkDir(s.dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
		}
		return nil
	})
	return total, err
}

func (s *FileStore) Location() string { return s.dir }

func (s *FileStore) Close() error { return nil }

func (s *FileStore) flushLocked() error {
	if err := writeJSON(s.indexPath(), s.index); err != nil {
		return fmt.Errorf("writing cache index: %w", err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeJSON writes v atomically: temp file, fsync, rename.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".cache-tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	ok := false
	defer func() {
		if !ok {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	ok = true
	return nil
}
