// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/research-agent/internal/logging"
	"github.com/pdiddy/research-agent/pkg/types"
)

// Watcher holds the current configuration and reloads it when the config
// file changes. A reload that fails to parse or validate keeps the previous
// configuration.
type Watcher struct {
	opts    Options
	path    string
	log     logrus.FieldLogger
	current atomic.Pointer[types.AgentConfig]
	fs      *fsnotify.Watcher

	mu       sync.Mutex
	onReload []func(types.AgentConfig)
}

// Watch starts watching the file that produced loaded. The directory is
// watched so that editors replacing the file by rename are seen.
func Watch(opts Options, loaded Loaded) (*Watcher, error) {
	if loaded.File == "" {
		return nil, fmt.Errorf("no config file to watch")
	}
	log := opts.Log
	if log == nil {
		log = logging.Discard()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	path := filepath.Clean(loaded.File)
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	opts.File = path
	w := &Watcher{opts: opts, path: path, log: log.WithField("file", path), fs: fw}
	cfg := loaded.Config
	w.current.Store(&cfg)
	return w, nil
}

// Current returns the latest valid configuration.
func (w *Watcher) Current() types.AgentConfig {
	return *w.current.Load()
}

// OnReload registers fn to run after each successful reload.
func (w *Watcher) OnReload(fn func(types.AgentConfig)) {
	w.mu.Lock()
	w.onReload = append(w.onReload, fn)
	w.mu.Unlock()
}

// Run processes file events until ctx is done or Close is called.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				w.Reload()
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("config watcher error")
		}
	}
}

// Reload re-reads the config file and reports whether it was applied.
func (w *Watcher) Reload() bool {
	loaded, err := Load(w.opts)
	if err != nil {
		w.log.WithError(err).Error("config reload failed, keeping previous configuration")
		return false
	}
	cfg := loaded.Config
	w.current.Store(&cfg)
	w.log.Info("configuration reloaded")

	w.mu.Lock()
	hooks := append([]func(types.AgentConfig){}, w.onReload...)
	w.mu.Unlock()
	for _, fn := range hooks {
		fn(cfg)
	}
	return true
}

// Close stops the underlying file watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
