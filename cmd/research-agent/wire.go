// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/research-agent/internal/agent"
	"github.com/pdiddy/research-agent/internal/analyze"
	"github.com/pdiddy/research-agent/internal/arxiv"
	"github.com/pdiddy/research-agent/internal/cache"
	"github.com/pdiddy/research-agent/internal/config"
	"github.com/pdiddy/research-agent/internal/logging"
	"github.com/pdiddy/research-agent/internal/publish"
)

func newLogger(l config.Loaded) (*logrus.Logger, io.Closer, error) {
	lg, closer, err := logging.New(l.Config.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("configuring logging: %w", err)
	}
	return lg, closer, nil
}

// openCache opens the configured store wrapped in TTL validation.
func openCache(l config.Loaded) (*cache.Cache, error) {
	store, err := cache.Open(l.Config.Cache, log)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return cache.New(store, l.Config.Cache.TTL, log), nil
}

// pipeline is a fully wired orchestrator plus the resources it owns.
type pipeline struct {
	orch  *agent.Orchestrator
	cache *cache.Cache
}

func (p *pipeline) Close() error {
	return p.cache.Close()
}

// buildPipeline wires the components from the loaded configuration. Cycle
// parameters are read from src on every cycle; backends and sinks are
// built once.
func buildPipeline(ctx context.Context, l config.Loaded, src agent.ConfigSource) (*pipeline, error) {
	cfg := l.Config

	reasoner, err := analyze.NewReasoner(cfg.Analyzer, log)
	if err != nil {
		return nil, err
	}
	if cli, ok := reasoner.(*analyze.CLIBackend); ok && !cli.Available() {
		return nil, fmt.Errorf("analyzer command %q not found in PATH", cfg.Analyzer.Command)
	}

	pub, err := publish.New(ctx, cfg.Output, cfg.Notifications, log)
	if err != nil {
		return nil, err
	}

	c, err := openCache(l)
	if err != nil {
		return nil, err
	}

	orch := agent.New(agent.Deps{
		Fetcher:   arxiv.NewClient(cfg.Fetch, log),
		Cache:     c,
		Analyzer:  analyze.New(reasoner, cfg.Analyzer, log),
		Publisher: pub,
		Config:    src,
		Log:       log,
	})
	return &pipeline{orch: orch, cache: c}, nil
}
