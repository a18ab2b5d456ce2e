// Package module implements the batch module
package module

import (
	"sondeo/internal/core/lexicon"
	"sondeo/internal/modkit"
	str "sondeo/internal/platform/strings"
	"sondeo/internal/services/batch/domain"
	"sondeo/internal/services/batch/service"
)

// Ports exposed by the batch module
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements modkit.Module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs a new batch module
func New(deps modkit.Deps, overrides Options, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("batch"),
	}, opts...)...)

	// Basic guardrails against incorrect wiring
	ports, ok := b.Ports.(domain.Ports)
	if !ok {
		panic("batch module: expected WithPorts(batch/domain.Ports)")
	}
	if ports.Source == nil {
		panic("batch module: Ports missing Source")
	}

	// Merge config + overrides
	cfg := FromConfig(deps.Cfg)
	if overrides.ChunkSize != 0 {
		cfg.ChunkSize = overrides.ChunkSize
	}
	if overrides.Workers != 0 {
		cfg.Workers = overrides.Workers
	}
	if overrides.TargetMemoryMB != 0 {
		cfg.TargetMemoryMB = overrides.TargetMemoryMB
	}
	if overrides.Threshold != 0 {
		cfg.Threshold = overrides.Threshold
	}
	cfg.Analyses = str.IfEmpty(overrides.Analyses, cfg.Analyses)
	if overrides.PackPath != "" {
		cfg.PackPath = overrides.PackPath
	}
	// bool override wins (defaults false if caller didn't set)
	cfg.Fuzzy = cfg.Fuzzy || overrides.Fuzzy

	// Shared lexicon for all workers; embedded pack unless a file overrides it
	var (
		p   *lexicon.Pack
		err error
	)
	if cfg.PackPath != "" {
		p, err = lexicon.LoadFile(cfg.PackPath)
	} else {
		p, err = lexicon.Load()
	}
	if err != nil {
		panic(err)
	}

	runner := service.New(ports, p, service.Config{
		ChunkSize:      cfg.ChunkSize,
		Workers:        cfg.Workers,
		TargetMemoryMB: cfg.TargetMemoryMB,
		Fuzzy:          cfg.Fuzzy,
		Threshold:      cfg.Threshold,
		Analyses:       domain.ParseAnalyses(cfg.Analyses),
	})

	m := &Module{deps: deps}
	m.ports = Ports{Runner: runner}
	return m
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return "batch" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }
