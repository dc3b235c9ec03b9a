package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/monument-sim/monument/pkg/store"
)

// Sweeper periodically re-runs the merge check over every known namespace.
// Ordinarily ticks advance inline with the final submission; the sweeper
// covers the crash window between a journaled submission and its merge.
type Sweeper struct {
	registry *store.Registry
	engine   *Engine
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper creates a new Sweeper.
func NewSweeper(registry *store.Registry, engine *Engine, interval time.Duration) *Sweeper {
	return &Sweeper{registry: registry, engine: engine, interval: interval}
}

// Start launches the background sweep loop.
func (s *Sweeper) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Merge sweeper started", "interval", s.interval)
}

// Stop signals the sweep loop to exit and waits for it to finish.
func (s *Sweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Merge sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	namespaces, err := s.registry.Known()
	if err != nil {
		slog.Error("Sweep failed to list namespaces", "error", err)
		return
	}
	for _, ns := range namespaces {
		st, err := s.registry.Get(ctx, ns)
		if err != nil {
			slog.Error("Sweep failed to open namespace", "namespace", ns, "error", err)
			continue
		}
		if _, err := s.engine.CheckAndMerge(ctx, st); err != nil {
			slog.Error("Sweep merge check failed", "namespace", ns, "error", err)
		}
	}
}
