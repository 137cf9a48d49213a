// Package monitor keeps a live dashboard current. A refresh task re-fetches
// the night on a coarse interval; a tick task re-derives countdowns from the
// latest snapshot on a fine interval. The tasks share only the snapshot.
package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jakechorley/tail-temps/pkg/core/services"
)

// BuildFunc fetches a fresh dashboard snapshot
type BuildFunc func(ctx context.Context) (*services.Dashboard, error)

// RenderFunc displays a dashboard; it is called from the tick task only
type RenderFunc func(d *services.Dashboard)

// Options configures the two task intervals
type Options struct {
	Refresh time.Duration
	Tick    time.Duration
	// Clock defaults to time.Now
	Clock func() time.Time
}

// Monitor runs the refresh and tick tasks
type Monitor struct {
	opts     Options
	build    BuildFunc
	render   RenderFunc
	logger   *zap.Logger
	snapshot atomic.Pointer[services.Dashboard]
	failures atomic.Int64
}

// New creates a monitor
func New(opts Options, build BuildFunc, render RenderFunc, logger *zap.Logger) *Monitor {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Monitor{opts: opts, build: build, render: render, logger: logger}
}

// Snapshot returns the latest fetched dashboard, or nil before the first fetch
func (m *Monitor) Snapshot() *services.Dashboard {
	return m.snapshot.Load()
}

// Failures returns how many refreshes have failed
func (m *Monitor) Failures() int64 {
	return m.failures.Load()
}

// Run blocks until ctx is cancelled. A failed refresh keeps the previous
// snapshot on screen and is retried on the next interval.
func (m *Monitor) Run(ctx context.Context) error {
	if m.opts.Refresh <= 0 || m.opts.Tick <= 0 {
		return errors.New("monitor intervals must be positive")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.refreshLoop(gctx) })
	g.Go(func() error { return m.tickLoop(gctx) })

	err := g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (m *Monitor) refreshLoop(ctx context.Context) error {
	m.refresh(ctx)

	ticker := time.NewTicker(m.opts.Refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.refresh(ctx)
		}
	}
}

func (m *Monitor) refresh(ctx context.Context) {
	d, err := m.build(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.failures.Add(1)
		m.logger.Warn("Dashboard refresh failed", zap.Error(err))
		return
	}
	m.snapshot.Store(d)
	m.logger.Debug("Dashboard refreshed", zap.Int("aircraft", d.Total))
}

func (m *Monitor) tickLoop(ctx context.Context) error {
	ticker := time.NewTicker(m.opts.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d := m.snapshot.Load()
			if d == nil {
				continue
			}
			m.render(services.Recompute(d, m.opts.Clock()))
		}
	}
}
