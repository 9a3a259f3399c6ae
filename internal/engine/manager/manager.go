package manager

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"Go2NetProfile/internal/config"
	"Go2NetProfile/internal/engine/extractor"
	"Go2NetProfile/internal/factory"
	"Go2NetProfile/internal/model"
	"Go2NetProfile/internal/render"
	"Go2NetProfile/internal/report"
	"Go2NetProfile/internal/resolver"
	_ "Go2NetProfile/internal/writer" // Registers summary writers
	"Go2NetProfile/pkg/pcap"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// LoadFunc reads a capture file into a trace.
type LoadFunc func(path string) (*model.Trace, error)

// Result is the outcome of one Run.
type Result struct {
	Run       model.Run
	Bundles   []*model.ActivityBundle
	Summaries []model.FlowSummary
	// NoData is set when no activity produced a bundle; nothing was rendered
	// or written in that case.
	NoData bool
}

// Manager drives the load, extract, render and write pipeline over a list of
// activities.
type Manager struct {
	load      LoadFunc
	extractor *extractor.Extractor
	renderer  model.Renderer
	writers   []model.Writer
	report    io.Writer
	notices   io.Writer
	logger    *zap.Logger
}

// Option customises a Manager.
type Option func(*Manager)

// WithLoader replaces the capture loader.
func WithLoader(load LoadFunc) Option {
	return func(m *Manager) { m.load = load }
}

// WithRenderer replaces the figure renderer. A nil renderer disables rendering.
func WithRenderer(r model.Renderer) Option {
	return func(m *Manager) { m.renderer = r }
}

// WithWriters replaces the summary writers.
func WithWriters(writers ...model.Writer) Option {
	return func(m *Manager) { m.writers = writers }
}

// WithReport prints the summary table to w after each run.
func WithReport(w io.Writer) Option {
	return func(m *Manager) { m.report = w }
}

// WithNotices prints skipped files and the no-data notice to w, independent
// of the log level.
func WithNotices(w io.Writer) Option {
	return func(m *Manager) { m.notices = w }
}

// NewManager builds a Manager from the configuration: the pcap loader, the
// configured tasks, the figure renderer when enabled and every enabled writer.
func NewManager(cfg *config.Config, logger *zap.Logger, opts ...Option) (*Manager, error) {
	ex, err := extractor.New(cfg)
	if err != nil {
		return nil, err
	}

	loaderOpts := pcap.Options{IPv6: cfg.Loader.IPv6, MaxPackets: cfg.Loader.MaxPackets}
	m := &Manager{
		load: func(path string) (*model.Trace, error) {
			return pcap.Load(path, loaderOpts)
		},
		extractor: ex,
		logger:    logger,
	}
	if cfg.Render.Enabled {
		m.renderer = render.NewFigure(cfg.Render, logger)
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.writers == nil {
		writers, err := factory.CreateWriters(cfg, logger)
		if err != nil {
			return nil, err
		}
		m.writers = writers
	}

	logger.Info("Manager initialized",
		zap.Strings("tasks", ex.TaskNames()),
		zap.Bool("render", m.renderer != nil),
		zap.Int("writers", len(m.writers)))
	return m, nil
}

// Analyze loads and extracts every activity in order. Activities whose path
// cannot be resolved or does not name a file are skipped; a capture that
// cannot be read aborts the analysis.
func (m *Manager) Analyze(ctx context.Context, activities []string, res resolver.Resolver) ([]*model.ActivityBundle, error) {
	var bundles []*model.ActivityBundle
	for _, activity := range activities {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path, err := res.Resolve(activity)
		if err != nil {
			m.logger.Warn("File not found", zap.String("activity", activity), zap.Error(err))
			m.notify("File not found for '%s'\n", activity)
			continue
		}
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			m.logger.Warn("File not found", zap.String("activity", activity), zap.String("path", path))
			m.notify("File not found: %s\n", path)
			continue
		}

		start := time.Now()
		trace, err := m.load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load trace for '%s': %w", activity, err)
		}
		bundle, err := m.extractor.Extract(activity, trace)
		if err != nil {
			return nil, fmt.Errorf("failed to extract metrics for '%s': %w", activity, err)
		}

		m.logger.Info("Activity analyzed",
			zap.String("activity", activity),
			zap.String("path", path),
			zap.Int("records", len(trace.Records)),
			zap.Int("dropped", trace.Dropped),
			zap.Uint64("flows", bundle.Summary.UniqueFlows),
			zap.Duration("elapsed", time.Since(start)))
		bundles = append(bundles, bundle)
	}
	return bundles, nil
}

// Run analyzes the activities, renders the figure once and hands the summary
// table to every writer once. Writer failures do not stop the other writers
// and are returned together.
func (m *Manager) Run(ctx context.Context, activities []string, res resolver.Resolver) (*Result, error) {
	bundles, err := m.Analyze(ctx, activities, res)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Run:     model.Run{ID: uuid.NewString(), StartedAt: time.Now()},
		Bundles: bundles,
	}
	if len(bundles) == 0 {
		m.logger.Warn("No valid data available for analysis.")
		m.notify("No valid data available for analysis.\n")
		result.NoData = true
		return result, nil
	}

	result.Summaries = make([]model.FlowSummary, len(bundles))
	for i, b := range bundles {
		result.Summaries[i] = b.Summary
	}

	var errs error
	if m.renderer != nil {
		if err := m.renderer.Render(result.Run, bundles); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to render figure: %w", err))
		}
	}
	if m.report != nil {
		if err := report.Print(m.report, result.Run, result.Summaries); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to print summary: %w", err))
		}
	}
	for _, w := range m.writers {
		if err := w.Write(ctx, result.Run, result.Summaries); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("writer '%s' failed: %w", w.Name(), err))
		}
	}
	return result, errs
}

func (m *Manager) notify(format string, args ...any) {
	if m.notices != nil {
		fmt.Fprintf(m.notices, format, args...)
	}
}

// Close closes every writer.
func (m *Manager) Close() error {
	var errs error
	for _, w := range m.writers {
		errs = multierr.Append(errs, w.Close())
	}
	m.logger.Info("Manager stopped.")
	return errs
}
