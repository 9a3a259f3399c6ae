package model

import "context"

// Writer defines a generic interface for persisting the per-activity summary table.
type Writer interface {
	// Write persists one row per summary, in the given order.
	Write(ctx context.Context, run Run, summaries []FlowSummary) error

	// Name returns the writer type, e.g. "csv".
	Name() string

	Close() error
}

// Renderer turns a set of bundles into a visual comparison.
type Renderer interface {
	Render(run Run, bundles []*ActivityBundle) error
}
