package port

import (
	"context"

	"capsnap/internal/domain/model"
)

// DocumentSink persists one snapshot document per symbol, replacing any
// previous one.
type DocumentSink interface {
	Name() string
	Write(ctx context.Context, symbol string, doc *model.Snapshot) error
}

// RunSummary is emitted once per batch pass.
type RunSummary struct {
	RunID     string
	Symbols   int
	Written   int
	Failed    []string
	StartedAt int64 // unix ms
	EndedAt   int64 // unix ms
}

// RunReporter is optionally implemented by sinks that want the batch summary.
type RunReporter interface {
	ReportRun(ctx context.Context, s RunSummary) error
}
