package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"capsnap/internal/application/port"
	"capsnap/internal/domain/model"
)

type SymbolLister interface {
	ListSymbols(ctx context.Context) ([]string, error)
}

type SnapshotBuilder interface {
	BuildSnapshot(ctx context.Context, symbol string) (*model.Snapshot, error)
}

type ServiceDeps struct {
	Symbols       SymbolLister
	Snapshots     SnapshotBuilder
	Sink          port.DocumentSink
	SymbolTimeout time.Duration
}

// Service runs one extract-aggregate-write pass over every symbol.
type Service struct {
	deps ServiceDeps
}

func NewService(deps ServiceDeps) *Service {
	return &Service{deps: deps}
}

// Run processes symbols one at a time in enumeration order. Failing to list
// symbols aborts the run; a failing symbol is logged and skipped.
func (s *Service) Run(ctx context.Context) (port.RunSummary, error) {
	summary := port.RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UnixMilli(),
	}
	logger := log.With().Str("run_id", summary.RunID).Logger()

	symbols, err := s.deps.Symbols.ListSymbols(ctx)
	if err != nil {
		return summary, fmt.Errorf("enumerate symbols: %w", err)
	}
	summary.Symbols = len(symbols)
	logger.Info().Int("symbols", len(symbols)).Msg("run started")

	for _, symbol := range symbols {
		if ctx.Err() != nil {
			logger.Warn().Err(ctx.Err()).Msg("run interrupted")
			break
		}
		if err := s.processSymbol(ctx, symbol); err != nil {
			summary.Failed = append(summary.Failed, symbol)
			logger.Error().
				Err(err).
				Str("symbol", symbol).
				Str("step", failedStep(err)).
				Msg("symbol failed")
			continue
		}
		summary.Written++
		logger.Info().Str("symbol", symbol).Msg("snapshot written")
	}

	summary.EndedAt = time.Now().UnixMilli()
	if r, ok := s.deps.Sink.(port.RunReporter); ok {
		if err := r.ReportRun(ctx, summary); err != nil {
			logger.Warn().Err(err).Msg("report run failed")
		}
	}

	logger.Info().
		Int("written", summary.Written).
		Int("failed", len(summary.Failed)).
		Int64("duration_ms", summary.EndedAt-summary.StartedAt).
		Msg("run finished")
	return summary, nil
}

func (s *Service) processSymbol(ctx context.Context, symbol string) error {
	if s.deps.SymbolTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.deps.SymbolTimeout)
		defer cancel()
	}

	doc, err := s.deps.Snapshots.BuildSnapshot(ctx, symbol)
	if err != nil {
		return err
	}
	return s.deps.Sink.Write(ctx, symbol, doc)
}

func failedStep(err error) string {
	var dae *port.DataAccessError
	if errors.As(err, &dae) {
		return dae.Step
	}
	var we *port.WriteError
	if errors.As(err, &we) {
		return "write"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "unknown"
}
