package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"capsnap/internal/application/port"
	"capsnap/internal/domain/model"
)

type CapitalSource string

const (
	// CapitalRecomputed is total shares x latest market price.
	CapitalRecomputed CapitalSource = "recomputed"
	// CapitalSummed is the sum of stored market_value over put positions.
	CapitalSummed CapitalSource = "summed"
)

type SnapshotOptions struct {
	IncludeCurrent bool
	IncludeCalls   bool
	CapitalSource  CapitalSource
}

func DefaultSnapshotOptions() SnapshotOptions {
	return SnapshotOptions{IncludeCurrent: true, IncludeCalls: true, CapitalSource: CapitalRecomputed}
}

// SnapshotService builds one snapshot document per symbol.
type SnapshotService struct {
	gw        port.Gateway
	capital   *CapitalService
	positions *PositionService
	opts      SnapshotOptions
	now       func() time.Time
}

// NewSnapshotService assembles documents from the given capital and position
// services, which must read from gw.
func NewSnapshotService(gw port.Gateway, capital *CapitalService, positions *PositionService, opts SnapshotOptions) *SnapshotService {
	if opts.CapitalSource == "" {
		opts.CapitalSource = CapitalRecomputed
	}
	return &SnapshotService{
		gw:        gw,
		capital:   capital,
		positions: positions,
		opts:      opts,
		now:       time.Now,
	}
}

// BuildSnapshot resolves the watermark once and pins every sub-fetch to it,
// so all lists in the document describe the same ingestion batch. Any fetch
// error aborts the whole document.
func (s *SnapshotService) BuildSnapshot(ctx context.Context, symbol string) (*model.Snapshot, error) {
	wm, err := s.gw.LatestWatermark(ctx)
	if err != nil {
		return nil, port.NewDataAccessError(stepResolveWatermark, symbol, err)
	}
	return s.BuildSnapshotAt(ctx, symbol, wm)
}

func (s *SnapshotService) BuildSnapshotAt(ctx context.Context, symbol string, wm model.Watermark) (*model.Snapshot, error) {
	var (
		capital model.CapitalData
		current []model.Position
		puts    []model.Position
		calls   []model.Position
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		capital, err = s.capital.ComputeCapitalAt(gctx, symbol, wm)
		return err
	})
	if s.opts.IncludeCurrent {
		g.Go(func() error {
			var err error
			current, err = s.positions.CurrentPositions(gctx, symbol, wm)
			return err
		})
	}
	g.Go(func() error {
		var err error
		puts, err = s.positions.PutPositions(gctx, symbol, wm)
		return err
	})
	if s.opts.IncludeCalls {
		g.Go(func() error {
			var err error
			calls, err = s.positions.CallPositions(gctx, symbol, wm)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if s.opts.CapitalSource == CapitalSummed {
		capital.TotalCapitalUsed = model.SumMarketValue(puts)
	}

	return model.NewSnapshot(symbol, capital, wm, current, puts, calls, s.now()), nil
}
