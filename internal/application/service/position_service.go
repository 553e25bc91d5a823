package service

import (
	"context"
	"strings"

	"capsnap/internal/application/port"
	"capsnap/internal/domain/model"
)

const (
	stepCurrentPositions = "fetch current positions"
	stepPutPositions     = "fetch put positions"
	stepCallPositions    = "fetch call positions"
)

// PositionService reads the position lists that go into a snapshot. All
// reads are pinned to the watermark passed in.
type PositionService struct {
	gw port.Gateway
}

func NewPositionService(gw port.Gateway) *PositionService {
	return &PositionService{gw: gw}
}

// CurrentPositions returns the equity rows for symbol (exact match).
func (s *PositionService) CurrentPositions(ctx context.Context, symbol string, wm model.Watermark) ([]model.Position, error) {
	if wm.IsZero() {
		return []model.Position{}, nil
	}
	rows, err := s.gw.Positions(ctx, port.PositionFilter{
		Symbol:     symbol,
		AssetClass: model.AssetClassStock,
		Watermark:  wm,
	})
	if err != nil {
		return nil, port.NewDataAccessError(stepCurrentPositions, symbol, err)
	}
	return rows, nil
}

func (s *PositionService) PutPositions(ctx context.Context, symbol string, wm model.Watermark) ([]model.Position, error) {
	return s.optionPositions(ctx, symbol, wm, model.OptionPut, stepPutPositions)
}

func (s *PositionService) CallPositions(ctx context.Context, symbol string, wm model.Watermark) ([]model.Position, error) {
	return s.optionPositions(ctx, symbol, wm, model.OptionCall, stepCallPositions)
}

// optionPositions narrows in the store by symbol prefix, then keeps the rows
// whose symbol parses as an option of type t on this exact underlying.
func (s *PositionService) optionPositions(ctx context.Context, symbol string, wm model.Watermark, t model.OptionType, step string) ([]model.Position, error) {
	if wm.IsZero() {
		return []model.Position{}, nil
	}
	rows, err := s.gw.Positions(ctx, port.PositionFilter{
		SymbolPattern: LikePrefix(symbol),
		Watermark:     wm,
	})
	if err != nil {
		return nil, port.NewDataAccessError(step, symbol, err)
	}

	out := make([]model.Position, 0, len(rows))
	for _, p := range rows {
		if model.IsOptionOn(p.Symbol, symbol, t) {
			out = append(out, p)
		}
	}
	return out, nil
}

// LikePrefix builds a LIKE pattern matching anything starting with symbol.
// LIKE metacharacters in the symbol are escaped with a backslash.
func LikePrefix(symbol string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(strings.TrimSpace(symbol)) + "%"
}
