package port

import (
	"context"

	"capsnap/internal/domain/model"
)

// PositionFilter narrows a positions query. Zero fields are not applied,
// except Watermark which every query is bound to.
type PositionFilter struct {
	Symbol        string // exact match
	AssetClass    string // exact match, e.g. model.AssetClassStock
	SymbolPattern string // case-insensitive LIKE pattern, % and _ wildcards
	Watermark     model.Watermark
}

type SymbolSource string

const (
	SymbolsFromPositions SymbolSource = "positions"
	SymbolsFromOrders    SymbolSource = "orders"
)

type SymbolFilter struct {
	Source     SymbolSource
	AssetClass string
	Watermark  model.Watermark // positions source only
}

// Gateway is the read side of the positions store.
type Gateway interface {
	// LatestWatermark returns the most recent fetched_at in the positions
	// table, or "" when the table is empty.
	LatestWatermark(ctx context.Context) (model.Watermark, error)

	Positions(ctx context.Context, f PositionFilter) ([]model.Position, error)

	// LatestPrice returns the market_price row with the highest id for
	// symbol, or nil when there is none.
	LatestPrice(ctx context.Context, symbol string) (*model.PriceQuote, error)

	// DistinctSymbols returns symbols in first-seen order without duplicates.
	DistinctSymbols(ctx context.Context, f SymbolFilter) ([]string, error)

	Close() error
}
