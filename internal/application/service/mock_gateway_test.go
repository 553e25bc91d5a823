package service

import (
	"context"
	"strings"
	"sync"

	"capsnap/internal/application/port"
	"capsnap/internal/domain/model"
)

type mockGateway struct {
	mu        sync.Mutex
	positions []model.Position
	prices    []model.PriceQuote
	orders    []string

	watermarkErr error
	priceErr     error
	symbolsErr   error
	// positionsErr is consulted on every Positions call.
	positionsErr func(f port.PositionFilter) error

	watermarkCalls int
}

func (m *mockGateway) LatestWatermark(ctx context.Context) (model.Watermark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watermarkCalls++
	if m.watermarkErr != nil {
		return "", m.watermarkErr
	}
	var latest string
	for _, p := range m.positions {
		if p.FetchedAt > latest {
			latest = p.FetchedAt
		}
	}
	return model.Watermark(latest), nil
}

func (m *mockGateway) Positions(ctx context.Context, f port.PositionFilter) ([]model.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.positionsErr != nil {
		if err := m.positionsErr(f); err != nil {
			return nil, err
		}
	}
	prefix := strings.ToUpper(strings.NewReplacer(`\%`, `%`, `\_`, `_`, `\\`, `\`).Replace(strings.TrimSuffix(f.SymbolPattern, "%")))

	var out []model.Position
	for _, p := range m.positions {
		if p.FetchedAt != string(f.Watermark) {
			continue
		}
		if f.Symbol != "" && p.Symbol != f.Symbol {
			continue
		}
		if f.AssetClass != "" && p.AssetClass != f.AssetClass {
			continue
		}
		if f.SymbolPattern != "" && !strings.HasPrefix(strings.ToUpper(p.Symbol), prefix) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *mockGateway) LatestPrice(ctx context.Context, symbol string) (*model.PriceQuote, error) {
	if m.priceErr != nil {
		return nil, m.priceErr
	}
	var best *model.PriceQuote
	for i := range m.prices {
		q := m.prices[i]
		if q.Symbol != symbol {
			continue
		}
		if best == nil || q.ID > best.ID {
			best = &q
		}
	}
	return best, nil
}

func (m *mockGateway) DistinctSymbols(ctx context.Context, f port.SymbolFilter) ([]string, error) {
	if m.symbolsErr != nil {
		return nil, m.symbolsErr
	}
	if f.Source == port.SymbolsFromOrders {
		return m.orders, nil
	}
	var out []string
	for _, p := range m.positions {
		if p.FetchedAt == string(f.Watermark) && p.AssetClass == f.AssetClass {
			out = append(out, p.Symbol)
		}
	}
	return out, nil
}

func (m *mockGateway) Close() error { return nil }

var _ port.Gateway = (*mockGateway)(nil)

func stk(symbol string, qty float64, fetchedAt string) model.Position {
	return model.Position{Symbol: symbol, AssetClass: model.AssetClassStock, AccountingQuantity: qty, FetchedAt: fetchedAt}
}

func opt(symbol string, qty float64, entity, fetchedAt string) model.Position {
	return model.Position{Symbol: symbol, AssetClass: "OPT", AccountingQuantity: qty, LegalEntity: entity, FetchedAt: fetchedAt}
}
