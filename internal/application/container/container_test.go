package container

import (
	"context"
	"testing"

	"capsnap/internal/application/port"
	"capsnap/internal/application/service"
	"capsnap/internal/domain/model"
)

type stubGateway struct {
	wm      model.Watermark
	symbols []string
}

func (g *stubGateway) LatestWatermark(context.Context) (model.Watermark, error) { return g.wm, nil }

func (g *stubGateway) Positions(context.Context, port.PositionFilter) ([]model.Position, error) {
	return nil, nil
}

func (g *stubGateway) LatestPrice(context.Context, string) (*model.PriceQuote, error) {
	return nil, nil
}

func (g *stubGateway) DistinctSymbols(context.Context, port.SymbolFilter) ([]string, error) {
	return g.symbols, nil
}

func (g *stubGateway) Close() error { return nil }

func TestContainerServicesAreCached(t *testing.T) {
	c := New(&stubGateway{}, port.SymbolsFromPositions, service.DefaultSnapshotOptions())

	if c.SnapshotService() != c.SnapshotService() {
		t.Error("expected the same SnapshotService instance")
	}
	if c.SymbolService() != c.SymbolService() {
		t.Error("expected the same SymbolService instance")
	}
	if c.CapitalService() != c.CapitalService() {
		t.Error("expected the same CapitalService instance")
	}
	if c.PositionService() != c.PositionService() {
		t.Error("expected the same PositionService instance")
	}
}

func TestContainerServiceWorkflow(t *testing.T) {
	gw := &stubGateway{wm: "2024-06-03T20:00:00Z", symbols: []string{"AAPL", "MSFT", "AAPL"}}
	c := New(gw, port.SymbolsFromPositions, service.DefaultSnapshotOptions())
	ctx := context.Background()

	symbols, err := c.SymbolService().ListSymbols(ctx)
	if err != nil {
		t.Fatalf("ListSymbols failed: %v", err)
	}
	if len(symbols) != 2 {
		t.Fatalf("expected 2 symbols, got %v", symbols)
	}

	doc, err := c.SnapshotService().BuildSnapshot(ctx, symbols[0])
	if err != nil {
		t.Fatalf("BuildSnapshot failed: %v", err)
	}
	if doc.Symbol != "AAPL" || doc.Metadata.DataAsOf != string(gw.wm) {
		t.Errorf("unexpected document: %+v", doc)
	}
	if doc.PutPositions == nil || doc.CallPositions == nil || doc.CurrentPositions == nil {
		t.Error("lists must be empty, not nil")
	}
}

func TestSnapshotServiceUsesCachedServices(t *testing.T) {
	c := New(&stubGateway{}, port.SymbolsFromPositions, service.DefaultSnapshotOptions())

	capital := c.CapitalService()
	c.SnapshotService()

	if c.capitalService != capital {
		t.Error("SnapshotService must reuse the cached CapitalService")
	}
	if c.positionService == nil {
		t.Error("SnapshotService must build through the cached PositionService")
	}
}
