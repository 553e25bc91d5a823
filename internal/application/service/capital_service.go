package service

import (
	"context"

	"github.com/shopspring/decimal"

	"capsnap/internal/application/port"
	"capsnap/internal/domain/model"
)

const (
	stepResolveWatermark = "resolve watermark"
	stepStockPositions   = "fetch stock positions"
	stepMarketPrice      = "fetch market price"
)

// CapitalService derives capital usage for a symbol from its equity rows in
// the latest ingestion batch and the latest market price.
type CapitalService struct {
	gw port.Gateway
}

func NewCapitalService(gw port.Gateway) *CapitalService {
	return &CapitalService{gw: gw}
}

// ComputeCapital resolves the latest watermark and computes capital at it.
func (s *CapitalService) ComputeCapital(ctx context.Context, symbol string) (model.CapitalData, error) {
	wm, err := s.gw.LatestWatermark(ctx)
	if err != nil {
		return model.CapitalData{}, port.NewDataAccessError(stepResolveWatermark, symbol, err)
	}
	return s.ComputeCapitalAt(ctx, symbol, wm)
}

// ComputeCapitalAt computes capital for symbol at an already resolved
// watermark. Capital is shares x latest price, not the stored market_value.
func (s *CapitalService) ComputeCapitalAt(ctx context.Context, symbol string, wm model.Watermark) (model.CapitalData, error) {
	if wm.IsZero() {
		return model.CapitalData{}, nil
	}

	rows, err := s.gw.Positions(ctx, port.PositionFilter{
		Symbol:     symbol,
		AssetClass: model.AssetClassStock,
		Watermark:  wm,
	})
	if err != nil {
		return model.CapitalData{}, port.NewDataAccessError(stepStockPositions, symbol, err)
	}
	if len(rows) == 0 {
		return model.CapitalData{}, nil
	}

	shares := model.SumAbsQuantity(rows)

	quote, err := s.gw.LatestPrice(ctx, symbol)
	if err != nil {
		return model.CapitalData{}, port.NewDataAccessError(stepMarketPrice, symbol, err)
	}
	if quote == nil {
		return model.CapitalData{TotalQuantity: shares.InexactFloat64()}, nil
	}

	price := model.ParseNumber(quote.Raw)
	if shares.IsZero() || price.IsZero() {
		return model.CapitalData{
			TotalQuantity:      shares.InexactFloat64(),
			CurrentMarketPrice: price.InexactFloat64(),
		}, nil
	}

	return model.CapitalData{
		TotalCapitalUsed:   capital(shares, price),
		TotalQuantity:      shares.InexactFloat64(),
		CurrentMarketPrice: price.InexactFloat64(),
	}, nil
}

func capital(shares, price decimal.Decimal) float64 {
	return shares.Mul(price).InexactFloat64()
}
