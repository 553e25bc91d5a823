package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is the per-symbol document written at the end of each run.
type Snapshot struct {
	Symbol             string           `json:"symbol"`
	TotalCapitalUsed   float64          `json:"totalCapitalUsed"`
	TotalQuantity      float64          `json:"totalQuantity"`
	CurrentMarketPrice float64          `json:"currentMarketPrice"`
	LastUpdated        string           `json:"lastUpdated"`
	CurrentPositions   []Position       `json:"currentPositions"`
	PutPositions       []Position       `json:"putPositions"`
	CallPositions      []Position       `json:"callPositions"`
	Metadata           SnapshotMetadata `json:"metadata"`
}

type SnapshotMetadata struct {
	TotalCurrentContracts float64  `json:"totalCurrentContracts"`
	TotalPutContracts     float64  `json:"totalPutContracts"`
	TotalCallContracts    float64  `json:"totalCallContracts"`
	AccountsWithPositions []string `json:"accountsWithPositions"`
	DataAsOf              string   `json:"dataAsOf"`
}

// NewSnapshot assembles a document from already fetched parts. nil lists
// become empty arrays in the output.
func NewSnapshot(symbol string, capital CapitalData, wm Watermark, current, puts, calls []Position, now time.Time) *Snapshot {
	current = nonNil(current)
	puts = nonNil(puts)
	calls = nonNil(calls)

	return &Snapshot{
		Symbol:             symbol,
		TotalCapitalUsed:   capital.TotalCapitalUsed,
		TotalQuantity:      capital.TotalQuantity,
		CurrentMarketPrice: capital.CurrentMarketPrice,
		LastUpdated:        now.UTC().Format(time.RFC3339Nano),
		CurrentPositions:   current,
		PutPositions:       puts,
		CallPositions:      calls,
		Metadata: SnapshotMetadata{
			TotalCurrentContracts: SumAbsQuantity(current).InexactFloat64(),
			TotalPutContracts:     SumAbsQuantity(puts).InexactFloat64(),
			TotalCallContracts:    SumAbsQuantity(calls).InexactFloat64(),
			AccountsWithPositions: DistinctLegalEntities(puts),
			DataAsOf:              wm.String(),
		},
	}
}

// DistinctLegalEntities returns the legal entities holding any of the given
// positions, first-seen order, blanks skipped.
func DistinctLegalEntities(positions []Position) []string {
	out := make([]string, 0, len(positions))
	seen := map[string]struct{}{}
	for _, p := range positions {
		if p.LegalEntity == "" {
			continue
		}
		if _, ok := seen[p.LegalEntity]; ok {
			continue
		}
		seen[p.LegalEntity] = struct{}{}
		out = append(out, p.LegalEntity)
	}
	return out
}

// SumMarketValue adds up the stored market_value column.
func SumMarketValue(positions []Position) float64 {
	total := decimal.Zero
	for _, p := range positions {
		total = total.Add(decimal.NewFromFloat(p.MarketValue))
	}
	return total.InexactFloat64()
}

func nonNil(in []Position) []Position {
	if in == nil {
		return []Position{}
	}
	return in
}
