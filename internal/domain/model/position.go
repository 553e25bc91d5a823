package model

// AssetClassStock is the asset_class value of equity rows.
const AssetClassStock = "STK"

// Watermark is the fetched_at value identifying one ingestion batch, kept in
// the store's own text form so equality filters round-trip exactly.
type Watermark string

func (w Watermark) IsZero() bool { return w == "" }

func (w Watermark) String() string { return string(w) }

// Position is one row of the positions table. Rows are never mutated after
// they are read.
type Position struct {
	ID                         int64    `json:"id"`
	Symbol                     string   `json:"symbol"`
	InternalAccountID          string   `json:"internal_account_id"`
	AssetClass                 string   `json:"asset_class"`
	AccountingQuantity         float64  `json:"accounting_quantity"`
	Delta                      *float64 `json:"delta"`
	Price                      *float64 `json:"price"`
	MarketPrice                float64  `json:"market_price"`
	MarketValue                float64  `json:"market_value"`
	UnrealizedPnL              *float64 `json:"unrealized_pnl"`
	AvgPrice                   *float64 `json:"avgPrice"`
	Conid                      string   `json:"conid"`
	UndConid                   string   `json:"undConid"`
	ComputedCashFlowOnEntry    *float64 `json:"computed_cash_flow_on_entry"`
	ComputedCashFlowOnExercise *float64 `json:"computed_cash_flow_on_exercise"`
	ComputedBreakEvenPrice     *float64 `json:"computed_be_price"`
	LegalEntity                string   `json:"legal_entity,omitempty"`
	FetchedAt                  string   `json:"fetched_at"`
}

// PriceQuote is the latest row of the market_price table for a symbol. Raw
// keeps the column text; use Value for the parsed price.
type PriceQuote struct {
	ID     int64
	Symbol string
	Raw    string
}

func (q *PriceQuote) Value() float64 {
	if q == nil {
		return 0
	}
	return ParseFloat(q.Raw)
}

// CapitalData is the result of the capital aggregation for one symbol.
type CapitalData struct {
	TotalCapitalUsed   float64 `json:"totalCapitalUsed"`
	TotalQuantity      float64 `json:"totalQuantity"`
	CurrentMarketPrice float64 `json:"currentMarketPrice"`
}
