package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"capsnap/internal/application/port"
	"capsnap/internal/domain/model"
)

// Dialect covers the differences between the SQL stores.
type Dialect struct {
	Name        string
	Placeholder func(n int) string
	Table       func(name string) string
	ILike       string // case-insensitive LIKE operator
}

// SQLGateway implements port.Gateway over database/sql. Numeric columns are
// read as text and parsed with model.ParseNumber.
type SQLGateway struct {
	db *sql.DB
	d  Dialect
}

func NewSQLGateway(db *sql.DB, d Dialect) *SQLGateway {
	return &SQLGateway{db: db, d: d}
}

func (g *SQLGateway) Close() error { return g.db.Close() }

func (g *SQLGateway) LatestWatermark(ctx context.Context) (model.Watermark, error) {
	q := fmt.Sprintf(`SELECT CAST(fetched_at AS TEXT) FROM %s
		WHERE fetched_at IS NOT NULL
		ORDER BY fetched_at DESC
		LIMIT 1`, g.d.Table("positions"))

	var wm sql.NullString
	err := g.db.QueryRowContext(ctx, q).Scan(&wm)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return model.Watermark(wm.String), nil
}

const positionColumns = `id, symbol, internal_account_id, asset_class,
	CAST(accounting_quantity AS TEXT), CAST(delta AS TEXT), CAST(price AS TEXT),
	CAST(market_price AS TEXT), CAST(market_value AS TEXT), CAST(unrealized_pnl AS TEXT),
	CAST("avgPrice" AS TEXT), CAST(conid AS TEXT), CAST("undConid" AS TEXT),
	CAST(computed_cash_flow_on_entry AS TEXT), CAST(computed_cash_flow_on_exercise AS TEXT),
	CAST(computed_be_price AS TEXT), legal_entity, CAST(fetched_at AS TEXT)`

func (g *SQLGateway) Positions(ctx context.Context, f port.PositionFilter) ([]model.Position, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, g.d.Placeholder(len(args))))
	}

	add("fetched_at = %s", f.Watermark.String())
	if f.Symbol != "" {
		add("symbol = %s", f.Symbol)
	}
	if f.AssetClass != "" {
		add("asset_class = %s", f.AssetClass)
	}
	if f.SymbolPattern != "" {
		add("symbol "+g.d.ILike+" %s ESCAPE '\\'", f.SymbolPattern)
	}

	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY id",
		positionColumns, g.d.Table("positions"), strings.Join(where, " AND "))

	rows, err := g.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Position, 0)
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPosition(rows *sql.Rows) (model.Position, error) {
	var (
		id                                       sql.NullInt64
		symbol, account, assetClass              sql.NullString
		qty, delta, price, mktPrice, mktValue    sql.NullString
		pnl, avgPrice, conid, undConid           sql.NullString
		cfEntry, cfExercise, bePrice, legal, fAt sql.NullString
	)
	err := rows.Scan(&id, &symbol, &account, &assetClass,
		&qty, &delta, &price, &mktPrice, &mktValue, &pnl,
		&avgPrice, &conid, &undConid, &cfEntry, &cfExercise, &bePrice, &legal, &fAt)
	if err != nil {
		return model.Position{}, err
	}
	return model.Position{
		ID:                         id.Int64,
		Symbol:                     symbol.String,
		InternalAccountID:          account.String,
		AssetClass:                 assetClass.String,
		AccountingQuantity:         model.ParseFloat(qty.String),
		Delta:                      optional(delta),
		Price:                      optional(price),
		MarketPrice:                model.ParseFloat(mktPrice.String),
		MarketValue:                model.ParseFloat(mktValue.String),
		UnrealizedPnL:              optional(pnl),
		AvgPrice:                   optional(avgPrice),
		Conid:                      conid.String,
		UndConid:                   undConid.String,
		ComputedCashFlowOnEntry:    optional(cfEntry),
		ComputedCashFlowOnExercise: optional(cfExercise),
		ComputedBreakEvenPrice:     optional(bePrice),
		LegalEntity:                strings.TrimSpace(legal.String),
		FetchedAt:                  fAt.String,
	}, nil
}

func optional(s sql.NullString) *float64 {
	if !s.Valid {
		return nil
	}
	return model.ParseOptionalFloat(&s.String)
}

func (g *SQLGateway) LatestPrice(ctx context.Context, symbol string) (*model.PriceQuote, error) {
	q := fmt.Sprintf(`SELECT id, CAST(market_price AS TEXT) FROM %s
		WHERE symbol = %s
		ORDER BY id DESC
		LIMIT 1`, g.d.Table("market_price"), g.d.Placeholder(1))

	var (
		id  int64
		raw sql.NullString
	)
	err := g.db.QueryRowContext(ctx, q, symbol).Scan(&id, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &model.PriceQuote{ID: id, Symbol: symbol, Raw: raw.String}, nil
}

func (g *SQLGateway) DistinctSymbols(ctx context.Context, f port.SymbolFilter) ([]string, error) {
	var (
		q    string
		args []any
	)
	switch f.Source {
	case port.SymbolsFromOrders:
		q = fmt.Sprintf(`SELECT symbol FROM %s WHERE "assetCategory" = %s ORDER BY symbol`,
			g.d.Table("orders"), g.d.Placeholder(1))
		args = []any{f.AssetClass}
	default:
		q = fmt.Sprintf(`SELECT symbol FROM %s WHERE asset_class = %s AND fetched_at = %s ORDER BY id`,
			g.d.Table("positions"), g.d.Placeholder(1), g.d.Placeholder(2))
		args = []any{f.AssetClass, f.Watermark.String()}
	}

	rows, err := g.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	seen := map[string]struct{}{}
	for rows.Next() {
		var s sql.NullString
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		if !s.Valid || s.String == "" {
			continue
		}
		if _, ok := seen[s.String]; ok {
			continue
		}
		seen[s.String] = struct{}{}
		out = append(out, s.String)
	}
	return out, rows.Err()
}

var _ port.Gateway = (*SQLGateway)(nil)
