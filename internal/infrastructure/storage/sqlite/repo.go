package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"capsnap/internal/application/port"
	"capsnap/internal/domain/model"
	"capsnap/internal/infrastructure/storage"
)

var dialect = storage.Dialect{
	Name:        "sqlite",
	Placeholder: func(int) string { return "?" },
	Table:       func(name string) string { return name },
	ILike:       "LIKE", // ASCII case-insensitive by default
}

// Repo is a local SQLite copy of the positions store, used for development
// runs and tests.
type Repo struct {
	*storage.SQLGateway
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	return &Repo{SQLGateway: storage.NewSQLGateway(db, dialect), db: db}, nil
}

// EnsureSchema creates the three tables read by the gateway if they do not
// exist yet.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS positions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  symbol TEXT NOT NULL,
  internal_account_id TEXT,
  asset_class TEXT,
  accounting_quantity NUMERIC,
  delta NUMERIC,
  price NUMERIC,
  market_price NUMERIC,
  market_value NUMERIC,
  unrealized_pnl NUMERIC,
  "avgPrice" NUMERIC,
  conid TEXT,
  "undConid" TEXT,
  computed_cash_flow_on_entry NUMERIC,
  computed_cash_flow_on_exercise NUMERIC,
  computed_be_price NUMERIC,
  legal_entity TEXT,
  fetched_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_positions_fetched_at ON positions(fetched_at);
CREATE INDEX IF NOT EXISTS idx_positions_symbol ON positions(symbol);

CREATE TABLE IF NOT EXISTS market_price (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  symbol TEXT NOT NULL,
  market_price NUMERIC
);
CREATE INDEX IF NOT EXISTS idx_market_price_symbol ON market_price(symbol);

CREATE TABLE IF NOT EXISTS orders (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  symbol TEXT NOT NULL,
  internal_account_id TEXT,
  "assetCategory" TEXT,
  market_value NUMERIC,
  market_price NUMERIC
);
`)
	return err
}

// InsertPosition stores a row. Numeric values are passed as given so text
// that is not a number survives, as it can in the remote store.
func (r *Repo) InsertPosition(ctx context.Context, p model.Position, quantity any) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO positions(
			symbol, internal_account_id, asset_class, accounting_quantity,
			market_price, market_value, conid, legal_entity, fetched_at
		) VALUES(?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?)
	`, p.Symbol, p.InternalAccountID, p.AssetClass, quantity,
		p.MarketPrice, p.MarketValue, p.Conid, p.LegalEntity, p.FetchedAt)
	return err
}

func (r *Repo) InsertPrice(ctx context.Context, symbol string, price any) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO market_price(symbol, market_price) VALUES(?, ?)`, symbol, price)
	return err
}

func (r *Repo) InsertOrder(ctx context.Context, symbol, account, assetCategory string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO orders(symbol, internal_account_id, "assetCategory") VALUES(?, ?, ?)
	`, symbol, account, assetCategory)
	return err
}

var _ port.Gateway = (*Repo)(nil)
