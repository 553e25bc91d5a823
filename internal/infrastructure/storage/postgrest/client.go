package postgrest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"capsnap/internal/application/port"
	"capsnap/internal/domain/model"
)

const defaultPageSize = 1000

const positionSelect = "id,symbol,internal_account_id,asset_class,accounting_quantity,delta,price," +
	"market_price,market_value,unrealized_pnl,avgPrice,conid,undConid," +
	"computed_cash_flow_on_entry,computed_cash_flow_on_exercise,computed_be_price,legal_entity,fetched_at"

type Options struct {
	BaseURL    string // https://<project>.supabase.co
	ServiceKey string
	Schema     string
	Timeout    time.Duration
	PageSize   int
	HTTPClient *http.Client
}

// Client reads the positions store through Supabase's REST interface.
type Client struct {
	base     string
	key      string
	schema   string
	pageSize int
	hc       *http.Client
}

func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Client{
		base:     strings.TrimRight(opts.BaseURL, "/"),
		key:      opts.ServiceKey,
		schema:   opts.Schema,
		pageSize: pageSize,
		hc:       hc,
	}
}

// APIError is a non-2xx response from the REST endpoint.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("postgrest %d (%s): %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("postgrest %d: %s", e.Status, msg)
}

func (c *Client) Close() error {
	c.hc.CloseIdleConnections()
	return nil
}

func (c *Client) LatestWatermark(ctx context.Context) (model.Watermark, error) {
	q := url.Values{}
	q.Set("select", "fetched_at")
	q.Set("fetched_at", "not.is.null")
	q.Set("order", "fetched_at.desc")
	q.Set("limit", "1")

	rows, err := c.get(ctx, "positions", q)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	wm := text(rows[0]["fetched_at"])
	if wm == nil {
		return "", nil
	}
	return model.Watermark(*wm), nil
}

func (c *Client) Positions(ctx context.Context, f port.PositionFilter) ([]model.Position, error) {
	q := url.Values{}
	q.Set("select", positionSelect)
	q.Set("fetched_at", "eq."+f.Watermark.String())
	if f.Symbol != "" {
		q.Add("symbol", "eq."+f.Symbol)
	}
	if f.AssetClass != "" {
		q.Set("asset_class", "eq."+f.AssetClass)
	}
	if f.SymbolPattern != "" {
		q.Add("symbol", "ilike."+f.SymbolPattern)
	}
	q.Set("order", "id.asc")

	rows, err := c.getAll(ctx, "positions", q)
	if err != nil {
		return nil, err
	}
	out := make([]model.Position, 0, len(rows))
	for _, r := range rows {
		out = append(out, toPosition(r))
	}
	return out, nil
}

func (c *Client) LatestPrice(ctx context.Context, symbol string) (*model.PriceQuote, error) {
	q := url.Values{}
	q.Set("select", "id,market_price")
	q.Set("symbol", "eq."+symbol)
	q.Set("order", "id.desc")
	q.Set("limit", "1")

	rows, err := c.get(ctx, "market_price", q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &model.PriceQuote{
		ID:     model.ParseNumber(str(rows[0]["id"])).IntPart(),
		Symbol: symbol,
		Raw:    str(rows[0]["market_price"]),
	}, nil
}

func (c *Client) DistinctSymbols(ctx context.Context, f port.SymbolFilter) ([]string, error) {
	var (
		table = "positions"
		q     = url.Values{}
	)
	q.Set("select", "symbol")
	switch f.Source {
	case port.SymbolsFromOrders:
		table = "orders"
		q.Set("assetCategory", "eq."+f.AssetClass)
		q.Set("order", "symbol.asc")
	default:
		q.Set("asset_class", "eq."+f.AssetClass)
		q.Set("fetched_at", "eq."+f.Watermark.String())
		q.Set("order", "id.asc")
	}

	rows, err := c.getAll(ctx, table, q)
	if err != nil {
		return nil, err
	}
	var out []string
	seen := map[string]struct{}{}
	for _, r := range rows {
		s := str(r["symbol"])
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

type row map[string]json.RawMessage

// getAll pages through a query with limit/offset until an empty page. The
// server may return fewer rows than asked for (db-max-rows), so a short page
// does not mean the end and the offset advances by what was received.
func (c *Client) getAll(ctx context.Context, table string, q url.Values) ([]row, error) {
	var out []row
	for offset := 0; ; {
		page := cloneValues(q)
		page.Set("limit", strconv.Itoa(c.pageSize))
		page.Set("offset", strconv.Itoa(offset))

		rows, err := c.get(ctx, table, page)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return out, nil
		}
		out = append(out, rows...)
		offset += len(rows)
	}
}

func (c *Client) get(ctx context.Context, table string, q url.Values) ([]row, error) {
	u := c.base + "/rest/v1/" + table + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Accept", "application/json")
	if c.schema != "" {
		req.Header.Set("Accept-Profile", c.schema)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", table, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(body, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return nil, apiErr
	}

	var rows []row
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", table, err)
	}
	return rows, nil
}

func toPosition(r row) model.Position {
	return model.Position{
		ID:                         model.ParseNumber(str(r["id"])).IntPart(),
		Symbol:                     str(r["symbol"]),
		InternalAccountID:          str(r["internal_account_id"]),
		AssetClass:                 str(r["asset_class"]),
		AccountingQuantity:         model.ParseFloat(str(r["accounting_quantity"])),
		Delta:                      model.ParseOptionalFloat(text(r["delta"])),
		Price:                      model.ParseOptionalFloat(text(r["price"])),
		MarketPrice:                model.ParseFloat(str(r["market_price"])),
		MarketValue:                model.ParseFloat(str(r["market_value"])),
		UnrealizedPnL:              model.ParseOptionalFloat(text(r["unrealized_pnl"])),
		AvgPrice:                   model.ParseOptionalFloat(text(r["avgPrice"])),
		Conid:                      str(r["conid"]),
		UndConid:                   str(r["undConid"]),
		ComputedCashFlowOnEntry:    model.ParseOptionalFloat(text(r["computed_cash_flow_on_entry"])),
		ComputedCashFlowOnExercise: model.ParseOptionalFloat(text(r["computed_cash_flow_on_exercise"])),
		ComputedBreakEvenPrice:     model.ParseOptionalFloat(text(r["computed_be_price"])),
		LegalEntity:                strings.TrimSpace(str(r["legal_entity"])),
		FetchedAt:                  str(r["fetched_at"]),
	}
}

// text returns a JSON scalar as its text form: strings unquoted, numbers and
// booleans verbatim, null or absent as nil.
func text(raw json.RawMessage) *string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil
		}
		return &v
	}
	return &s
}

func str(raw json.RawMessage) string {
	if s := text(raw); s != nil {
		return *s
	}
	return ""
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

var _ port.Gateway = (*Client)(nil)
