package postgrest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"capsnap/internal/application/port"
)

func newTestClient(t *testing.T, h http.HandlerFunc, pageSize int) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL + "/", ServiceKey: "secret", Schema: "hf", PageSize: pageSize})
}

// pageOf serves rows[offset:offset+limit], capped at maxRows per response
// when maxRows > 0.
func pageOf(w http.ResponseWriter, r *http.Request, rows []string, maxRows int) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	if maxRows > 0 && limit > maxRows {
		limit = maxRows
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	if offset > end {
		offset = end
	}
	fmt.Fprint(w, "["+strings.Join(rows[offset:end], ",")+"]")
}

func TestLatestWatermarkRequest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/positions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("apikey") != "secret" || r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing auth headers: %v", r.Header)
		}
		if r.Header.Get("Accept-Profile") != "hf" {
			t.Errorf("expected Accept-Profile hf, got %q", r.Header.Get("Accept-Profile"))
		}
		q := r.URL.Query()
		if q.Get("order") != "fetched_at.desc" || q.Get("limit") != "1" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, `[{"fetched_at":"2024-06-02T00:00:00+00:00"}]`)
	}, 0)

	wm, err := c.LatestWatermark(context.Background())
	if err != nil {
		t.Fatalf("LatestWatermark failed: %v", err)
	}
	if wm != "2024-06-02T00:00:00+00:00" {
		t.Errorf("unexpected watermark %q", wm)
	}
}

func TestLatestWatermarkEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}, 0)

	wm, err := c.LatestWatermark(context.Background())
	if err != nil {
		t.Fatalf("LatestWatermark failed: %v", err)
	}
	if !wm.IsZero() {
		t.Errorf("expected empty watermark, got %q", wm)
	}
}

func TestPositionsFiltersAndParsing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("fetched_at") != "eq.T2" {
			t.Errorf("expected watermark filter, got %q", q.Get("fetched_at"))
		}
		if got := q["symbol"]; len(got) != 1 || got[0] != "ilike.AAPL%" {
			t.Errorf("expected ilike filter, got %v", got)
		}
		pageOf(w, r, []string{
			`{"id":1,"symbol":"AAPL   240621P00150000","accounting_quantity":"-2","delta":null,"price":1.25,"market_value":-250,"legal_entity":"Fund A","fetched_at":"T2"}`,
			`{"id":2,"symbol":"AAPL   240621P00140000","accounting_quantity":"oops","avgPrice":"3.5","fetched_at":"T2"}`,
		}, 0)
	}, 0)

	rows, err := c.Positions(context.Background(), port.PositionFilter{SymbolPattern: "AAPL%", Watermark: "T2"})
	if err != nil {
		t.Fatalf("Positions failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].AccountingQuantity != -2 || rows[0].MarketValue != -250 || rows[0].LegalEntity != "Fund A" {
		t.Errorf("unexpected first row: %+v", rows[0])
	}
	if rows[0].Delta != nil || rows[0].Price == nil || *rows[0].Price != 1.25 {
		t.Errorf("unexpected optional fields: delta=%v price=%v", rows[0].Delta, rows[0].Price)
	}
	if rows[1].AccountingQuantity != 0 {
		t.Errorf("non-numeric quantity should parse as 0, got %v", rows[1].AccountingQuantity)
	}
	if rows[1].AvgPrice == nil || *rows[1].AvgPrice != 3.5 {
		t.Errorf("expected avgPrice 3.5, got %v", rows[1].AvgPrice)
	}
}

func TestDistinctSymbolsPaginates(t *testing.T) {
	all := []string{`{"symbol":"AAPL"}`, `{"symbol":"MSFT"}`, `{"symbol":"AAPL"}`, `{"symbol":"TSLA"}`, `{"symbol":"NVDA"}`}
	requests := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Query().Get("asset_class") != "eq.STK" {
			t.Errorf("expected asset class filter, got %q", r.URL.Query().Get("asset_class"))
		}
		pageOf(w, r, all, 0)
	}, 2)

	got, err := c.DistinctSymbols(context.Background(), port.SymbolFilter{Source: port.SymbolsFromPositions, AssetClass: "STK", Watermark: "T1"})
	if err != nil {
		t.Fatalf("DistinctSymbols failed: %v", err)
	}
	if len(got) != 4 || got[0] != "AAPL" || got[1] != "MSFT" || got[2] != "TSLA" || got[3] != "NVDA" {
		t.Errorf("unexpected symbols %v", got)
	}
	// 2 + 2 + 1 rows, then an empty page
	if requests != 4 {
		t.Errorf("expected 4 page requests, got %d", requests)
	}
}

func TestPositionsServerRowCap(t *testing.T) {
	const total = 1200
	rows := make([]string, total)
	for i := range rows {
		rows[i] = fmt.Sprintf(`{"id":%d,"symbol":"AAPL","asset_class":"STK","accounting_quantity":"1","fetched_at":"T1"}`, i+1)
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		pageOf(w, r, rows, 500)
	}, 0)

	got, err := c.Positions(context.Background(), port.PositionFilter{Symbol: "AAPL", AssetClass: "STK", Watermark: "T1"})
	if err != nil {
		t.Fatalf("Positions failed: %v", err)
	}
	if len(got) != total {
		t.Fatalf("expected %d rows, got %d", total, len(got))
	}
	for i, p := range got {
		if p.ID != int64(i+1) {
			t.Fatalf("row %d has id %d, rows were skipped or repeated", i, p.ID)
		}
	}
}

func TestDistinctSymbolsFromOrders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/orders" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("assetCategory") != "eq.STK" {
			t.Errorf("expected assetCategory filter, got %s", r.URL.RawQuery)
		}
		pageOf(w, r, []string{`{"symbol":"AMD"}`, `{"symbol":"NVDA"}`, `{"symbol":"AMD"}`}, 0)
	}, 0)

	got, err := c.DistinctSymbols(context.Background(), port.SymbolFilter{Source: port.SymbolsFromOrders, AssetClass: "STK"})
	if err != nil {
		t.Fatalf("DistinctSymbols failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 symbols, got %v", got)
	}
}

func TestLatestPrice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("order") != "id.desc" || q.Get("symbol") != "eq.AAPL" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, `[{"id":42,"market_price":"189.5"}]`)
	}, 0)

	quote, err := c.LatestPrice(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("LatestPrice failed: %v", err)
	}
	if quote == nil || quote.ID != 42 || quote.Value() != 189.5 {
		t.Errorf("unexpected quote %+v", quote)
	}
}

func TestAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"code":"42P01","message":"relation \"hf.market_price\" does not exist"}`)
	}, 0)

	_, err := c.LatestPrice(context.Background(), "AAPL")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Code != "42P01" {
		t.Errorf("unexpected error %+v", apiErr)
	}
}
