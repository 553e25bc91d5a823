package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"capsnap/internal/application/port"
	"capsnap/internal/domain/model"
)

func sampleDoc(symbol string) *model.Snapshot {
	delta := -0.35
	puts := []model.Position{{
		ID:                 7,
		Symbol:             symbol + "   240621P00150000",
		InternalAccountID:  "U123",
		AssetClass:         "OPT",
		AccountingQuantity: -2,
		Delta:              &delta,
		MarketValue:        -250,
		LegalEntity:        "Fund A",
		FetchedAt:          "T2",
	}}
	current := []model.Position{{ID: 3, Symbol: symbol, AssetClass: "STK", AccountingQuantity: 100, FetchedAt: "T2"}}
	capital := model.CapitalData{TotalCapitalUsed: 15000, TotalQuantity: 100, CurrentMarketPrice: 150}
	return model.NewSnapshot(symbol, capital, "T2", current, puts, nil, time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC))
}

func TestWriteRoundTrip(t *testing.T) {
	w, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	doc := sampleDoc("AAPL")

	if err := w.Write(context.Background(), "AAPL", doc); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := w.Read("AAPL")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !reflect.DeepEqual(doc, got) {
		t.Errorf("round trip mismatch:\nwant %+v\ngot  %+v", doc, got)
	}
}

func TestWriteIndentedAndOverwrites(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	first := sampleDoc("AAPL")
	first.TotalCapitalUsed = 999999
	if err := w.Write(ctx, "AAPL", first); err != nil {
		t.Fatalf("first Write failed: %v", err)
	}
	if err := w.Write(ctx, "AAPL", sampleDoc("AAPL")); err != nil {
		t.Fatalf("second Write failed: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "AAPL.json"))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if !strings.HasPrefix(string(b), "{\n  \"symbol\": \"AAPL\",") {
		t.Errorf("expected 2-space indented JSON, got %q", string(b[:40]))
	}
	if strings.Contains(string(b), "999999") {
		t.Error("previous content should be fully replaced")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only AAPL.json in output dir, got %d entries", len(entries))
	}
}

func TestWriteCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "output")
	w, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := w.Write(context.Background(), "MSFT", sampleDoc("MSFT")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "MSFT.json")); err != nil {
		t.Errorf("expected MSFT.json: %v", err)
	}
}

func TestWriteRejectsBadSymbol(t *testing.T) {
	w, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	err = w.Write(context.Background(), "../etc", sampleDoc("X"))
	var we *port.WriteError
	if !errors.As(err, &we) {
		t.Fatalf("expected WriteError, got %v", err)
	}
	if we.Symbol != "../etc" || !strings.Contains(err.Error(), "../etc") {
		t.Errorf("error should name the symbol: %v", err)
	}
}

func TestWriteFailsWhenDirRemoved(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("remove dir: %v", err)
	}

	err = w.Write(context.Background(), "AAPL", sampleDoc("AAPL"))
	var we *port.WriteError
	if !errors.As(err, &we) || we.Symbol != "AAPL" {
		t.Fatalf("expected WriteError for AAPL, got %v", err)
	}
}
