package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"capsnap/internal/application/port"
	"capsnap/internal/domain/model"
)

const (
	ansiReset = "\033[0m"
	ansiRed   = "\033[31m"
	ansiGreen = "\033[32m"
	ansiDim   = "\033[2m"
)

func colorize(s, color string) string {
	return color + s + ansiReset
}

// Sink prints a one-line summary per snapshot. It stores nothing.
type Sink struct {
	mu  sync.Mutex
	out io.Writer
}

func NewSink() *Sink { return &Sink{out: os.Stdout} }

// NewSinkTo writes to w instead of stdout.
func NewSinkTo(w io.Writer) *Sink { return &Sink{out: w} }

func (s *Sink) Name() string { return "console" }

func (s *Sink) Write(_ context.Context, symbol string, doc *model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintln(s.out, RenderLine(symbol, doc))
	return err
}

func (s *Sink) ReportRun(_ context.Context, sum port.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := colorize("ok", ansiGreen)
	if len(sum.Failed) > 0 {
		status = colorize("failed: "+strings.Join(sum.Failed, ","), ansiRed)
	}
	_, err := fmt.Fprintf(s.out, "%s run %s  %d/%d written  %s  %s\n",
		colorize("[CAPSNAP]", ansiDim),
		sum.RunID,
		sum.Written, sum.Symbols,
		time.Duration(sum.EndedAt-sum.StartedAt)*time.Millisecond,
		status)
	return err
}

// RenderLine formats the headline numbers of a snapshot.
func RenderLine(symbol string, doc *model.Snapshot) string {
	var sb strings.Builder
	sb.WriteString(colorize("[CAPSNAP] ", ansiDim))
	sb.WriteString(fmt.Sprintf("%-6s", symbol))
	sb.WriteString(fmt.Sprintf("  qty=%.0f  px=%.2f  capital=%.2f", doc.TotalQuantity, doc.CurrentMarketPrice, doc.TotalCapitalUsed))
	sb.WriteString(fmt.Sprintf("  puts=%d calls=%d current=%d",
		len(doc.PutPositions), len(doc.CallPositions), len(doc.CurrentPositions)))
	if doc.Metadata.DataAsOf != "" {
		sb.WriteString(colorize("  as of "+doc.Metadata.DataAsOf, ansiDim))
	}
	return sb.String()
}

var (
	_ port.DocumentSink = (*Sink)(nil)
	_ port.RunReporter  = (*Sink)(nil)
)
