package composite

import (
	"context"
	"strings"

	"capsnap/internal/application/port"
	"capsnap/internal/domain/model"
)

// Sink fans a document out to several sinks in order. Every sink is tried;
// the first error is returned.
type Sink struct {
	sinks []port.DocumentSink
}

func New(sinks ...port.DocumentSink) *Sink {
	// nil sinks are allowed; filter in constructor for safety
	out := make([]port.DocumentSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Sink{sinks: out}
}

func (s *Sink) Name() string {
	names := make([]string, 0, len(s.sinks))
	for _, sink := range s.sinks {
		names = append(names, sink.Name())
	}
	return strings.Join(names, "+")
}

func (s *Sink) Write(ctx context.Context, symbol string, doc *model.Snapshot) error {
	var firstErr error
	for _, sink := range s.sinks {
		if err := sink.Write(ctx, symbol, doc); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Sink) ReportRun(ctx context.Context, summary port.RunSummary) error {
	var firstErr error
	for _, sink := range s.sinks {
		r, ok := sink.(port.RunReporter)
		if !ok {
			continue
		}
		if err := r.ReportRun(ctx, summary); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var (
	_ port.DocumentSink = (*Sink)(nil)
	_ port.RunReporter  = (*Sink)(nil)
)
