package service

import (
	"context"
	"strings"

	"capsnap/internal/application/port"
	"capsnap/internal/domain/model"
)

const stepListSymbols = "list symbols"

// SymbolService enumerates the underlyings processed by a run.
type SymbolService struct {
	gw     port.Gateway
	source port.SymbolSource
}

func NewSymbolService(gw port.Gateway, source port.SymbolSource) *SymbolService {
	if source == "" {
		source = port.SymbolsFromPositions
	}
	return &SymbolService{gw: gw, source: source}
}

// ListSymbols returns distinct equity symbols in first-seen order. With the
// positions source an empty store yields no symbols.
func (s *SymbolService) ListSymbols(ctx context.Context) ([]string, error) {
	f := port.SymbolFilter{Source: s.source, AssetClass: model.AssetClassStock}

	if s.source == port.SymbolsFromPositions {
		wm, err := s.gw.LatestWatermark(ctx)
		if err != nil {
			return nil, port.NewDataAccessError(stepResolveWatermark, "", err)
		}
		if wm.IsZero() {
			return []string{}, nil
		}
		f.Watermark = wm
	}

	raw, err := s.gw.DistinctSymbols(ctx, f)
	if err != nil {
		return nil, port.NewDataAccessError(stepListSymbols, "", err)
	}
	return dedupe(raw), nil
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
