package view

import (
	"slices"
	"strings"

	"github.com/rickgao/arbfeed/internal/model"
)

// Filter returns the records that pass p, in input order. p should be
// normalized. The input slice is not modified.
func Filter(records []model.Record, p Params) []model.Record {
	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		if matches(r, p) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r model.Record, p Params) bool {
	buy := strings.ToLower(r.BuyExchange)
	sell := strings.ToLower(r.SellExchange)
	symbol := strings.ToLower(r.Symbol)

	// Inclusion lists.
	if len(p.Exchanges) > 0 && !slices.Contains(p.Exchanges, buy) && !slices.Contains(p.Exchanges, sell) {
		return false
	}
	if len(p.Assets) > 0 {
		base := strings.ToLower(r.BaseAsset())
		if base == "" || !slices.Contains(p.Assets, base) {
			return false
		}
	}

	// Free text.
	if p.Search != "" &&
		!strings.Contains(symbol, p.Search) &&
		!strings.Contains(buy, p.Search) &&
		!strings.Contains(sell, p.Search) {
		return false
	}

	// Per-field.
	if !fieldMatches(buy, p.Columns.BuyExchange) ||
		!fieldMatches(sell, p.Columns.SellExchange) ||
		!fieldMatches(symbol, p.Columns.Symbol) {
		return false
	}
	if f := p.Columns.Networks; f != "" {
		if !optionalMatches(r.BuyNetwork, f) && !optionalMatches(r.SellNetwork, f) {
			return false
		}
	}

	return true
}

func fieldMatches(value, filter string) bool {
	if filter == "" {
		return true
	}
	return value != "" && strings.Contains(value, filter)
}

func optionalMatches(value *string, filter string) bool {
	if value == nil {
		return false
	}
	return fieldMatches(strings.ToLower(*value), filter)
}
