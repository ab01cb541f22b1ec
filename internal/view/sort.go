package view

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/rickgao/arbfeed/internal/model"
)

// Sort orders records in place by o. The sort is stable: ties keep input
// order.
//
// Active records come before inactive ones for every key except
// SortTimeSinceUpdate. Absent values sort last ascending and first
// descending. SortTimeSinceUpdate orders by Record.Recency, descending
// meaning most recent first.
func Sort(records []model.Record, o Order) {
	desc := o.Direction == Descending
	slices.SortStableFunc(records, func(a, b model.Record) int {
		return compare(a, b, o.Key, desc)
	})
}

func compare(a, b model.Record, key SortKey, desc bool) int {
	if key == SortTimeSinceUpdate {
		return directed(cmp.Compare(a.Recency(), b.Recency()), desc)
	}

	if a.IsActive != b.IsActive {
		if a.IsActive {
			return -1
		}
		return 1
	}

	if key.numeric() {
		av, aok := numericValue(a, key)
		bv, bok := numericValue(b, key)
		if c, done := compareAbsent(aok, bok, desc); done {
			return c
		}
		return directed(cmp.Compare(av, bv), desc)
	}

	av, aok := stringValue(a, key)
	bv, bok := stringValue(b, key)
	if c, done := compareAbsent(aok, bok, desc); done {
		return c
	}
	return directed(strings.Compare(strings.ToLower(av), strings.ToLower(bv)), desc)
}

// compareAbsent orders a present value against an absent one. done is false
// when both are present.
func compareAbsent(aok, bok, desc bool) (c int, done bool) {
	switch {
	case aok && bok:
		return 0, false
	case !aok && !bok:
		return 0, true
	case !aok:
		if desc {
			return -1, true
		}
		return 1, true
	default:
		if desc {
			return 1, true
		}
		return -1, true
	}
}

func directed(c int, desc bool) int {
	if desc {
		return -c
	}
	return c
}

func numericValue(r model.Record, key SortKey) (float64, bool) {
	var p *float64
	switch key {
	case SortNetProfit:
		p = r.NetProfitPct
	case SortNetProfitQuote:
		p = r.NetProfitQuote
	case SortPotentialProfit:
		p = r.PotentialProfitPct
	case SortVolume:
		p = r.ExecutableVolumeBase
	case SortFees:
		p = r.FeesPaidQuote
	case SortBuyPrice:
		p = r.BuyPrice
	case SortSellPrice:
		p = r.SellPrice
	case SortTimestamp:
		if r.Timestamp == nil {
			return 0, false
		}
		return float64(*r.Timestamp), true
	}
	if p == nil || math.IsNaN(*p) {
		return 0, false
	}
	return *p, true
}

func stringValue(r model.Record, key SortKey) (string, bool) {
	switch key {
	case SortSymbol:
		return r.Symbol, true
	case SortBuyExchange:
		return r.BuyExchange, true
	case SortSellExchange:
		return r.SellExchange, true
	case SortBuyNetwork:
		return deref(r.BuyNetwork)
	case SortSellNetwork:
		return deref(r.SellNetwork)
	default:
		return r.ID, true
	}
}

func deref(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return *s, true
}
