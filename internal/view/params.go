package view

import (
	"fmt"
	"strings"
)

// SortKey names the field a page is ordered by.
type SortKey string

const (
	SortNetProfit       SortKey = "net_profit" // net_profit_pct
	SortNetProfitQuote  SortKey = "net_profit_quote"
	SortPotentialProfit SortKey = "potential_profit_pct"
	SortVolume          SortKey = "executable_volume_base"
	SortFees            SortKey = "fees_paid_quote"
	SortBuyPrice        SortKey = "buy_price"
	SortSellPrice       SortKey = "sell_price"
	SortTimestamp       SortKey = "timestamp"
	SortTimeSinceUpdate SortKey = "time_since_update"
	SortSymbol          SortKey = "symbol"
	SortBuyExchange     SortKey = "buy_exchange"
	SortSellExchange    SortKey = "sell_exchange"
	SortBuyNetwork      SortKey = "buy_network"
	SortSellNetwork     SortKey = "sell_network"
)

var sortKeys = map[string]SortKey{
	string(SortNetProfit):       SortNetProfit,
	"net_profit_pct":            SortNetProfit,
	string(SortNetProfitQuote):  SortNetProfitQuote,
	string(SortPotentialProfit): SortPotentialProfit,
	string(SortVolume):          SortVolume,
	string(SortFees):            SortFees,
	string(SortBuyPrice):        SortBuyPrice,
	string(SortSellPrice):       SortSellPrice,
	string(SortTimestamp):       SortTimestamp,
	string(SortTimeSinceUpdate): SortTimeSinceUpdate,
	string(SortSymbol):          SortSymbol,
	string(SortBuyExchange):     SortBuyExchange,
	string(SortSellExchange):    SortSellExchange,
	string(SortBuyNetwork):      SortBuyNetwork,
	string(SortSellNetwork):     SortSellNetwork,
}

// ParseSortKey maps a wire name onto a SortKey.
func ParseSortKey(s string) (SortKey, error) {
	if k, ok := sortKeys[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k, nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// numeric reports whether the key compares numerically.
func (k SortKey) numeric() bool {
	switch k {
	case SortNetProfit, SortNetProfitQuote, SortPotentialProfit, SortVolume,
		SortFees, SortBuyPrice, SortSellPrice, SortTimestamp:
		return true
	}
	return false
}

// Direction is the sort direction.
type Direction string

const (
	Ascending  Direction = "ascending"
	Descending Direction = "descending"
)

// ParseDirection accepts "asc", "ascending", "desc" and "descending".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return "", fmt.Errorf("unknown sort direction %q", s)
}

// Order is one sort key and direction.
type Order struct {
	Key       SortKey   `json:"key"`
	Direction Direction `json:"direction"`
}

// Columns holds per-field substring filters. Empty means no filter.
type Columns struct {
	BuyExchange  string `json:"buy_exchange"`
	SellExchange string `json:"sell_exchange"`
	Symbol       string `json:"symbol"`
	Networks     string `json:"networks"` // Matches buy_network or sell_network
}

// Params are the consumer-controlled view parameters.
type Params struct {
	Search    string   `json:"search"`    // Free text over symbol and both exchanges
	Columns   Columns  `json:"columns"`   // Per-field filters
	Exchanges []string `json:"exchanges"` // Inclusion list over buy or sell exchange
	Assets    []string `json:"assets"`    // Inclusion list over the base asset
	Sort      Order    `json:"sort"`
	Page      int      `json:"page"`      // 1-based
	PageSize  int      `json:"page_size"` // Rows per page
}

// DefaultPageSize is used when Params.PageSize is not positive.
const DefaultPageSize = 10

// DefaultParams returns the initial view: net profit, best first.
func DefaultParams() Params {
	return Params{
		Sort:     Order{Key: SortNetProfit, Direction: Descending},
		Page:     1,
		PageSize: DefaultPageSize,
	}
}

// Normalize lowercases the filter texts and inclusion lists and fills in
// the default sort, page and page size.
func (p Params) Normalize() Params {
	out := Params{
		Search: normText(p.Search),
		Columns: Columns{
			BuyExchange:  normText(p.Columns.BuyExchange),
			SellExchange: normText(p.Columns.SellExchange),
			Symbol:       normText(p.Columns.Symbol),
			Networks:     normText(p.Columns.Networks),
		},
		Exchanges: normList(p.Exchanges),
		Assets:    normList(p.Assets),
		Sort:      p.Sort,
		Page:      p.Page,
		PageSize:  p.PageSize,
	}

	def := DefaultParams()
	if out.Sort.Key == "" {
		out.Sort.Key = def.Sort.Key
	}
	if out.Sort.Direction != Ascending && out.Sort.Direction != Descending {
		out.Sort.Direction = def.Sort.Direction
	}
	if out.Page < 1 {
		out.Page = 1
	}
	if out.PageSize < 1 {
		out.PageSize = DefaultPageSize
	}
	return out
}

// filterKey identifies the Filter and Sort inputs of normalized params.
func (p Params) filterKey() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%q|%q|%q|%q|%q|", p.Search,
		p.Columns.BuyExchange, p.Columns.SellExchange, p.Columns.Symbol, p.Columns.Networks)
	fmt.Fprintf(&b, "%q|%q|%s|%s", p.Exchanges, p.Assets, p.Sort.Key, p.Sort.Direction)
	return b.String()
}

func normText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normList(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = normText(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
