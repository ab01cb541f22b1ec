package model

import (
	"slices"
	"strings"
)

// -----------------------------------------------------------------------------
// Snapshot Types
// -----------------------------------------------------------------------------

// Opportunity is one arbitrage opportunity as pushed by the upstream scanner.
type Opportunity struct {
	ID           string `json:"id"`            // Stable key (e.g., "BTC/USDT-binance-kraken")
	Symbol       string `json:"symbol"`        // Standardized pair (e.g., "BTC/USDT")
	BuyExchange  string `json:"buy_exchange"`  // Exchange to buy on
	SellExchange string `json:"sell_exchange"` // Exchange to sell on

	BuyPrice             *float64 `json:"buy_price"`              // Lowest ask on the buy side
	SellPrice            *float64 `json:"sell_price"`             // Highest bid on the sell side
	PotentialProfitPct   *float64 `json:"potential_profit_pct"`   // Gross spread before fees
	ExecutableVolumeBase *float64 `json:"executable_volume_base"` // Volume executable in base currency
	FeesPaidQuote        *float64 `json:"fees_paid_quote"`        // Fees in quote currency
	NetProfitPct         *float64 `json:"net_profit_pct"`         // Net profit after fees (required on the wire)
	NetProfitQuote       *float64 `json:"net_profit_quote"`       // Net profit in quote currency

	BuyNetwork  *string `json:"buy_network"`  // Withdrawal network on the buy side
	SellNetwork *string `json:"sell_network"` // Deposit network on the sell side

	Timestamp *int64 `json:"timestamp"` // Data timestamp (ms since epoch)
}

// BaseAsset returns the base currency of the symbol ("BTC" for "BTC/USDT").
func (o Opportunity) BaseAsset() string {
	base, _, _ := strings.Cut(o.Symbol, "/")
	return base
}

// -----------------------------------------------------------------------------
// Tracked Types
// -----------------------------------------------------------------------------

// Record is an Opportunity plus the lifecycle metadata the reconciler maintains.
type Record struct {
	Opportunity

	IsActive      bool  `json:"is_active"`                // Present in the latest processed snapshot
	AppearedAt    int64 `json:"appeared_at"`              // First observation since last absence (ms)
	DisappearedAt int64 `json:"disappeared_at,omitempty"` // Last seen before going inactive (ms), 0 while active
}

// Disappeared returns the disappearance time and whether it is defined.
func (r Record) Disappeared() (int64, bool) {
	if r.IsActive || r.DisappearedAt == 0 {
		return 0, false
	}
	return r.DisappearedAt, true
}

// Recency is the time of the last observed change: the disappearance time
// for inactive records, otherwise the payload timestamp (0 if absent).
func (r Record) Recency() int64 {
	if at, ok := r.Disappeared(); ok {
		return at
	}
	if r.Timestamp != nil {
		return *r.Timestamp
	}
	return 0
}

// -----------------------------------------------------------------------------
// Collaborator Types
// -----------------------------------------------------------------------------

// ExchangeStatus is the connectivity status reported for one exchange.
type ExchangeStatus string

const (
	ExchangeConnected    ExchangeStatus = "connected"
	ExchangeConnecting   ExchangeStatus = "connecting"
	ExchangeDisconnected ExchangeStatus = "disconnected"
	ExchangeError        ExchangeStatus = "error"
	ExchangeAuthError    ExchangeStatus = "auth_error"    // Credentials rejected
	ExchangeNoWSSupport  ExchangeStatus = "no_ws_support" // Exchange has no streaming API
	ExchangeNoPairs      ExchangeStatus = "no_pairs"      // Nothing to monitor on this exchange
	ExchangeUnknown      ExchangeStatus = "unknown"
)

// ParseExchangeStatus maps a wire value onto the enumerated set.
func ParseExchangeStatus(s string) ExchangeStatus {
	switch ExchangeStatus(strings.ToLower(strings.TrimSpace(s))) {
	case ExchangeConnected:
		return ExchangeConnected
	case ExchangeConnecting:
		return ExchangeConnecting
	case ExchangeDisconnected:
		return ExchangeDisconnected
	case ExchangeError, "errored":
		return ExchangeError
	case ExchangeAuthError:
		return ExchangeAuthError
	case ExchangeNoWSSupport:
		return ExchangeNoWSSupport
	case ExchangeNoPairs:
		return ExchangeNoPairs
	default:
		return ExchangeUnknown
	}
}

// Healthy reports whether the exchange is streaming data.
func (s ExchangeStatus) Healthy() bool {
	return s == ExchangeConnected
}

// MonitoredPairs maps exchange id to the symbols monitored on it.
type MonitoredPairs map[string][]string

// Exchanges returns the exchange ids in sorted order.
func (p MonitoredPairs) Exchanges() []string {
	out := make([]string, 0, len(p))
	for ex := range p {
		out = append(out, ex)
	}
	slices.Sort(out)
	return out
}

// Assets returns the distinct base assets across all exchanges, sorted.
func (p MonitoredPairs) Assets() []string {
	seen := make(map[string]struct{})
	for _, symbols := range p {
		for _, sym := range symbols {
			base := Opportunity{Symbol: sym}.BaseAsset()
			if base != "" {
				seen[base] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for a := range seen {
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}
