package main

import (
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/arbfeed/internal/model"
)

// takerFee is charged on each leg of a route.
var takerFee = decimal.RequireFromString("0.001")

var hundred = decimal.NewFromInt(100)

type market struct {
	Symbol    string
	BasePrice float64
	PriceExp  int32 // Decimal places quoted by the exchanges
	Exchanges []string
	Networks  []string
}

func defaultMarkets() []market {
	return []market{
		{Symbol: "BTC/USDT", BasePrice: 64000, PriceExp: 2, Exchanges: []string{"binance", "kraken", "okx"}, Networks: []string{"BTC"}},
		{Symbol: "ETH/USDT", BasePrice: 3100, PriceExp: 2, Exchanges: []string{"binance", "bybit", "kraken"}, Networks: []string{"ERC20", "ARBITRUM"}},
		{Symbol: "SOL/USDT", BasePrice: 145, PriceExp: 3, Exchanges: []string{"bybit", "okx"}, Networks: []string{"SOL"}},
		{Symbol: "XRP/USDT", BasePrice: 0.52, PriceExp: 5, Exchanges: []string{"binance", "okx", "gateio"}, Networks: []string{"XRP"}},
	}
}

type route struct {
	market market
	buy    string
	sell   string
}

func (r route) id() string {
	return r.market.Symbol + "-" + r.buy + "-" + r.sell
}

// simulator produces snapshots over a fixed set of routes. Each snapshot
// omits a random subset so consumers see records vanish and reappear.
type simulator struct {
	markets []market
	routes  []route
	churn   float64

	mu  sync.Mutex
	rng *rand.Rand
}

func newSimulator(markets []market, churn float64, seed uint64) *simulator {
	s := &simulator{
		markets: markets,
		churn:   churn,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	for _, m := range markets {
		for _, buy := range m.Exchanges {
			for _, sell := range m.Exchanges {
				if buy != sell {
					s.routes = append(s.routes, route{market: m, buy: buy, sell: sell})
				}
			}
		}
	}
	return s
}

// Snapshot returns the opportunities present at now.
func (s *simulator) Snapshot(now time.Time) []model.Opportunity {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := now.UnixMilli()
	out := make([]model.Opportunity, 0, len(s.routes))
	for _, r := range s.routes {
		if s.rng.Float64() < s.churn {
			continue
		}
		out = append(out, s.quote(r, ts))
	}
	return out
}

func (s *simulator) quote(r route, ts int64) model.Opportunity {
	m := r.market
	jitter := decimal.NewFromFloat(1 + (s.rng.Float64()-0.5)*0.002)
	spread := decimal.NewFromFloat(1 + s.rng.Float64()*0.006)

	buy := decimal.NewFromFloat(m.BasePrice).Mul(jitter).Round(m.PriceExp)
	sell := buy.Mul(spread).Round(m.PriceExp)
	volume := decimal.NewFromFloat(0.05 + s.rng.Float64()*2).Round(4)

	cost := buy.Mul(volume)
	gross := sell.Sub(buy).Mul(volume)
	fees := buy.Add(sell).Mul(volume).Mul(takerFee)
	net := gross.Sub(fees)

	potentialPct := sell.Sub(buy).Div(buy).Mul(hundred).Round(4)
	netPct := decimal.Zero
	if !cost.IsZero() {
		netPct = net.Div(cost).Mul(hundred).Round(4)
	}

	network := m.Networks[s.rng.IntN(len(m.Networks))]
	return model.Opportunity{
		ID:                   r.id(),
		Symbol:               m.Symbol,
		BuyExchange:          r.buy,
		SellExchange:         r.sell,
		BuyPrice:             ptr(buy.InexactFloat64()),
		SellPrice:            ptr(sell.InexactFloat64()),
		PotentialProfitPct:   ptr(potentialPct.InexactFloat64()),
		ExecutableVolumeBase: ptr(volume.InexactFloat64()),
		FeesPaidQuote:        ptr(fees.Round(6).InexactFloat64()),
		NetProfitPct:         ptr(netPct.InexactFloat64()),
		NetProfitQuote:       ptr(net.Round(6).InexactFloat64()),
		BuyNetwork:           ptr(network),
		SellNetwork:          ptr(network),
		Timestamp:            ptr(ts),
	}
}

// Pairs returns the monitored symbols per exchange.
func (s *simulator) Pairs() map[string][]string {
	out := make(map[string][]string)
	for _, m := range s.markets {
		for _, ex := range m.Exchanges {
			out[ex] = append(out[ex], m.Symbol)
		}
	}
	for _, symbols := range out {
		sort.Strings(symbols)
	}
	return out
}

// Statuses reports every simulated exchange as connected.
func (s *simulator) Statuses() map[string]string {
	out := make(map[string]string)
	for ex := range s.Pairs() {
		out[ex] = string(model.ExchangeConnected)
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}
