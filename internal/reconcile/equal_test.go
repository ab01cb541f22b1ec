package reconcile

import (
	"math"
	"testing"

	"github.com/rickgao/arbfeed/internal/model"
)

func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }
func i64(v int64) *int64     { return &v }

func baseOpp() model.Opportunity {
	return model.Opportunity{
		ID:                   "BTC/USDT-binance-kraken",
		Symbol:               "BTC/USDT",
		BuyExchange:          "binance",
		SellExchange:         "kraken",
		BuyPrice:             f64(64000.12),
		SellPrice:            f64(64100.5),
		PotentialProfitPct:   f64(0.156),
		ExecutableVolumeBase: f64(0.25),
		FeesPaidQuote:        f64(32.01),
		NetProfitPct:         f64(0.056),
		NetProfitQuote:       f64(8.97),
		BuyNetwork:           str("BTC"),
		SellNetwork:          str("BTC"),
		Timestamp:            i64(1700000000000),
	}
}

func TestEqual_Identical(t *testing.T) {
	a, b := baseOpp(), baseOpp()
	if !Equal(a, b, DefaultPrecision) {
		t.Error("identical records should be equal")
	}
}

func TestEqual_FloatJitter(t *testing.T) {
	a, b := baseOpp(), baseOpp()
	b.BuyPrice = f64(64000.12 + 1e-11)
	b.NetProfitPct = f64(0.056 - 4e-10)

	if !Equal(a, b, DefaultPrecision) {
		t.Error("differences below 8 decimal places should be absorbed")
	}
}

func TestEqual_Differences(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *model.Opportunity)
	}{
		{"symbol", func(o *model.Opportunity) { o.Symbol = "ETH/USDT" }},
		{"buy exchange", func(o *model.Opportunity) { o.BuyExchange = "okx" }},
		{"sell exchange", func(o *model.Opportunity) { o.SellExchange = "okx" }},
		{"buy price", func(o *model.Opportunity) { o.BuyPrice = f64(64000.13) }},
		{"sell price", func(o *model.Opportunity) { o.SellPrice = f64(64100.50000002) }},
		{"gross pct", func(o *model.Opportunity) { o.PotentialProfitPct = f64(0.157) }},
		{"volume", func(o *model.Opportunity) { o.ExecutableVolumeBase = f64(0.26) }},
		{"fees", func(o *model.Opportunity) { o.FeesPaidQuote = f64(32.02) }},
		{"net pct", func(o *model.Opportunity) { o.NetProfitPct = f64(0.057) }},
		{"net quote", func(o *model.Opportunity) { o.NetProfitQuote = f64(9) }},
		{"buy network", func(o *model.Opportunity) { o.BuyNetwork = str("ERC20") }},
		{"sell network nil", func(o *model.Opportunity) { o.SellNetwork = nil }},
		{"timestamp", func(o *model.Opportunity) { o.Timestamp = i64(1700000000001) }},
		{"timestamp nil", func(o *model.Opportunity) { o.Timestamp = nil }},
		{"price nil", func(o *model.Opportunity) { o.BuyPrice = nil }},
		{"price NaN", func(o *model.Opportunity) { o.BuyPrice = f64(math.NaN()) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := baseOpp(), baseOpp()
			tt.mutate(&b)
			if Equal(a, b, DefaultPrecision) {
				t.Errorf("Equal() = true after changing %s, want false", tt.name)
			}
			if Equal(b, a, DefaultPrecision) {
				t.Errorf("Equal() not symmetric for %s", tt.name)
			}
		})
	}
}

func TestEqual_NaN(t *testing.T) {
	a, b := baseOpp(), baseOpp()
	a.FeesPaidQuote = f64(math.NaN())
	b.FeesPaidQuote = f64(math.NaN())

	if !Equal(a, b, DefaultPrecision) {
		t.Error("NaN should equal NaN")
	}
}

func TestEqual_Infinity(t *testing.T) {
	a, b := baseOpp(), baseOpp()
	a.NetProfitQuote = f64(math.Inf(1))
	b.NetProfitQuote = f64(math.Inf(1))
	if !Equal(a, b, DefaultPrecision) {
		t.Error("+Inf should equal +Inf")
	}

	b.NetProfitQuote = f64(math.Inf(-1))
	if Equal(a, b, DefaultPrecision) {
		t.Error("+Inf should not equal -Inf")
	}
}

func TestEqual_BothNil(t *testing.T) {
	a, b := baseOpp(), baseOpp()
	a.BuyNetwork, b.BuyNetwork = nil, nil
	a.NetProfitQuote, b.NetProfitQuote = nil, nil

	if !Equal(a, b, DefaultPrecision) {
		t.Error("nil fields on both sides should be equal")
	}
}

func TestEqual_Precision(t *testing.T) {
	a, b := baseOpp(), baseOpp()
	b.BuyPrice = f64(64000.1201)

	if Equal(a, b, 8) {
		t.Error("difference at 4th place should matter at precision 8")
	}
	if !Equal(a, b, 2) {
		t.Error("difference at 4th place should not matter at precision 2")
	}
}
