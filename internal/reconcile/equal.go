package reconcile

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/rickgao/arbfeed/internal/model"
)

// DefaultPrecision is the number of decimal places numeric fields are
// rounded to before comparison.
const DefaultPrecision int32 = 8

// Equal reports whether two snapshot records of the same id are materially
// the same. The id itself is not compared.
//
// Numeric fields are rounded to precision decimal places so transport-level
// float jitter does not register as a change. NaN equals only NaN. A nil
// (null or absent) field never equals a present one.
func Equal(a, b model.Opportunity, precision int32) bool {
	if a.Symbol != b.Symbol || a.BuyExchange != b.BuyExchange || a.SellExchange != b.SellExchange {
		return false
	}

	floats := [...][2]*float64{
		{a.BuyPrice, b.BuyPrice},
		{a.SellPrice, b.SellPrice},
		{a.PotentialProfitPct, b.PotentialProfitPct},
		{a.ExecutableVolumeBase, b.ExecutableVolumeBase},
		{a.FeesPaidQuote, b.FeesPaidQuote},
		{a.NetProfitPct, b.NetProfitPct},
		{a.NetProfitQuote, b.NetProfitQuote},
	}
	for _, pair := range floats {
		if !floatEqual(pair[0], pair[1], precision) {
			return false
		}
	}

	if !ptrEqual(a.BuyNetwork, b.BuyNetwork) || !ptrEqual(a.SellNetwork, b.SellNetwork) {
		return false
	}
	return ptrEqual(a.Timestamp, b.Timestamp)
}

func floatEqual(a, b *float64, precision int32) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	x, y := *a, *b

	if math.IsNaN(x) || math.IsNaN(y) {
		return math.IsNaN(x) && math.IsNaN(y)
	}
	// decimal cannot represent infinities
	if math.IsInf(x, 0) || math.IsInf(y, 0) {
		return x == y
	}

	return decimal.NewFromFloat(x).Round(precision).Equal(decimal.NewFromFloat(y).Round(precision))
}

func ptrEqual[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
