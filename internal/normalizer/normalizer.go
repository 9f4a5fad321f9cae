// Package normalizer maps venue-native price formats into implied probability.
// All functions are pure: no I/O, no state, deterministic.
package normalizer

import (
	"math"

	"github.com/oddsaxiom/pipeline/pkg/types"
)

// Normalize converts a raw price to implied probability in [0, 1].
//
//	probability        clamp to [0, 1]
//	cents              p/100, clamped (Kalshi quotes 1-99 cents)
//	american_positive  100/(p+100), 0.5 when p <= 0
//	american_negative  |p|/(|p|+100), 0.5 when p == 0
//	decimal            1/p, 0 when p <= 0
//
// Unknown formats are treated as probability.
func Normalize(price float64, format types.PriceFormat) float64 {
	switch format {
	case types.FormatProbability:
		return clamp01(price)
	case types.FormatCents:
		return clamp01(price / 100.0)
	case types.FormatAmericanPositive:
		if price <= 0 {
			return 0.5
		}
		return 100.0 / (price + 100.0)
	case types.FormatAmericanNegative:
		abs := math.Abs(price)
		if abs <= 0 {
			return 0.5
		}
		return abs / (abs + 100.0)
	case types.FormatDecimal:
		if price <= 0 {
			return 0
		}
		return 1.0 / price
	default:
		return clamp01(price)
	}
}

// NormalizeBatch maps a worker batch into normalised quotes. It never drops
// entries; quotes at exactly 0 or 1 are rejected downstream at the publisher
// boundary, keeping this function total.
func NormalizeBatch(raw []types.RawQuote) []types.NormalizedQuote {
	out := make([]types.NormalizedQuote, 0, len(raw))
	for _, r := range raw {
		out = append(out, types.NormalizedQuote{
			RawQuote:    r,
			ImpliedProb: Normalize(r.Price, r.PriceFormat),
		})
	}
	return out
}

// Valid reports whether an implied probability can participate in detection.
func Valid(impliedProb float64) bool {
	return impliedProb > 0 && impliedProb < 1
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
