package valuation

import (
	"gonum.org/v1/gonum/floats"
)

// Concentration summarises how a portfolio's value is spread across holdings.
// Only holdings with a positive estimated value take part.
type Concentration struct {
	PositiveHoldings  int     `json:"positive_holdings"`
	Herfindahl        float64 `json:"herfindahl"`         // Σ w², 1 means a single holding
	EffectiveHoldings float64 `json:"effective_holdings"` // 1 / Herfindahl
	TopHoldingShare   float64 `json:"top_holding_share"`  // Percent of positive value
	TopSymbol         string  `json:"top_symbol,omitempty"`
}

// ComputeConcentration derives concentration metrics from a valuation
func ComputeConcentration(v *Valuation) Concentration {
	if v == nil {
		return Concentration{}
	}

	values := make([]float64, 0, len(v.Holdings))
	symbols := make([]string, 0, len(v.Holdings))
	for _, h := range v.Holdings {
		if h.EstimatedValue > 0 {
			values = append(values, h.EstimatedValue)
			symbols = append(symbols, h.Asset.Symbol)
		}
	}
	if len(values) == 0 {
		return Concentration{}
	}

	weights := make([]float64, len(values))
	copy(weights, values)
	floats.Scale(1/floats.Sum(values), weights)

	hhi := floats.Dot(weights, weights)
	top := floats.MaxIdx(weights)

	return Concentration{
		PositiveHoldings:  len(weights),
		Herfindahl:        hhi,
		EffectiveHoldings: 1 / hhi,
		TopHoldingShare:   weights[top] * 100,
		TopSymbol:         symbols[top],
	}
}
