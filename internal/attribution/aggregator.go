// Package attribution computes blended spend, ROAS and model contributions
// from already-loaded per-platform performance series. It performs no I/O.
package attribution

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"archie-core-attribution-layer/internal/domain"

	"github.com/shopspring/decimal"
)

// DateRange selects whole days, both bounds inclusive. A zero bound is open.
type DateRange struct {
	From time.Time `json:"from,omitempty"`
	To   time.Time `json:"to,omitempty"`
}

// Contains reports whether t falls on a day inside the range
func (r DateRange) Contains(t time.Time) bool {
	day := truncateDay(t)
	if !r.From.IsZero() && day.Before(truncateDay(r.From)) {
		return false
	}
	if !r.To.IsZero() && day.After(truncateDay(r.To)) {
		return false
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Ratio is a quotient that may be undefined. An undefined ratio holds NaN
// and marshals to null.
type Ratio struct {
	Value   float64
	Defined bool
}

func newRatio(num, den decimal.Decimal) Ratio {
	if den.IsZero() {
		return Ratio{Value: math.NaN()}
	}
	return Ratio{Value: num.DivRound(den, 4).InexactFloat64(), Defined: true}
}

// MarshalJSON implements json.Marshaler
func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Defined {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

// Input is everything one aggregation needs
type Input struct {
	Series  map[domain.Platform][]domain.PerformancePoint
	Range   DateRange
	Model   domain.AttributionModel
	Weights domain.AttributionWeights
}

// PlatformTotals are the in-range sums of one platform
type PlatformTotals struct {
	Platform    domain.Platform `json:"platform"`
	Spend       float64         `json:"spend"`
	Revenue     float64         `json:"revenue"`
	Conversions int64           `json:"conversions"`
	ROAS        Ratio           `json:"roas"`
}

// Contribution is the what-if view of one attribution model
type Contribution struct {
	Model                 domain.AttributionModel `json:"model"`
	Percentage            float64                 `json:"percentage"`
	AttributedConversions float64                 `json:"attributed_conversions"`
	AttributedRevenue     float64                 `json:"attributed_revenue"`
	Selected              bool                    `json:"selected"`
}

// Report is the blended result
type Report struct {
	Range            DateRange               `json:"range"`
	SelectedModel    domain.AttributionModel `json:"selected_model"`
	TotalSpend       float64                 `json:"total_spend"`
	TotalRevenue     float64                 `json:"total_revenue"`
	TotalConversions int64                   `json:"total_conversions"`
	ROAS             Ratio                   `json:"roas"`
	Platforms        []PlatformTotals        `json:"platforms"`
	Contributions    []Contribution          `json:"contributions"`
}

// Aggregate sums the in-range points of every platform and builds the
// contribution table. Models without a configured weight use the default weight.
func Aggregate(in Input) (Report, error) {
	model := in.Model
	if model == "" {
		model = domain.ModelLastClick
	}
	if _, err := domain.ParseAttributionModel(string(model)); err != nil {
		return Report{}, err
	}
	if err := in.Weights.Validate(); err != nil {
		return Report{}, err
	}
	if !in.Range.From.IsZero() && !in.Range.To.IsZero() && truncateDay(in.Range.To).Before(truncateDay(in.Range.From)) {
		return Report{}, domain.NewError(domain.KindInvalidInput, "aggregate", fmt.Errorf("date range ends before it starts"))
	}

	var totalSpend, totalRevenue decimal.Decimal
	var totalConversions int64
	platforms := make([]PlatformTotals, 0, len(in.Series))

	for _, p := range orderedPlatforms(in.Series) {
		var spend, revenue decimal.Decimal
		var conversions int64
		for _, point := range in.Series[p] {
			if !finite(point.Spend) || !finite(point.Revenue) {
				return Report{}, domain.NewError(domain.KindInvalidInput, "aggregate",
					fmt.Errorf("%s point on %s has a non-finite spend or revenue", p, point.Date.Format(time.DateOnly)))
			}
			if !in.Range.Contains(point.Date) {
				continue
			}
			spend = spend.Add(decimal.NewFromFloat(point.Spend))
			revenue = revenue.Add(decimal.NewFromFloat(point.Revenue))
			conversions += point.Conversions
		}

		platforms = append(platforms, PlatformTotals{
			Platform:    p,
			Spend:       cents(spend),
			Revenue:     cents(revenue),
			Conversions: conversions,
			ROAS:        newRatio(revenue, spend),
		})
		totalSpend = totalSpend.Add(spend)
		totalRevenue = totalRevenue.Add(revenue)
		totalConversions += conversions
	}

	defaults := domain.DefaultAttributionWeights()
	hundred := decimal.NewFromInt(100)
	contributions := make([]Contribution, 0, len(domain.AttributionModels))
	for _, m := range domain.AttributionModels {
		pct, ok := in.Weights[m]
		if !ok {
			pct = defaults[m]
		}
		share := decimal.NewFromFloat(pct).Div(hundred)
		contributions = append(contributions, Contribution{
			Model:                 m,
			Percentage:            pct,
			AttributedConversions: cents(decimal.NewFromInt(totalConversions).Mul(share)),
			AttributedRevenue:     cents(totalRevenue.Mul(share)),
			Selected:              m == model,
		})
	}

	return Report{
		Range:            in.Range,
		SelectedModel:    model,
		TotalSpend:       cents(totalSpend),
		TotalRevenue:     cents(totalRevenue),
		TotalConversions: totalConversions,
		ROAS:             newRatio(totalRevenue, totalSpend),
		Platforms:        platforms,
		Contributions:    contributions,
	}, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func cents(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// orderedPlatforms returns the known platforms in canonical order, then any others by name
func orderedPlatforms(series map[domain.Platform][]domain.PerformancePoint) []domain.Platform {
	rank := make(map[domain.Platform]int, len(domain.Platforms))
	for i, p := range domain.Platforms {
		rank[p] = i
	}

	out := make([]domain.Platform, 0, len(series))
	for p := range series {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, iKnown := rank[out[i]]
		rj, jKnown := rank[out[j]]
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown != jKnown:
			return iKnown
		default:
			return out[i] < out[j]
		}
	})
	return out
}
