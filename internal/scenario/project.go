package scenario

import (
	"github.com/rotisserie/eris"
)

// Summary holds the headline figures for one regime, always derived from the
// series itself so chart and headline can never drift apart.
type Summary struct {
	TotalReturnPct float64 `json:"total_return_pct"`
	FinalValue     float64 `json:"final_value"`
}

// Projection pairs a regime's trajectory with its derived summary.
type Projection struct {
	Regime  Regime  `json:"regime"`
	Summary Summary `json:"summary"`
}

// MergedPoint is one chart row: a period label and one value column per
// selected regime.
type MergedPoint struct {
	Period string             `json:"month"`
	Values map[string]float64 `json:"values"`
}

// View is the merged chart data for a regime selection plus per-regime
// projections, ready for rendering.
type View struct {
	Selected    []string      `json:"selected"`
	Points      []MergedPoint `json:"points"`
	Projections []Projection  `json:"projections"`
}

// Summarize derives the summary statistics from a validated series.
func Summarize(series []Point) Summary {
	first := series[0].Value
	last := series[len(series)-1].Value
	return Summary{
		TotalReturnPct: (last/first - 1) * 100,
		FinalValue:     last,
	}
}

// Project computes the projection for every regime in the dataset.
func Project(ds Dataset) []Projection {
	out := make([]Projection, len(ds.Regimes))
	for i, r := range ds.Regimes {
		out[i] = Projection{Regime: r, Summary: Summarize(r.Series)}
	}
	return out
}

// Merge combines a non-empty subset of regimes into one view keyed by period
// label. All regimes share identical labels by construction, so the join is
// a positional zip. Regime order in the selection is preserved; an unknown
// regime name, a duplicate name, or an empty selection is an error.
func Merge(ds Dataset, selected []string) (View, error) {
	if len(selected) == 0 {
		return View{}, eris.New("scenario: empty regime selection")
	}

	seen := make(map[string]bool, len(selected))
	regimes := make([]Regime, 0, len(selected))
	for _, name := range selected {
		if seen[name] {
			return View{}, eris.Errorf("scenario: regime %q selected twice", name)
		}
		seen[name] = true

		r, ok := ds.Regime(name)
		if !ok {
			return View{}, eris.Errorf("scenario: unknown regime %q", name)
		}
		regimes = append(regimes, r)
	}

	points := make([]MergedPoint, PeriodCount)
	for i := range points {
		values := make(map[string]float64, len(regimes))
		for _, r := range regimes {
			values[r.Name] = r.Series[i].Value
		}
		points[i] = MergedPoint{Period: regimes[0].Series[i].Period, Values: values}
	}

	projections := make([]Projection, len(regimes))
	for i, r := range regimes {
		projections[i] = Projection{Regime: r, Summary: Summarize(r.Series)}
	}

	return View{Selected: selected, Points: points, Projections: projections}, nil
}
