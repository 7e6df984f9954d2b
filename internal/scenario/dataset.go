// Package scenario projects portfolio value trajectories under named
// interest-rate regimes. Regime datasets are static fixtures validated at
// load time; the projector itself is pure.
package scenario

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Point is one monthly value in a regime trajectory.
type Point struct {
	Period string  `json:"month" yaml:"month"`
	Value  float64 `json:"value" yaml:"value"`
}

// Regime is a named rate environment with its 12-month trajectory and
// display metadata.
type Regime struct {
	Name          string  `json:"name" yaml:"name"`
	RateChangePct float64 `json:"rate_change" yaml:"rate_change"`
	Outlook       string  `json:"outlook" yaml:"outlook"`
	Note          string  `json:"note" yaml:"note"`
	Series        []Point `json:"series" yaml:"series"`
}

// Dataset is an ordered set of regimes sharing period labels and a common
// starting value.
type Dataset struct {
	Regimes []Regime `json:"regimes" yaml:"regimes"`
}

// PeriodCount is the fixed trajectory length: one point per month.
const PeriodCount = 12

// Default returns the built-in rate-scenario dataset for the sample
// portfolio (starting value $125,750).
func Default() Dataset {
	return Dataset{Regimes: []Regime{
		{
			Name:          "Rate Cut (-2%)",
			RateChangePct: -2.0,
			Outlook:       "Most Optimistic",
			Note:          "Lower rates boost bond prices and growth stocks. Crypto benefits from risk-on sentiment.",
			Series: []Point{
				{"Jan", 125750}, {"Feb", 132400}, {"Mar", 138900}, {"Apr", 145200},
				{"May", 151800}, {"Jun", 158600}, {"Jul", 165100}, {"Aug", 171900},
				{"Sep", 178400}, {"Oct", 185200}, {"Nov", 192100}, {"Dec", 199500},
			},
		},
		{
			Name:          "Current Rates",
			RateChangePct: 0,
			Outlook:       "Base Case",
			Note:          "Steady growth with balanced performance across asset classes. Moderate volatility expected.",
			Series: []Point{
				{"Jan", 125750}, {"Feb", 127200}, {"Mar", 129800}, {"Apr", 131500},
				{"May", 134200}, {"Jun", 136900}, {"Jul", 139100}, {"Aug", 142300},
				{"Sep", 144800}, {"Oct", 147600}, {"Nov", 150200}, {"Dec", 153400},
			},
		},
		{
			Name:          "Rate Hike (+2%)",
			RateChangePct: 2.0,
			Outlook:       "Conservative",
			Note:          "Higher rates pressure growth stocks and crypto. Bonds face duration risk initially.",
			Series: []Point{
				{"Jan", 125750}, {"Feb", 123400}, {"Mar", 121800}, {"Apr", 119200},
				{"May", 117600}, {"Jun", 115900}, {"Jul", 114800}, {"Aug", 113200},
				{"Sep", 112100}, {"Oct", 111400}, {"Nov", 110800}, {"Dec", 110200},
			},
		},
	}}
}

// LoadFile reads a dataset from a YAML fixture and validates it. Used when
// the deployment ships its own trajectories instead of the built-in table.
func LoadFile(path string) (Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, eris.Wrapf(err, "scenario: read dataset %s", path)
	}
	var ds Dataset
	if err := yaml.Unmarshal(raw, &ds); err != nil {
		return Dataset{}, eris.Wrapf(err, "scenario: parse dataset %s", path)
	}
	if err := ds.Validate(); err != nil {
		return Dataset{}, eris.Wrapf(err, "scenario: dataset %s", path)
	}
	return ds, nil
}

// Regime returns the regime with the given name, if configured.
func (d Dataset) Regime(name string) (Regime, bool) {
	for _, r := range d.Regimes {
		if r.Name == name {
			return r, true
		}
	}
	return Regime{}, false
}

// Names returns the configured regime names in order.
func (d Dataset) Names() []string {
	names := make([]string, len(d.Regimes))
	for i, r := range d.Regimes {
		names[i] = r.Name
	}
	return names
}

// Validate enforces the dataset integrity invariants: every regime has
// exactly PeriodCount points, all regimes share identical period labels, and
// all trajectories start from the same value. A violating dataset fails
// startup rather than producing a silently skewed chart.
func (d Dataset) Validate() error {
	if len(d.Regimes) == 0 {
		return eris.New("no regimes configured")
	}

	seen := make(map[string]bool, len(d.Regimes))
	ref := d.Regimes[0]
	if len(ref.Series) != PeriodCount {
		return eris.Errorf("regime %q has %d periods, want %d", ref.Name, len(ref.Series), PeriodCount)
	}

	for _, r := range d.Regimes {
		if r.Name == "" {
			return eris.New("regime with empty name")
		}
		if seen[r.Name] {
			return eris.Errorf("duplicate regime %q", r.Name)
		}
		seen[r.Name] = true

		if len(r.Series) != PeriodCount {
			return eris.Errorf("regime %q has %d periods, want %d", r.Name, len(r.Series), PeriodCount)
		}
		if r.Series[0].Value != ref.Series[0].Value {
			return eris.Errorf("regime %q starts at %v, want shared starting value %v",
				r.Name, r.Series[0].Value, ref.Series[0].Value)
		}
		for i, p := range r.Series {
			if p.Period != ref.Series[i].Period {
				return eris.Errorf("regime %q period %d is %q, want %q",
					r.Name, i, p.Period, ref.Series[i].Period)
			}
			if p.Value <= 0 {
				return eris.Errorf("regime %q period %q has non-positive value %v", r.Name, p.Period, p.Value)
			}
		}
	}

	return nil
}
