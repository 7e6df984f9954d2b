package risk

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/quantalpha/advisor-cli/internal/model"
)

// Profiles returns the three risk buckets in ascending score order. The
// ranges partition the full achievable span [6, 24] with no gaps or overlaps,
// which ValidateConfig enforces at startup.
func Profiles() []model.RiskProfile {
	return []model.RiskProfile{
		{
			Name:        model.ProfileConservative,
			MinScore:    6,
			MaxScore:    12,
			Description: "Focus on capital preservation with minimal volatility",
			Allocation:  model.Allocation{Stocks: 30, Bonds: 60, Crypto: 0, Cash: 10},
			Characteristics: []string{
				"Low risk tolerance",
				"Capital preservation focused",
				"Stable income preference",
				"Short to medium time horizon",
			},
		},
		{
			Name:        model.ProfileModerate,
			MinScore:    13,
			MaxScore:    18,
			Description: "Balanced approach seeking steady growth with moderate risk",
			Allocation:  model.Allocation{Stocks: 60, Bonds: 30, Crypto: 5, Cash: 5},
			Characteristics: []string{
				"Moderate risk tolerance",
				"Balanced growth objective",
				"Medium to long time horizon",
				"Diversified approach",
			},
		},
		{
			Name:        model.ProfileAggressive,
			MinScore:    19,
			MaxScore:    24,
			Description: "Growth-focused with higher risk tolerance for maximum returns",
			Allocation:  model.Allocation{Stocks: 80, Bonds: 10, Crypto: 8, Cash: 2},
			Characteristics: []string{
				"High risk tolerance",
				"Growth maximization focus",
				"Long time horizon",
				"Comfortable with volatility",
			},
		},
	}
}

// Recommendations are the static per-profile guidance tables surfaced
// alongside an assessment result.
type Recommendations struct {
	Strategy             []string `json:"investment_strategy"`
	RebalancingFrequency string   `json:"rebalancing_frequency"`
	KeyConsiderations    []string `json:"key_considerations"`
}

var recommendations = map[model.RiskProfileName]Recommendations{
	model.ProfileConservative: {
		Strategy: []string{
			"Focus on high-grade bonds and dividend-paying stocks",
			"Maintain significant cash reserves for stability",
			"Avoid volatile assets like crypto and growth stocks",
			"Consider Treasury Inflation-Protected Securities (TIPS)",
		},
		RebalancingFrequency: "Quarterly - to maintain stability",
		KeyConsiderations: []string{
			"Monitor interest rate changes affecting bond values",
			"Ensure adequate emergency fund outside investments",
			"Consider inflation impact on fixed-income investments",
			"Review allocation if time horizon changes",
		},
	},
	model.ProfileModerate: {
		Strategy: []string{
			"Diversify across asset classes and geographies",
			"Include both growth and value stocks",
			"Maintain moderate bond allocation for stability",
			"Small crypto allocation for growth potential",
		},
		RebalancingFrequency: "Semi-annually - balanced approach",
		KeyConsiderations: []string{
			"Regularly review and rebalance portfolio",
			"Stay disciplined during market volatility",
			"Consider tax-efficient investment vehicles",
			"Monitor correlation between asset classes",
		},
	},
	model.ProfileAggressive: {
		Strategy: []string{
			"Emphasize growth stocks and emerging markets",
			"Higher allocation to technology and innovation sectors",
			"Include alternative investments like crypto",
			"Minimize cash and low-yield bonds",
		},
		RebalancingFrequency: "Annually - let winners run",
		KeyConsiderations: []string{
			"Be prepared for significant short-term volatility",
			"Don't panic during market downturns",
			"Consider dollar-cost averaging for new investments",
			"Monitor concentration risk in growth sectors",
		},
	},
}

// RecommendationsFor returns the guidance tables for a profile.
func RecommendationsFor(name model.RiskProfileName) (Recommendations, bool) {
	r, ok := recommendations[name]
	return r, ok
}

// ScoreBounds returns the minimum and maximum achievable totals for a
// questionnaire, assuming one answer per question.
func ScoreBounds(questions []model.Question) (min, max int) {
	for _, q := range questions {
		lo, hi := 0, 0
		for i, opt := range q.Options {
			if i == 0 || opt.Score < lo {
				lo = opt.Score
			}
			if opt.Score > hi {
				hi = opt.Score
			}
		}
		min += lo
		max += hi
	}
	return min, max
}

// ValidateConfig checks the static questionnaire and profile configuration:
// option values unique per question, non-negative scores, allocations summing
// to 100, and profile ranges partitioning the achievable score span. It runs
// once at startup; the classifier assumes a valid configuration.
func ValidateConfig(questions []model.Question, profiles []model.RiskProfile) error {
	if len(questions) == 0 {
		return eris.New("risk: no questions configured")
	}
	if len(profiles) == 0 {
		return eris.New("risk: no profiles configured")
	}

	seenID := make(map[int]bool, len(questions))
	for _, q := range questions {
		if seenID[q.ID] {
			return eris.Errorf("risk: duplicate question id %d", q.ID)
		}
		seenID[q.ID] = true
		if len(q.Options) == 0 {
			return eris.Errorf("risk: question %d has no options", q.ID)
		}
		seenVal := make(map[string]bool, len(q.Options))
		for _, opt := range q.Options {
			if seenVal[opt.Value] {
				return eris.Errorf("risk: question %d has duplicate option %q", q.ID, opt.Value)
			}
			seenVal[opt.Value] = true
			if opt.Score < 0 {
				return eris.Errorf("risk: question %d option %q has negative score", q.ID, opt.Value)
			}
		}
	}

	sorted := make([]model.RiskProfile, len(profiles))
	copy(sorted, profiles)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinScore < sorted[j].MinScore })

	for _, p := range sorted {
		if p.MinScore > p.MaxScore {
			return eris.Errorf("risk: profile %s has inverted range [%d, %d]", p.Name, p.MinScore, p.MaxScore)
		}
		if err := p.Allocation.Validate(); err != nil {
			return eris.Wrapf(err, "risk: profile %s", p.Name)
		}
	}

	minScore, maxScore := ScoreBounds(questions)
	if sorted[0].MinScore != minScore {
		return eris.Errorf("risk: lowest range starts at %d, want %d", sorted[0].MinScore, minScore)
	}
	if sorted[len(sorted)-1].MaxScore != maxScore {
		return eris.Errorf("risk: highest range ends at %d, want %d", sorted[len(sorted)-1].MaxScore, maxScore)
	}
	for i := 1; i < len(sorted); i++ {
		prev, next := sorted[i-1], sorted[i]
		if next.MinScore != prev.MaxScore+1 {
			return eris.Errorf("risk: ranges %s and %s do not tile: [%d, %d] then [%d, %d]",
				prev.Name, next.Name, prev.MinScore, prev.MaxScore, next.MinScore, next.MaxScore)
		}
	}

	return nil
}
