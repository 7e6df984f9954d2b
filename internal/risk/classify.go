package risk

import (
	"github.com/rotisserie/eris"

	"github.com/quantalpha/advisor-cli/internal/model"
)

// TotalScore sums the scores of the chosen options. A question without an
// answer contributes 0. Answers must already be validated against the
// questionnaire.
func TotalScore(answers model.AnswerSet, questions []model.Question) int {
	total := 0
	for _, q := range questions {
		value, ok := answers[q.ID]
		if !ok {
			continue
		}
		if opt, ok := q.Option(value); ok {
			total += opt.Score
		}
	}
	return total
}

// Classify maps a complete answer set to its risk profile. Pure and
// deterministic. An answer referencing an unknown question or option, or an
// incomplete answer set, is a precondition violation reported as an error —
// an under-scored total would silently land in the wrong bucket.
//
// Totals outside the configured span clamp to the nearest terminal profile:
// below the lowest range picks the first (most conservative) profile, above
// the highest picks the last (most aggressive).
func Classify(answers model.AnswerSet, questions []model.Question, profiles []model.RiskProfile) (model.RiskProfile, error) {
	if len(profiles) == 0 {
		return model.RiskProfile{}, eris.New("risk: no profiles configured")
	}
	if err := answers.Validate(questions); err != nil {
		return model.RiskProfile{}, err
	}
	if !answers.Complete(questions) {
		return model.RiskProfile{}, eris.Errorf("risk: incomplete answer set: %d of %d questions answered",
			len(answers), len(questions))
	}

	total := TotalScore(answers, questions)
	for _, p := range profiles {
		if p.Contains(total) {
			return p, nil
		}
	}

	// Ranges are gapless over the achievable span, so only out-of-span
	// totals reach this point.
	if total < profiles[0].MinScore {
		return profiles[0], nil
	}
	return profiles[len(profiles)-1], nil
}

// AllocationFor returns the profile's default target allocation. The
// sum-to-100 invariant is enforced at configuration load, not per call.
func AllocationFor(profile model.RiskProfile) model.Allocation {
	return profile.Allocation
}
