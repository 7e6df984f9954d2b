package model

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// Question is a single risk-assessment question with its ordered options.
type Question struct {
	ID      int      `json:"id"`
	Prompt  string   `json:"question"`
	Options []Option `json:"options"`
}

// Option is one selectable answer. Value is unique within its question.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Score int    `json:"score"`
}

// AnswerSet maps a question ID to the chosen option value.
type AnswerSet map[int]string

// Validate checks that every answer references a known question and a valid
// option value for that question. It does not require completeness; use
// Complete for that.
func (a AnswerSet) Validate(questions []Question) error {
	byID := make(map[int]Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	for id, value := range a {
		q, ok := byID[id]
		if !ok {
			return eris.Errorf("answers: unknown question id %d", id)
		}
		if _, ok := q.Option(value); !ok {
			return eris.Errorf("answers: question %d has no option %q", id, value)
		}
	}
	return nil
}

// Complete reports whether every question has an answer.
func (a AnswerSet) Complete(questions []Question) bool {
	for _, q := range questions {
		if _, ok := a[q.ID]; !ok {
			return false
		}
	}
	return true
}

// Option returns the option with the given value, if any.
func (q Question) Option(value string) (Option, bool) {
	for _, opt := range q.Options {
		if opt.Value == value {
			return opt, true
		}
	}
	return Option{}, false
}

// RiskProfileName identifies one of the three configured risk buckets.
type RiskProfileName string

const (
	ProfileConservative RiskProfileName = "Conservative"
	ProfileModerate     RiskProfileName = "Moderate"
	ProfileAggressive   RiskProfileName = "Aggressive"
)

// RiskProfile is an immutable profile definition: a closed score range, a
// description, and the default target allocation for that bucket.
type RiskProfile struct {
	Name            RiskProfileName `json:"name"`
	MinScore        int             `json:"min_score"`
	MaxScore        int             `json:"max_score"`
	Description     string          `json:"description"`
	Allocation      Allocation      `json:"asset_allocation"`
	Characteristics []string        `json:"characteristics"`
}

// Contains reports whether the total score falls inside the profile's
// closed score range.
func (p RiskProfile) Contains(score int) bool {
	return score >= p.MinScore && score <= p.MaxScore
}

// Allocation is a target split across asset classes. Components are fixed
// integers per profile and must sum to exactly 100.
type Allocation struct {
	Stocks float64 `json:"stock"`
	Bonds  float64 `json:"bond"`
	Crypto float64 `json:"crypto"`
	Cash   float64 `json:"cash"`
}

// Sum returns the total of all components.
func (a Allocation) Sum() float64 {
	return a.Stocks + a.Bonds + a.Crypto + a.Cash
}

// Validate enforces the sum-to-100 invariant with no tolerance.
func (a Allocation) Validate() error {
	if a.Stocks < 0 || a.Bonds < 0 || a.Crypto < 0 || a.Cash < 0 {
		return eris.New("allocation: negative component")
	}
	if s := a.Sum(); s != 100 {
		return eris.Errorf("allocation: components sum to %v, want 100", s)
	}
	return nil
}

// String renders the allocation in the canonical class order.
func (a Allocation) String() string {
	return fmt.Sprintf("%g%% stocks, %g%% bonds, %g%% crypto, %g%% cash",
		a.Stocks, a.Bonds, a.Crypto, a.Cash)
}
