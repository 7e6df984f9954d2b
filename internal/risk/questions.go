// Package risk implements the questionnaire-scoring and risk-classification
// pipeline: a static question set, three score-ranged profiles, and a pure
// classifier mapping a complete answer set to a profile and its target
// allocation.
package risk

import "github.com/quantalpha/advisor-cli/internal/model"

// Questions returns the ordered risk-assessment questionnaire. Each option
// scores 1-4, so six questions yield totals in [6, 24].
func Questions() []model.Question {
	return []model.Question{
		{
			ID:     1,
			Prompt: "What is your investment time horizon?",
			Options: []model.Option{
				{Value: "1", Label: "Less than 2 years", Score: 1},
				{Value: "2", Label: "2-5 years", Score: 2},
				{Value: "3", Label: "5-10 years", Score: 3},
				{Value: "4", Label: "More than 10 years", Score: 4},
			},
		},
		{
			ID:     2,
			Prompt: "How would you react to a 20% portfolio decline?",
			Options: []model.Option{
				{Value: "1", Label: "Sell everything immediately", Score: 1},
				{Value: "2", Label: "Sell some positions", Score: 2},
				{Value: "3", Label: "Hold and wait for recovery", Score: 3},
				{Value: "4", Label: "Buy more at lower prices", Score: 4},
			},
		},
		{
			ID:     3,
			Prompt: "What percentage of your total wealth are you investing?",
			Options: []model.Option{
				{Value: "1", Label: "More than 75%", Score: 1},
				{Value: "2", Label: "50-75%", Score: 2},
				{Value: "3", Label: "25-50%", Score: 3},
				{Value: "4", Label: "Less than 25%", Score: 4},
			},
		},
		{
			ID:     4,
			Prompt: "What is your primary investment goal?",
			Options: []model.Option{
				{Value: "1", Label: "Capital preservation", Score: 1},
				{Value: "2", Label: "Income generation", Score: 2},
				{Value: "3", Label: "Balanced growth", Score: 3},
				{Value: "4", Label: "Maximum growth", Score: 4},
			},
		},
		{
			ID:     5,
			Prompt: "How familiar are you with investing?",
			Options: []model.Option{
				{Value: "1", Label: "Complete beginner", Score: 1},
				{Value: "2", Label: "Some knowledge", Score: 2},
				{Value: "3", Label: "Experienced investor", Score: 3},
				{Value: "4", Label: "Professional/Expert", Score: 4},
			},
		},
		{
			ID:     6,
			Prompt: "Which statement best describes your income?",
			Options: []model.Option{
				{Value: "1", Label: "Unstable, need access to funds", Score: 1},
				{Value: "2", Label: "Stable, but limited savings", Score: 2},
				{Value: "3", Label: "Stable with good savings", Score: 3},
				{Value: "4", Label: "High income with substantial savings", Score: 4},
			},
		},
	}
}
