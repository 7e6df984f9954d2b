package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/quantalpha/advisor-cli/internal/model"
)

var assessAnswers string

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Run the risk tolerance questionnaire",
	Long:  "Answer the six-question risk questionnaire interactively, or pass --answers with comma-separated option values in question order.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initAdvisor(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		questions := env.Service.Questions()

		var answers model.AnswerSet
		if assessAnswers != "" {
			answers, err = parseAnswers(assessAnswers, questions)
		} else {
			answers, err = promptAnswers(questions)
		}
		if err != nil {
			return err
		}

		result, err := env.Service.Assess(ctx, answers)
		if err != nil {
			return err
		}

		fmt.Printf("\nScore: %d\n", result.Assessment.Score)
		fmt.Printf("Profile: %s — %s\n", result.Profile.Name, result.Profile.Description)
		fmt.Printf("Allocation: %s\n", result.Assessment.Allocation)
		fmt.Printf("\nStrategy:\n")
		for _, s := range result.Recommendations.Strategy {
			fmt.Printf("  - %s\n", s)
		}
		fmt.Printf("Rebalancing: %s\n", result.Recommendations.RebalancingFrequency)
		fmt.Printf("\nConsiderations:\n")
		for _, c := range result.Recommendations.KeyConsiderations {
			fmt.Printf("  - %s\n", c)
		}
		fmt.Printf("\nSaved as %s\n", result.Assessment.ID)

		return nil
	},
}

// parseAnswers maps comma-separated option values onto the questions in order.
func parseAnswers(raw string, questions []model.Question) (model.AnswerSet, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != len(questions) {
		return nil, eris.Errorf("expected %d answers, got %d", len(questions), len(parts))
	}

	answers := make(model.AnswerSet, len(questions))
	for i, p := range parts {
		answers[questions[i].ID] = strings.TrimSpace(p)
	}
	return answers, nil
}

// promptAnswers walks the questionnaire on stdin.
func promptAnswers(questions []model.Question) (model.AnswerSet, error) {
	scanner := bufio.NewScanner(os.Stdin)
	answers := make(model.AnswerSet, len(questions))

	for i, q := range questions {
		fmt.Printf("\n%d. %s\n", i+1, q.Prompt)
		for _, opt := range q.Options {
			fmt.Printf("   [%s] %s\n", opt.Value, opt.Label)
		}

		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return nil, eris.Wrap(err, "read answer")
				}
				return nil, eris.New("questionnaire aborted")
			}
			value := strings.TrimSpace(scanner.Text())
			if _, ok := q.Option(value); !ok {
				fmt.Println("Please enter one of the listed option numbers.")
				continue
			}
			answers[q.ID] = value
			break
		}
	}
	return answers, nil
}

func init() {
	assessCmd.Flags().StringVar(&assessAnswers, "answers", "", "comma-separated option values in question order (e.g. 3,2,4,1,3,2)")
	rootCmd.AddCommand(assessCmd)
}
