package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/quantalpha/advisor-cli/internal/model"
	"github.com/quantalpha/advisor-cli/internal/store"
)

var (
	sessionsProfile string
	sessionsLimit   int
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List saved assessments and conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initAdvisor(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		assessments, err := env.Service.Store().ListAssessments(ctx, store.AssessmentFilter{
			Profile: model.RiskProfileName(sessionsProfile),
			Limit:   sessionsLimit,
		})
		if err != nil {
			return err
		}

		conversations, err := env.Service.Store().ListConversations(ctx, sessionsLimit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

		fmt.Fprintln(w, "ASSESSMENT\tSCORE\tPROFILE\tCREATED")
		for _, a := range assessments {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
				a.ID, a.Score, a.Profile, a.CreatedAt.Format("2006-01-02 15:04"))
		}
		w.Flush()

		fmt.Println()

		w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CONVERSATION\tMESSAGES\tUPDATED")
		for _, c := range conversations {
			fmt.Fprintf(w, "%s\t%d\t%s\n",
				c.ID, c.MessageCount, c.UpdatedAt.Format("2006-01-02 15:04"))
		}
		w.Flush()

		return nil
	},
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionsProfile, "profile", "", "filter assessments by risk profile")
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "maximum rows per table")
	rootCmd.AddCommand(sessionsCmd)
}
