package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var scenarioRegimes []string

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "Project portfolio value under interest-rate scenarios",
	Long:  "Print the 12-month portfolio trajectory for each selected rate regime, with total return and final value per regime.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initAdvisor(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		view, err := env.Service.Scenarios(scenarioRegimes)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

		fmt.Fprint(w, "Month")
		for _, name := range view.Selected {
			fmt.Fprintf(w, "\t%s", name)
		}
		fmt.Fprintln(w)

		for _, point := range view.Points {
			fmt.Fprint(w, point.Period)
			for _, name := range view.Selected {
				fmt.Fprintf(w, "\t%.0f", point.Values[name])
			}
			fmt.Fprintln(w)
		}
		w.Flush()

		fmt.Println()
		for _, p := range view.Projections {
			fmt.Printf("%s: %+.1f%% total return, final value %.0f\n",
				p.Regime.Name, p.Summary.TotalReturnPct, p.Summary.FinalValue)
		}

		return nil
	},
}

func init() {
	scenariosCmd.Flags().StringSliceVar(&scenarioRegimes, "regimes", nil, "regimes to include (default all)")
	rootCmd.AddCommand(scenariosCmd)
}
