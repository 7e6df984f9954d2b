package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/quantalpha/advisor-cli/internal/prompt"
)

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Show the current portfolio snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initAdvisor(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		snapshot, err := env.Service.Portfolio(ctx)
		if err != nil {
			fmt.Println("Portfolio data is currently unavailable.")
			return nil
		}

		fmt.Printf("Total value: %s\n", prompt.Currency(snapshot.TotalValue))

		names := make([]string, 0, len(snapshot.AssetAllocation))
		for name := range snapshot.AssetAllocation {
			names = append(names, name)
		}
		sort.Strings(names)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, name := range names {
			fmt.Fprintf(w, "%s\t%.1f%%\n", name, snapshot.AssetAllocation[name])
		}
		w.Flush()

		fmt.Printf("\nReturn: %s%%\n", prompt.Decimal(snapshot.Metrics.Return, 2))
		fmt.Printf("Volatility: %s%%\n", prompt.Decimal(snapshot.Metrics.Volatility, 1))
		fmt.Printf("Sharpe ratio: %s\n", prompt.Decimal(snapshot.Metrics.SharpeRatio, 2))
		fmt.Printf("Assets: %d\n", snapshot.Metrics.NumAssets)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(portfolioCmd)
}
