package main

import (
	"github.com/spf13/cobra"
)

func newAnalyzeCmd(app *App) *cobra.Command {
	var expiration string

	cmd := &cobra.Command{
		Use:   "analyze SYMBOL",
		Short: "Analyze one expiration of an option chain",
		Long: `Analyze fetches the quote and option chain for SYMBOL and reports max pain,
the expected move, put/call ratios and the largest open-interest walls.
Without --expiration the nearest listed expiration is used.`,
		Example: "  chainscope analyze SPY\n  chainscope analyze QQQ --expiration 2025-10-17 --json",
		Args:    requireArgs(1, "chainscope analyze SYMBOL [--expiration YYYY-MM-DD]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := app.Scanner.Analyze(cmd.Context(), args[0], expiration)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			return renderReport(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVarP(&expiration, "expiration", "e", "", "expiration date (YYYY-MM-DD), defaults to the nearest")
	return cmd
}
