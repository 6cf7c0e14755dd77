package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func newExpirationsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "expirations SYMBOL",
		Aliases: []string{"exp"},
		Short:   "List the listed expiration dates for a symbol",
		Args:    requireArgs(1, "chainscope expirations SYMBOL"),
		RunE: func(cmd *cobra.Command, args []string) error {
			dates, err := app.Scanner.Expirations(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			symbol := strings.ToUpper(strings.TrimSpace(args[0]))
			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"symbol":      symbol,
					"expirations": dates,
				})
			}
			renderExpirations(cmd.OutOrStdout(), symbol, dates)
			return nil
		},
	}
}
