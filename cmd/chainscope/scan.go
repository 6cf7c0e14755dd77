package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eddiefleurent/chainscope/internal/models"
)

// scanResult is the JSON shape of one scan line.
type scanResult struct {
	Report *models.Report `json:"report,omitempty"`
	Symbol string         `json:"symbol"`
	Error  string         `json:"error,omitempty"`
}

func newScanCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "scan [SYMBOL...]",
		Short: "Analyze the nearest expiration for several symbols",
		Long: `Scan analyzes the nearest expiration of each symbol concurrently.
Without arguments the symbols listed under scan.symbols in the config are used.
A failing symbol is reported and does not stop the others.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			symbols := args
			if len(symbols) == 0 {
				symbols = app.Config.Scan.Symbols
			}
			if len(symbols) == 0 {
				return fmt.Errorf("no symbols given and none configured under scan.symbols")
			}

			outcomes := app.Scanner.Scan(cmd.Context(), symbols)

			failed := 0
			for _, o := range outcomes {
				if o.Err != nil {
					failed++
				}
			}

			if jsonOutput(cmd) {
				results := make([]scanResult, 0, len(outcomes))
				for _, o := range outcomes {
					r := scanResult{Symbol: o.Symbol, Report: o.Report}
					if o.Err != nil {
						r.Error = o.Err.Error()
					}
					results = append(results, r)
				}
				if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
					return err
				}
			} else if err := renderScan(cmd.OutOrStdout(), outcomes); err != nil {
				return err
			}

			if failed == len(outcomes) {
				return fmt.Errorf("all %d symbols failed", failed)
			}
			return nil
		},
	}
}
