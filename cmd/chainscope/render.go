package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/eddiefleurent/chainscope/internal/analytics"
	"github.com/eddiefleurent/chainscope/internal/chain"
	"github.com/eddiefleurent/chainscope/internal/models"
	"github.com/eddiefleurent/chainscope/internal/scanner"
	"github.com/eddiefleurent/chainscope/internal/util"
)

const pcrCaption = "* A P/C ratio of 1.0 or more means puts dominate (bearish); below 1.0 calls dominate (bullish)"

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	bearishColor = color.New(color.FgRed)
	bullishColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	dimColor     = color.New(color.Faint)
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func biasColor(s analytics.Sentiment) *color.Color {
	switch s {
	case analytics.SentimentBearish:
		return bearishColor
	case analytics.SentimentBullish:
		return bullishColor
	default:
		return dimColor
	}
}

// renderReport prints the full text view of one analysis.
func renderReport(w io.Writer, r *models.Report) error {
	if r == nil || r.Result == nil {
		return fmt.Errorf("nothing to render")
	}
	res := r.Result
	em := res.ExpectedMove

	headerColor.Fprintf(w, "%s  %s\n", r.Symbol, r.Expiration)
	fmt.Fprintf(w, "Spot price:      %s\n", util.FormatDollars(r.SpotPrice, 0.01, 2))
	fmt.Fprintf(w, "Max Pain:        %s\n", util.FormatDollars(res.MaxPainStrike, 0.01, 2))
	fmt.Fprintf(w, "Expected move:   ±%.1f%% (%s at the %s straddle)\n",
		em.Percent, util.FormatDollars(em.Abs, 0.01, 2), util.FormatDollars(em.ATMStrike, 0.1, 1))
	fmt.Fprintf(w, "Expected range:  %s ~ %s\n",
		util.FormatDollars(em.LowerBound, 0.01, 2), util.FormatDollars(em.UpperBound, 0.01, 2))
	if em.Degraded() {
		warnColor.Fprintf(w, "Warning: expected move priced without the %s\n", missingLegs(em))
	}

	fmt.Fprintln(w)
	headerColor.Fprintln(w, "Sentiment")
	ratios := res.Ratios
	fmt.Fprintf(w, "Volume P/C ratio:         %.2f  ", ratios.Volume)
	biasColor(ratios.VolumeBias()).Fprintln(w, ratios.VolumeBias())
	fmt.Fprintf(w, "Open interest P/C ratio:  %.2f  ", ratios.OpenInterest)
	biasColor(ratios.OpenInterestBias()).Fprintln(w, ratios.OpenInterestBias())
	dimColor.Fprintln(w, pcrCaption)

	fmt.Fprintln(w)
	headerColor.Fprintln(w, "Open interest walls (top 5)")
	if err := renderWalls(w, "Resistance (calls)", res.TopCallsByOI); err != nil {
		return err
	}
	fmt.Fprintln(w)
	if err := renderWalls(w, "Support (puts)", res.TopPutsByOI); err != nil {
		return err
	}

	if dropped := r.Chain.DroppedRows + r.SkippedContracts; dropped > 0 {
		fmt.Fprintln(w)
		dimColor.Fprintf(w, "%d contracts without a usable strike or type were ignored\n", dropped)
	}
	return nil
}

func missingLegs(em analytics.ExpectedMove) string {
	switch {
	case em.CallLegMissing && em.PutLegMissing:
		return "call and put legs"
	case em.CallLegMissing:
		return "call leg"
	default:
		return "put leg"
	}
}

func renderWalls(w io.Writer, title string, rows []chain.ContractRow) error {
	fmt.Fprintln(w, title)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Strike\tOpen interest\tLast\t")
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n",
			util.FormatDollars(row.Strike, 0.1, 1),
			util.FormatCount(row.OpenInterest),
			util.FormatDollars(row.LastPrice, 0.01, 2))
	}
	if len(rows) == 0 {
		fmt.Fprintln(tw, "-\t-\t-\t")
	}
	return tw.Flush()
}

// renderScan prints one summary line per symbol.
func renderScan(w io.Writer, outcomes []scanner.Outcome) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tEXPIRATION\tSPOT\tMAX PAIN\tEM\tP/C VOL\tP/C OI\tID")
	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t-\t-\terror: %v\n", o.Symbol, o.Err)
			continue
		}
		r := o.Report
		res := r.Result
		em := fmt.Sprintf("±%.1f%%", res.ExpectedMove.Percent)
		if r.Degraded() {
			em += "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.2f\t%.2f\t%s\n",
			r.Symbol, r.Expiration,
			util.FormatDollars(r.SpotPrice, 0.01, 2),
			util.FormatDollars(res.MaxPainStrike, 0.1, 1),
			em, res.Ratios.Volume, res.Ratios.OpenInterest,
			shortID(r.ID))
	}
	return tw.Flush()
}

func renderExpirations(w io.Writer, symbol string, dates []string) {
	headerColor.Fprintf(w, "%s expirations\n", symbol)
	for _, d := range dates {
		fmt.Fprintln(w, d)
	}
}
