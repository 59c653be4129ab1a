package diagnose

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// Render writes the report as plain text tables.
func (r *Report) Render(w io.Writer) {
	fmt.Fprintf(w, "Polyarb Diagnostics - Market Efficiency Analysis\n\n")
	fmt.Fprintf(w, "Fetched %d active markets\n\n", r.TotalMarkets)

	fmt.Fprintf(w, "Binary Markets (%d total) - closest to arbitrage first\n", r.BinaryMarkets)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ASK SUM\tBID SUM\tSPREAD\tNET\tMARKET")
	for _, row := range r.Binary {
		fmt.Fprintf(tw, "$%.4f\t$%.4f\t$%.4f\t$%.4f\t%s%s\n",
			row.AskSum, row.BidSum, row.Spread(), row.Net, arbMark(row.Net), row.Question)
	}
	tw.Flush()

	fmt.Fprintf(w, "\nNegRisk Groups (%d markets) - cross-bucket ask sums\n", r.NegRiskTotal)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BUCKETS\tTOTAL ASK\tNET\tGROUP")
	for _, row := range r.Groups {
		fmt.Fprintf(tw, "%d\t$%.4f\t$%.4f\t%s%s\n",
			row.Buckets, row.AskSum, row.Net, arbMark(row.Net), row.Label)
	}
	tw.Flush()

	fmt.Fprintf(w, "\nSummary\n")
	fmt.Fprintf(w, "  Binary arbitrage opportunities:  %d\n", r.BinaryArbs())
	fmt.Fprintf(w, "  NegRisk arbitrage opportunities: %d\n", r.NegRiskArbs())
	if len(r.Binary) > 0 {
		fmt.Fprintf(w, "  Closest binary to arb:  ask sum $%.4f (need < $1.00)\n", r.Binary[0].AskSum)
	}
	if len(r.Groups) > 0 {
		fmt.Fprintf(w, "  Closest NegRisk to arb: ask sum $%.4f (need < $1.00)\n", r.Groups[0].AskSum)
	}
	if r.BinaryArbs() == 0 && r.NegRiskArbs() == 0 {
		fmt.Fprintf(w, "\n  Market is efficiently priced; no arbitrage detected.\n")
		fmt.Fprintf(w, "  Run the scan loop with paper trading to catch fleeting opportunities.\n")
	}
}

func arbMark(net float64) string {
	if net > 0 {
		return "** ARB ** "
	}
	return ""
}
