package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"
	"github.com/professorSergio12/Stock-Broker/holdings"
	"github.com/professorSergio12/Stock-Broker/records"
)

type holdingsCmd struct {
	client string
	end    string
	table  string
}

func (*holdingsCmd) Name() string     { return "holdings" }
func (*holdingsCmd) Synopsis() string { return "print a client's positions per security" }
func (*holdingsCmd) Usage() string {
	return `brokerctl holdings -client <id> [-end <YYYY-MM-DD>] [-table <name>]

  Replays every buy and sell of the client up to the end date and prints the
  resulting position, average prices and realized profit per security.
`
}

func (c *holdingsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.client, "client", "", "Numeric client id.")
	f.StringVar(&c.end, "end", "", "Only include trades on or before this date.")
	f.StringVar(&c.table, "table", "", "Record table. Defaults to RECORD_TABLE.")
}

func (c *holdingsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.client == "" {
		fmt.Fprintln(os.Stderr, "Error: -client is required.")
		return subcommands.ExitUsageError
	}
	res, err := holdingsFor(ctx, c.table, records.HoldingsQuery{ClientID: c.client, EndDate: c.end})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if len(res.Holdings) == 0 {
		fmt.Println("No holdings found.")
		return subcommands.ExitSuccess
	}
	if err := printHoldings(os.Stdout, res.Holdings); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func printHoldings(w io.Writer, hs []holdings.Holding) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Stock\tCode\tBuy Qty\tAvg Buy\tSell Qty\tAvg Sell\tHolding\tProfit\t")
	for _, h := range hs {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t\n",
			h.StockName, h.StockCode,
			h.TotalBuyQty, h.AvgBuyPrice,
			h.TotalSellQty, h.AvgSellPrice,
			h.CurrentHolding, h.Profit)
	}
	return tw.Flush()
}
