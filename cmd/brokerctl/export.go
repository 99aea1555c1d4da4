package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/professorSergio12/Stock-Broker/holdings"
	"github.com/professorSergio12/Stock-Broker/records"
	"github.com/xuri/excelize/v2"
)

const holdingsSheet = "Holdings"

var holdingsHeader = []interface{}{
	"Stock Name", "Stock Code",
	"Buy Qty", "Buy Amount", "Avg Buy Price", "Buy Count",
	"Sell Qty", "Sell Amount", "Avg Sell Price", "Sell Count",
	"Current Holding", "Profit",
}

type exportHoldingsCmd struct {
	client string
	end    string
	table  string
	out    string
}

func (*exportHoldingsCmd) Name() string     { return "export-holdings" }
func (*exportHoldingsCmd) Synopsis() string { return "write a client's holdings to an Excel workbook" }
func (*exportHoldingsCmd) Usage() string {
	return `brokerctl export-holdings -client <id> [-end <YYYY-MM-DD>] [-table <name>] -o <out.xlsx>

  Same positions as "holdings", written to a single-sheet workbook.
`
}

func (c *exportHoldingsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.client, "client", "", "Numeric client id.")
	f.StringVar(&c.end, "end", "", "Only include trades on or before this date.")
	f.StringVar(&c.table, "table", "", "Record table. Defaults to RECORD_TABLE.")
	f.StringVar(&c.out, "o", "holdings.xlsx", "Output workbook.")
}

func (c *exportHoldingsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.client == "" {
		fmt.Fprintln(os.Stderr, "Error: -client is required.")
		return subcommands.ExitUsageError
	}
	res, err := holdingsFor(ctx, c.table, records.HoldingsQuery{ClientID: c.client, EndDate: c.end})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	f, err := holdingsWorkbook(res.Holdings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building workbook: %v\n", err)
		return subcommands.ExitFailure
	}
	defer f.Close()
	if err := f.SaveAs(c.out); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", c.out, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Wrote %d holdings to %s\n", len(res.Holdings), c.out)
	return subcommands.ExitSuccess
}

// holdingsWorkbook lays out one row per holding under a header row.
func holdingsWorkbook(hs []holdings.Holding) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", holdingsSheet); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetSheetRow(holdingsSheet, "A1", &holdingsHeader); err != nil {
		f.Close()
		return nil, err
	}
	for i, h := range hs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		row := []interface{}{
			h.StockName, h.StockCode,
			h.TotalBuyQty, h.TotalBuyAmount, h.AvgBuyPrice, h.BuyCount,
			h.TotalSellQty, h.TotalSellAmount, h.AvgSellPrice, h.SellCount,
			h.CurrentHolding, h.Profit,
		}
		if err := f.SetSheetRow(holdingsSheet, cell, &row); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}
