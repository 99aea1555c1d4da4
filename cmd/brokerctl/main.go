// Command brokerctl runs brokerage imports and holdings reports against the
// configured record store without going through the HTTP server.
//
// Usage:
//
//	brokerctl import -f trades.xlsx [-table Transaction]
//	brokerctl holdings -client 123 [-end 2024-03-31]
//	brokerctl export-holdings -client 123 [-end 2024-03-31] -o holdings.xlsx
//
// Connection settings come from the same environment (.env) as the server.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&importCmd{}, "ingest")
	commander.Register(&holdingsCmd{}, "reports")
	commander.Register(&exportHoldingsCmd{}, "reports")

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	status := commander.Execute(ctx)
	stop()
	os.Exit(int(status))
}
