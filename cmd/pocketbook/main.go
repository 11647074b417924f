// Command pocketbook manages one user's ledger, carts, receipts and
// checklist from the terminal, over the same stores the server uses.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	a := newApp(os.Stdout, os.Stderr)
	a.SetFlags(flag.CommandLine)
	a.Register(commander)

	flag.Parse()
	status := commander.Execute(context.Background())
	a.Close()
	os.Exit(int(status))
}
