// Package main is the entry point for the ledgerctl maintenance CLI.
package main

import (
	"os"

	"github.com/warp/household-ledger/cmd/ledgerctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
