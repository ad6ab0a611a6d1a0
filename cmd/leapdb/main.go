// Package main provides the CLI for the LeapDB flat-file table store.
package main

import (
	"os"

	"github.com/leapstack-labs/leapdb/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
