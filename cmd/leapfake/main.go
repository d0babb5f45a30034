// Package main is the leapfake command.
package main

import (
	"os"

	"github.com/leapstack-labs/leapfake/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
