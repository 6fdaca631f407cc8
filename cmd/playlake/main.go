// Package main provides the playlake command-line entry point.
package main

import (
	"os"

	"github.com/leapstack-labs/playlake/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
