// Package main provides the entry point for the reeves CLI.
package main

import (
	"os"

	"github.com/reeves-dev/reeves/cmd/reeves/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
