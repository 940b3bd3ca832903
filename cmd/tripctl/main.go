// Package main provides the tripctl CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/pkordes/trip-planner/backend/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
