// Package main is the entry point for the clinicchat CLI.
package main

import (
	"fmt"
	"os"

	"github.com/nhle/clinic-chat/internal/cli"
)

// Version information (set at build time)
var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
