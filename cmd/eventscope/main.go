// Package main is the eventscope command line entry point.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/eventscope/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "eventscope: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
