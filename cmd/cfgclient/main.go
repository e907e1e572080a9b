package main

import (
	"fmt"
	"os"

	"github.com/yndnr/cfgclient-go/internal/cli/command"
)

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	return command.App().Run(args)
}
