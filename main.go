// Package main is the entry point for the yapb command line tool.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/yapb/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
