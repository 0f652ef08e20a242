// Package main is the entry point for the Argus detection engine.
package main

import (
	"fmt"
	"os"

	"argus/cmd"
)

func main() {
	rootCmd := cmd.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
