// Package main is the entry point for the taller CLI.
package main

import (
	"os"

	"github.com/runger/taller/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
