// Command goodthings is a terminal client for the GoodThings blog backend.
package main

import (
	"fmt"
	"os"
)

const (
	Version = "0.1.0"
	appName = "goodthings"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
