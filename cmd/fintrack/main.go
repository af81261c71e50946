// Command fintrack records expenses, income and budgets and serves them
// over a JSON API.
package main

import (
	"os"

	"fintrack/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
