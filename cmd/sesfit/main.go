// Command sesfit is the survey analysis CLI.
package main

import (
	"os"

	"github.com/gyeh/sesfit/internal/exitcode"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitcode.UsageError)
	}
}
