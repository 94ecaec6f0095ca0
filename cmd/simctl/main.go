// simctl drives the scenario tree engine without the HTTP surface. It is
// the tool for checking physics tuning changes before they reach a server.
package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	good   = color.New(color.FgGreen)
	bad    = color.New(color.FgRed)
	subtle = color.New(color.FgHiBlack)
	accent = color.New(color.FgCyan, color.Bold)
)

var rootCmd = &cobra.Command{
	Use:           "simctl",
	Short:         "Headless driver for the scenario tree engine",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(
		runCmd(),
		tuningCmd(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		bad.Fprintf(os.Stderr, "simctl: %v\n", err)
		os.Exit(1)
	}
}
