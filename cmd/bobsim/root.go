package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bobsim",
	Short: "bobsim simulates a buffer-on-board DRAM memory system.",
	Long: `bobsim simulates a buffer-on-board DRAM memory system cycle by ` +
		`cycle. It can drive the system with random traffic, record the ` +
		`statistics of every epoch and serve a monitor over HTTP.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
