package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gauntlet-sim",
	Short: "Adversarial detection gauntlet",
	Long:  "Gauntlet-Sim pits a stealthy adversary against a sensor net over repeated rounds, hardening the detection rules after every bypass.",
}

// Execute dispatches to the selected subcommand.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd, replayCmd, dashboardCmd)
}
