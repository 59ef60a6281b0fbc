package cmd

import (
	"os"

	"github.com/mezonai/mnlight/logx"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mnlight",
	Short: "Header-chain light client with a committed masternode list",
	Long:  "Command line interface for importing headers, following the masternode list and inspecting its snapshots.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logx.Error("CMD", "Command execution failed:", err)
		os.Exit(1)
	}
}
