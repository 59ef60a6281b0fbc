package cmd

import (
	"fmt"

	"github.com/mezonai/mnlight/config"
	"github.com/mezonai/mnlight/logx"
	"github.com/spf13/cobra"
)

var paramsNetwork string

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Print network parameters as YAML",
	Long: `Print the parameters of a built-in network or of a YAML parameters file.

Examples:
  mnlight params --network mainnet
  mnlight params --network ./devnet.yml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := config.ResolveNetwork(paramsNetwork)
		if err != nil {
			logx.Error("PARAMS CLI", "Failed to resolve network:", err)
			return err
		}
		out, err := params.YAML()
		if err != nil {
			return fmt.Errorf("failed to encode params: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(paramsCmd)
	paramsCmd.Flags().StringVar(&paramsNetwork, "network", "mainnet", "Network name (mainnet, testnet, regtest) or path to a YAML parameters file")
}
