package main

import (
	"github.com/spf13/cobra"

	"github.com/ori-shem-tov/solana-vrf-oracle/cmd/daemon"
)

func init() {
	rootCmd.AddCommand(daemon.RunDaemonCmd)
	rootCmd.AddCommand(daemon.RunFromConfig)
}

var rootCmd = &cobra.Command{
	Use:   "vrf-oracle",
	Short: "service that reads VRF requests from the Solana coordinator program, and submits back the proofs",
	Run: func(cmd *cobra.Command, args []string) {
		//If no arguments passed, we should fallback to help
		cmd.HelpFunc()(cmd, args)
	},
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		panic(err)
	}
}
