package main

import (
	"github.com/spf13/cobra"
)

// configFile is bound by --config and read by both serve and seed.
var configFile string

var rootCmd = &cobra.Command{
	Use:   "hyprcatd",
	Short: "hyprcatd runs the HyprCAT hypermedia data marketplace gateway",
	Long: `hyprcatd serves the HyprCAT protocol's HTTP surface: catalog
browsing, agent identity and session issuance, wallet and payment
governance, federated querying, and provenance export, over a
configurable resource store.`,
	// Running hyprcatd with no subcommand serves, same as "hyprcatd serve".
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file overlaying HYPRCAT_* environment defaults")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
}
