package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cardano-ibc/gateway/config"
)

const flagConfig = "config"

func RootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "IBC gateway for a UTXO ledger",
		Long: `Serves IBC queries over the state the ledger holds and builds the
unsigned transactions that drive the on-chain IBC contracts.

Commands:
	- serve runs the gRPC services and their JSON gateway.
	- config init writes a default configuration file.
	- token-name derives the token name of a client, connection or channel.
	- tree-dot renders the IBC state tree as a graphviz digraph.
	`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().String(flagConfig, "", "path to "+config.DefaultFileName+" (defaults and GATEWAY_* env when empty)")
	cmd.AddCommand(
		serveCommand(),
		configCommand(),
		tokenNameCommand(),
		treeDotCommand(),
	)
	return cmd
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return config.Config{}, err
	}
	return config.Load(viper.New(), path)
}
