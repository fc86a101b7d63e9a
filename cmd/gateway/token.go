package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cardano-ibc/gateway/config"
	"github.com/cardano-ibc/gateway/identifier"
)

// tokenPrefixes maps wire identifier prefixes to token name prefixes.
var tokenPrefixes = map[string]string{
	identifier.ClientIDPrefix:     identifier.ClientTokenPrefix,
	identifier.ConnectionIDPrefix: identifier.ConnectionTokenPrefix,
	identifier.ChannelIDPrefix:    identifier.ChannelTokenPrefix,
}

func tokenName(handlerToken, id string) ([]byte, error) {
	base, err := config.ParseToken(handlerToken)
	if err != nil {
		return nil, err
	}
	i := strings.LastIndexByte(id, '-')
	if i < 0 {
		return nil, fmt.Errorf("%q is not an identifier", id)
	}
	prefix, ok := tokenPrefixes[id[:i]]
	if !ok {
		return nil, fmt.Errorf("%q is not a client, connection or channel identifier", id)
	}
	seq, err := identifier.ParseID(id, id[:i])
	if err != nil {
		return nil, err
	}
	return identifier.DeriveTokenName(base, prefix, seq)
}

func tokenNameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "token-name <handler-token> <identifier>",
		Short: "print the hex token name minted for an identifier",
		Example: `  gateway token-name <policy>.<name> connection-7
  gateway token-name <policy>.<name> 07-tendermint-0`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := tokenName(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(name))
			return nil
		},
	}
}
