package main

import (
	"os"

	"cosmossdk.io/log"
	"github.com/spf13/cobra"

	"github.com/cardano-ibc/gateway/merkle"
	"github.com/cardano-ibc/gateway/metrics"
)

func treeDotCommand() *cobra.Command {
	var summary bool
	cmd := &cobra.Command{
		Use:   "tree-dot",
		Short: "print the IBC state tree aligned with the committed root as a graphviz digraph",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := log.NewNopLogger()
			if summary {
				if logger, err = cfg.Log.Logger(os.Stderr); err != nil {
					return err
				}
			}

			m := metrics.NewStructMetrics()
			index, reader, err := openState(ctx, cfg, logger, m)
			if err != nil {
				return err
			}
			defer index.Close()

			tree, err := merkle.NewStore(reader, logger, merkle.WithMetrics(m)).EnsureAligned(ctx)
			if err != nil {
				return err
			}
			if err := merkle.WriteDot(cmd.OutOrStdout(), tree, nil); err != nil {
				return err
			}
			if summary {
				m.Report(cmd.ErrOrStderr())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&summary, "summary", false, "log progress and print rebuild metrics to stderr")
	return cmd
}
