package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/selendra/dex-sub001/config"
	"github.com/selendra/dex-sub001/monitor"
)

const flagNotify = "notify"

func getVerifyCmd() *cobra.Command {
	verifyCmd := &cobra.Command{
		Use:   "verify [config-file]",
		Args:  cobra.ExactArgs(1),
		Short: "Compares external prices with pool prices for the configured monitor pairs",
		Long: `Runs a single monitor check against the configured feed store and chain.
Only meaningful with a shared (redis) feed store, since a fresh memory store
holds no external prices.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := getLogger(cmd)
			if err != nil {
				return err
			}

			notify, err := cmd.Flags().GetBool(flagNotify)
			if err != nil {
				return err
			}

			cfg, err := config.ParseConfig(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			trapSignal(cancel, logger)

			o, closeStore, err := newOracle(ctx, logger, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			mon, err := newMonitor(logger, cfg, o)
			if err != nil {
				return err
			}

			priceErrors := mon.RunOnce(ctx)
			failed := 0
			for _, pe := range priceErrors {
				fmt.Println(pe.Message)
				if pe.ErrorType.IsCritical() {
					failed++
				}
			}

			if notify {
				slackClient := monitor.NewSlackClient(logger, cfg.Monitor.SlackToken, cfg.Monitor.SlackChannel)
				if err := slackClient.Notify(ctx, priceErrors); err != nil {
					return err
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d pairs failed verification", failed, len(priceErrors))
			}
			return nil
		},
	}

	verifyCmd.Flags().Bool(flagNotify, false, "send the results to the configured slack channel")

	return verifyCmd
}
