package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/selendra/dex-sub001/config"
)

func getAccruedCmd() *cobra.Command {
	accruedCmd := &cobra.Command{
		Use:   "accrued [config-file] [token-address...]",
		Args:  cobra.MinimumNArgs(2),
		Short: "Prints the protocol fees accrued in each token and the current fee controller",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := getLogger(cmd)
			if err != nil {
				return err
			}

			cfg, err := config.ParseConfig(args[0])
			if err != nil {
				return err
			}

			tokens := make([]common.Address, 0, len(args)-1)
			for _, arg := range args[1:] {
				if !common.IsHexAddress(arg) {
					return fmt.Errorf("invalid token address: %s", arg)
				}
				tokens = append(tokens, common.HexToAddress(arg))
			}

			ctx, cancel := context.WithCancel(cmd.Context())

			// listen for and trap any OS signal to gracefully shutdown and exit
			trapSignal(cancel, logger)

			o, closeStore, err := newOracle(ctx, logger, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			controller, err := o.FeeController(ctx)
			if err != nil {
				return err
			}
			accrued, err := o.AllAccrued(ctx, tokens)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Controller interface{} `json:"controller"`
				Accrued    interface{} `json:"accrued"`
			}{controller, accrued})
		},
	}

	return accruedCmd
}
