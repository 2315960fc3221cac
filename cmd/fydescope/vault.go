package main

import (
	"os"

	"github.com/spf13/cobra"

	"fydeScope/internal/indexer"
	"fydeScope/internal/storage"
	"fydeScope/internal/vault"
)

func newVaultCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Read liquid vault state",
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "TVL, TRSY supply, staked TRSY and TRSY value",
		RunE: withVault(func(cmd *cobra.Command, a *app, v *vault.Vault) (interface{}, error) {
			return v.Stats(cmd.Context())
		}),
	}

	assets := &cobra.Command{
		Use:   "assets",
		Short: "Registered vault assets",
		RunE: withVault(func(cmd *cobra.Command, a *app, v *vault.Vault) (interface{}, error) {
			list, err := v.AssetsList(cmd.Context())
			if err != nil {
				return nil, err
			}
			out := make([]string, len(list))
			for i, asset := range list {
				out[i] = asset.Hex()
			}
			return out, nil
		}),
	}

	fees := &cobra.Command{
		Use:   "fees",
		Short: "Total, management and tax fees and TRSY burned by swaps",
		RunE: withVault(func(cmd *cobra.Command, a *app, v *vault.Vault) (interface{}, error) {
			return v.Fees(cmd.Context(), a.cfg.FromBlock)
		}),
	}
	fees.Flags().Uint64("from", 0, "start block")

	accounting := &cobra.Command{
		Use:   "accounting",
		Short: "Per-asset bookkeeping across the standard and governance pools",
		RunE: withVault(func(cmd *cobra.Command, a *app, v *vault.Vault) (interface{}, error) {
			raw, _ := cmd.Flags().GetStringSlice("asset")
			list, err := indexer.ParseAddresses(raw)
			if err != nil {
				return nil, err
			}
			if len(list) == 0 {
				if list, err = v.AssetsList(cmd.Context()); err != nil {
					return nil, err
				}
			}
			return v.AssetAccounting(cmd.Context(), list)
		}),
	}
	accounting.Flags().StringSlice("asset", nil, "assets to read (default: every vault asset)")

	cmd.AddCommand(stats, assets, fees, accounting)
	return cmd
}

// withVault runs fn with a connected vault reader and prints its result as JSON.
func withVault(fn func(cmd *cobra.Command, a *app, v *vault.Vault) (interface{}, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		a, ctx, closeApp, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closeApp()
		cmd.SetContext(ctx)

		v, err := vault.New(a.reader, a.fetcher, vault.Config{
			LiquidVault: a.cfg.Network.LiquidVault,
			StakingTRSY: a.cfg.Network.StakingTRSY,
			Logger:      a.logger,
		})
		if err != nil {
			return err
		}
		out, err := fn(cmd, a, v)
		if err != nil {
			return err
		}
		return storage.WriteLine(os.Stdout, out)
	}
}
