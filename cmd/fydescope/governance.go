package main

import (
	"os"

	"github.com/spf13/cobra"

	"fydeScope/internal/governance"
	"fydeScope/internal/indexer"
	"fydeScope/internal/model"
	"fydeScope/internal/storage"
	"fydeScope/internal/vault"
)

func newRebalanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rebalance",
		Short: "List governance proxies to rebalance for an asset, most negative imbalance first",
		RunE:  runRebalance,
	}
	cmd.Flags().String("asset", "", "asset address")
	_ = cmd.MarkFlagRequired("asset")
	return cmd
}

func runRebalance(cmd *cobra.Command, _ []string) error {
	a, ctx, closeApp, err := setup(cmd)
	if err != nil {
		return err
	}
	defer closeApp()

	raw, _ := cmd.Flags().GetString("asset")
	asset, err := indexer.ParseAddress(raw)
	if err != nil {
		return err
	}
	rebalancer, err := governance.NewRebalancer(a.reader, a.cfg.Network.GovernanceModule, a.logger)
	if err != nil {
		return err
	}
	proxies, err := rebalancer.ProxiesToRebalance(ctx, asset)
	if err != nil {
		return err
	}
	out := make([]string, len(proxies))
	for i, p := range proxies {
		out[i] = p.Hex()
	}
	return storage.WriteLine(os.Stdout, out)
}

func newGovernanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "governance",
		Short: "Show a user's governance position per asset",
		RunE:  runGovernance,
	}
	cmd.Flags().String("user", "", "user address")
	cmd.Flags().StringSlice("asset", nil, "assets to read (default: every vault asset)")
	cmd.Flags().Bool("tolerant", false, "report failed reads per field instead of failing")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func runGovernance(cmd *cobra.Command, _ []string) error {
	a, ctx, closeApp, err := setup(cmd)
	if err != nil {
		return err
	}
	defer closeApp()

	rawUser, _ := cmd.Flags().GetString("user")
	user, err := indexer.ParseAddress(rawUser)
	if err != nil {
		return err
	}
	rawAssets, _ := cmd.Flags().GetStringSlice("asset")
	assets, err := indexer.ParseAddresses(rawAssets)
	if err != nil {
		return err
	}
	if len(assets) == 0 {
		v, err := vault.New(a.reader, a.fetcher, vault.Config{LiquidVault: a.cfg.Network.LiquidVault, Logger: a.logger})
		if err != nil {
			return err
		}
		if assets, err = v.AssetsList(ctx); err != nil {
			return err
		}
	}

	rebalancer, err := governance.NewRebalancer(a.reader, a.cfg.Network.GovernanceModule, a.logger)
	if err != nil {
		return err
	}
	tolerant, _ := cmd.Flags().GetBool("tolerant")
	var data model.GovernanceData
	if tolerant {
		data, err = rebalancer.UserGovernanceDataTolerant(ctx, user, assets)
	} else {
		data, err = rebalancer.UserGovernanceData(ctx, user, assets)
	}
	if err != nil {
		return err
	}

	proxy, ok, err := rebalancer.ProxyOf(ctx, user)
	if err != nil {
		return err
	}
	if ok {
		data.Proxy = proxy.Hex()
	}
	return storage.WriteLine(os.Stdout, data)
}

