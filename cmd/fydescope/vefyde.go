package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fydeScope/internal/indexer"
	"fydeScope/internal/storage"
	"fydeScope/internal/vefyde"
)

func newVeFydeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vefyde",
		Short: "Show a user's vote escrow position",
		RunE:  runVeFydeUser,
	}
	cmd.Flags().String("user", "", "user address")
	cmd.Flags().Bool("chart", false, "include the sampled decay curve")
	_ = cmd.MarkFlagRequired("user")

	holders := &cobra.Command{
		Use:   "holders",
		Short: "List every address that has locked FYDE",
		RunE:  runVeFydeHolders,
	}
	holders.Flags().Uint64("from", 0, "start block (default: vote escrow deployment)")
	cmd.AddCommand(holders)
	return cmd
}

func newVeFydeService(a *app) (*vefyde.Service, error) {
	return vefyde.NewService(a.reader, a.fetcher, a.cfg.Network.VoteEscrow, a.logger)
}

func runVeFydeUser(cmd *cobra.Command, _ []string) error {
	a, ctx, closeApp, err := setup(cmd)
	if err != nil {
		return err
	}
	defer closeApp()

	raw, _ := cmd.Flags().GetString("user")
	user, err := indexer.ParseAddress(raw)
	if err != nil {
		return err
	}
	chart, _ := cmd.Flags().GetBool("chart")
	svc, err := newVeFydeService(a)
	if err != nil {
		return err
	}
	data, err := svc.UserData(ctx, user, chart)
	if err != nil {
		return err
	}
	return storage.WriteLine(os.Stdout, data)
}

func runVeFydeHolders(cmd *cobra.Command, _ []string) error {
	a, ctx, closeApp, err := setup(cmd)
	if err != nil {
		return err
	}
	defer closeApp()

	from := a.cfg.Network.HoldersStartBlock
	if cmd.Flags().Changed("from") {
		from = a.cfg.FromBlock
	}
	svc, err := newVeFydeService(a)
	if err != nil {
		return err
	}
	holders, err := svc.Holders(ctx, from)
	if err != nil {
		return err
	}
	a.logger.Info("vefyde holders", zap.Int("holders", len(holders)), zap.Uint64("from", from))
	for _, h := range holders {
		if err := storage.WriteLine(os.Stdout, h.Hex()); err != nil {
			return err
		}
	}
	return nil
}
