package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Probe the configured server endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		return connectRun()
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
}

func connectRun() error {
	ctx := context.Background()
	s, err := getStore()
	if err != nil {
		return err
	}
	client, err := getClient(ctx, s)
	if err != nil {
		return err
	}

	if err := client.Connect(ctx); err != nil {
		return err
	}
	ui.Success("Connected to %s", client.Base())
	return nil
}
