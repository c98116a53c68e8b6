package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func devicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "devices",
		Aliases: []string{"ls", "list"},
		Short:   "List controller-managed devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := connect(ctx)
			if err != nil {
				return err
			}
			defer client.Logout(context.Background())

			devices, err := client.ListDevices(ctx)
			if err != nil {
				return err
			}

			if flagOutput == "yaml" {
				return yaml.NewEncoder(os.Stdout).Encode(devices)
			}
			return renderDevices(os.Stdout, devices)
		},
	}
}
