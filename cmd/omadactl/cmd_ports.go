package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/soltegren/poedeck/pkg/models"
)

func portsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports <mac>",
		Short: "List a switch's ports and their PoE state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mac, err := models.NormalizeMAC(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client, err := connect(ctx)
			if err != nil {
				return err
			}
			defer client.Logout(context.Background())

			ports, err := client.SwitchPorts(ctx, mac)
			if err != nil {
				return err
			}

			if flagOutput == "yaml" {
				return yaml.NewEncoder(os.Stdout).Encode(ports)
			}
			return renderPorts(os.Stdout, ports)
		},
	}
}
