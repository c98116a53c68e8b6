package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soltegren/poedeck/pkg/models"
)

func watchCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch <mac>",
		Short: "Watch a switch's PoE states until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mac, err := models.NormalizeMAC(args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, err := connect(ctx)
			if err != nil {
				return err
			}
			defer client.Logout(context.Background())

			// First pass prints every port; later passes only changes.
			last := make(map[int]bool)
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				ports, err := client.SwitchPorts(ctx, mac)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					fmt.Fprintf(os.Stderr, "poll failed: %v\n", err)
				}
				for _, p := range ports {
					if prev, seen := last[p.Port]; seen && prev == p.Status.Poe {
						continue
					}
					fmt.Printf("%s  port %2d  poe %s\n",
						time.Now().Format("15:04:05"), p.Port, poeWord(p.Status.Poe))
					last[p.Port] = p.Status.Poe
				}

				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 3*time.Second, "poll interval")
	return cmd
}
