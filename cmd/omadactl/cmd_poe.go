package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/soltegren/poedeck/internal/omada"
	"github.com/soltegren/poedeck/pkg/models"
)

func poeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "poe on|off|toggle <mac> <port>",
		Short: "Power a PoE port on or off",
		Long: "Change PoE on one port. Switch ports are updated with a complete profile\n" +
			"override so the port's other settings survive; gateway ports take a plain\n" +
			"boolean. Toggle reads the current state first, so it works on switches only.",
		Args: cobra.ExactArgs(3),
		RunE: runPoe,
	}
}

func runPoe(cmd *cobra.Command, args []string) error {
	verb := args[0]
	if verb != "on" && verb != "off" && verb != "toggle" {
		return fmt.Errorf("unknown poe state %q: want on, off, or toggle", verb)
	}
	mac, err := models.NormalizeMAC(args[1])
	if err != nil {
		return err
	}
	port, err := strconv.Atoi(args[2])
	if err != nil || port <= 0 {
		return fmt.Errorf("invalid port %q", args[2])
	}

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
	var device *models.Device
	for i := range devices {
		if devices[i].MAC == mac {
			device = &devices[i]
			break
		}
	}
	if device == nil {
		return fmt.Errorf("device %s not found on site %s", mac, flagSite)
	}

	if device.Kind == models.KindGateway {
		if verb == "toggle" {
			return fmt.Errorf("gateways expose no readable port state; use on or off")
		}
		enable := verb == "on"
		if err := client.SetGatewayPoe(ctx, mac, port, enable); err != nil {
			return err
		}
		fmt.Printf("%s port %d poe %s\n", mac, port, verb)
		return nil
	}

	ports, err := client.SwitchPorts(ctx, mac)
	if err != nil {
		return err
	}
	var target *omada.SwitchPort
	for i := range ports {
		if ports[i].Port == port {
			target = &ports[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("port %d not found on %s", port, mac)
	}

	enable := !target.Status.Poe
	switch verb {
	case "on":
		enable = true
	case "off":
		enable = false
	}

	var profile *omada.PortProfile
	if target.ProfileID != "" {
		if profile, err = client.PortProfile(ctx, target.ProfileID); err != nil {
			return err
		}
	}
	if err := client.UpdateSwitchPort(ctx, mac, port, omada.NewSwitchPortUpdate(*target, profile, enable)); err != nil {
		return err
	}

	fmt.Printf("%s port %d poe %s\n", mac, port, poeWord(enable))
	return nil
}
