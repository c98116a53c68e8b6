package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/soltegren/poedeck/internal/omada"
	"github.com/soltegren/poedeck/pkg/models"
)

func renderDevices(out io.Writer, devices []models.Device) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MAC\tKIND\tNAME\tMODEL")
	for _, d := range devices {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.MAC, d.Kind, d.Name, d.Model)
	}
	return w.Flush()
}

func renderPorts(out io.Writer, ports []omada.SwitchPort) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PORT\tNAME\tPROFILE\tPOE")
	for _, p := range ports {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.Port, p.Name, p.ProfileID, poeWord(p.Status.Poe))
	}
	return w.Flush()
}

func poeWord(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}
