// Command omadactl inspects and controls PoE ports on an Omada-style
// controller from the command line, using the same client the deck
// module uses. Handy for checking what a button will do before binding
// it, and for scripting power cycles.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/soltegren/poedeck/internal/omada"
	"github.com/soltegren/poedeck/internal/version"
)

var (
	flagHost     string
	flagPort     int
	flagUsername string
	flagPassword string
	flagSite     string
	flagInsecure bool
	flagOutput   string
	flagVerbose  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "omadactl",
		Short: "PoE port control against an Omada-style controller",
		Long:  "Inspect controller-managed devices and power PoE ports on and off without a button-deck host.",
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagHost, "host", "", "controller host (required)")
	pf.IntVar(&flagPort, "port", 443, "controller HTTPS port")
	pf.StringVarP(&flagUsername, "username", "u", "", "controller username (required)")
	pf.StringVarP(&flagPassword, "password", "p", "", "controller password (required)")
	pf.StringVar(&flagSite, "site", "Default", "controller site name")
	pf.BoolVarP(&flagInsecure, "insecure", "k", false, "skip TLS certificate verification")
	pf.StringVarP(&flagOutput, "output", "o", "table", "output format: table or yaml")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "log controller traffic")

	rootCmd.AddCommand(
		devicesCmd(),
		portsCmd(),
		poeCmd(),
		watchCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// connect validates the connection flags and establishes a session.
// The caller owns the logout.
func connect(ctx context.Context) (*omada.Client, error) {
	if flagHost == "" || flagUsername == "" || flagPassword == "" {
		return nil, fmt.Errorf("--host, --username, and --password are required")
	}

	logger := zap.NewNop()
	if flagVerbose {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, err
		}
	}

	client := omada.NewClient(omada.Settings{
		Host:      flagHost,
		Port:      flagPort,
		Username:  flagUsername,
		Password:  flagPassword,
		Site:      flagSite,
		VerifyTLS: !flagInsecure,
	}, logger)
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.Info())
		},
	}
}
