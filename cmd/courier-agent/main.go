// README: Entry point; cobra root for the driver agent binary.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
	appName = "courier-agent"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Headless driver agent for the dispatch service",
		Long: `courier-agent keeps the driver's normalized cache in sync with the
dispatch service, drives order and route transitions and forwards
location fixes while the selected driver is on call.

Configuration comes from COURIER_* environment variables and an optional
YAML file named by COURIER_CONFIG.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(serveCmd(), loginCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, Version)
		},
	})
	return cmd
}
