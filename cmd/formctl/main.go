// Command formctl is the operator CLI for the DS-160 form service: issuing
// client tokens, listing clients and checking the database without the
// dashboard.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	app := &app{}

	root := &cobra.Command{
		Use:           "formctl",
		Short:         "Operate the DS-160 form service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(*cobra.Command, []string) {
			app.close()
		},
	}
	root.PersistentFlags().StringVarP(&app.output, "output", "o", "table", "Output format (table, json, yaml)")
	root.PersistentFlags().StringVar(&app.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(
		app.pingCmd(),
		app.tokenCmd(),
		app.clientsCmd(),
		hashPasswordCmd(),
	)
	return root
}
