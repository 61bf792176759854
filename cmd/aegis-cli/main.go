package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// errFailed signals a non-zero exit after the command already reported why
var errFailed = errors.New("command failed")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "aegis",
		Short: "Operator CLI for the aegis-watch endpoint monitor",
		Long: `aegis validates monitor configuration, exercises alert channels and
shows live endpoint health from a running aegis-watch dashboard.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newValidateCmd(), newTestAlertsCmd(), newStatusCmd())
	return root
}
