package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/samijaber1/aegis-watch/internal/config"
	"github.com/samijaber1/aegis-watch/internal/notify"
)

func newTestAlertsCmd() *cobra.Command {
	var configPath string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "test-alerts",
		Short: "Send a test alert through every configured channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return runTestAlerts(ctx, cmd, cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "configuration file")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall timeout for channel tests")
	return cmd
}

func runTestAlerts(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	out := cmd.OutOrStdout()

	notifiers, _, err := notify.Build(cfg, zap.NewNop())
	if err != nil {
		return err
	}
	if len(notifiers) == 0 {
		fmt.Fprintln(out, dimText.Render("No alert channels enabled."))
		return errFailed
	}

	failed := 0
	for _, n := range notifiers {
		if err := n.Test(ctx); err != nil {
			failed++
			fmt.Fprintf(out, "%s %-10s %s\n", unhealthyText.Render("✗"), n.Name(), err)
			continue
		}
		fmt.Fprintf(out, "%s %-10s ok\n", healthyText.Render("✓"), n.Name())
	}

	if failed > 0 {
		fmt.Fprintf(out, "\n%d of %d channel(s) failed\n", failed, len(notifiers))
		return errFailed
	}
	return nil
}
