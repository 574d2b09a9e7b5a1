package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/thyroid-cli/internal/monitoring"
)

var monitorOnce bool

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch training run health and send webhook alerts",
	Long: `Periodically summarizes the run ledger and posts an alert to the
configured webhook when the failure rate or the latest test F1 crosses its
threshold. With --once, checks a single time and exits.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("monitor"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		mc := cfg.Monitoring
		checker := monitoring.NewChecker(monitoring.NewCollector(st), monitoring.NewAlerter(mc), mc)

		if monitorOnce {
			alerts := checker.Check(ctx)
			for _, a := range alerts {
				fmt.Fprintf(os.Stdout, "[%s] %s\n", a.Severity, a.Message)
			}
			if len(alerts) == 0 {
				fmt.Fprintln(os.Stderr, "No alerts.")
			}
			return nil
		}

		runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		checker.Run(runCtx)
		return nil
	},
}

func init() {
	monitorCmd.Flags().BoolVar(&monitorOnce, "once", false, "run a single check and exit")
	rootCmd.AddCommand(monitorCmd)
}
