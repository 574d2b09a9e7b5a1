package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/thyroid-cli/internal/model"
	"github.com/sells-group/thyroid-cli/internal/monitoring"
	"github.com/sells-group/thyroid-cli/internal/pipeline"
	"github.com/sells-group/thyroid-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect training run history",
	Long:  "Commands for listing and viewing training runs recorded in the run ledger.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List training runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status: model.RunStatus(status),
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			stages, err := st.ListStages(ctx, run.ID)
			if err != nil {
				return eris.Wrap(err, "runs show: stages")
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				*model.Run
				Ledger []model.RunStage `json:"ledger"`
			}{run, stages})
		}

		fmt.Fprint(os.Stdout, pipeline.FormatRunSummary(*run))
		return nil
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize recent training runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		hours, _ := cmd.Flags().GetInt("hours")
		snap, err := monitoring.NewCollector(st).Collect(ctx, hours)
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatRunStats(os.Stdout, snap)
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (queued, ingesting, training, complete, failed, ...)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")
	runsListCmd.Flags().Int("offset", 0, "number of runs to skip")

	runsShowCmd.Flags().Bool("json", false, "print the run and its stage ledger as JSON")

	runsCmd.AddCommand(runsListCmd)
	runsStatsCmd.Flags().Int("hours", 168, "lookback window in hours (0 for all runs)")

	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tARTIFACTS\tSTATUS\tVERSION\tTEST_F1\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t---------\t------\t-------\t-------\t-------\t--------")

	for _, r := range runs {
		dur := r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String()

		version, f1 := "-", "-"
		if r.Result != nil && r.Result.Error == "" {
			f1 = fmt.Sprintf("%.4f", r.Result.TestF1)
			if r.Result.ModelPath != "" {
				version = fmt.Sprintf("%d", r.Result.Version)
			}
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			filepath.Base(r.ArtifactDir),
			r.Status,
			version,
			f1,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// formatRunStats writes a run health summary to w.
func formatRunStats(out io.Writer, snap *monitoring.MetricsSnapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	window := "all time"
	if snap.LookbackHours > 0 {
		window = fmt.Sprintf("last %dh", snap.LookbackHours)
	}
	_, _ = fmt.Fprintf(w, "Window:\t%s\n", window)
	_, _ = fmt.Fprintf(w, "Runs:\t%d\n", snap.RunsTotal)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", snap.RunsComplete)
	_, _ = fmt.Fprintf(w, "Failed:\t%d (%d at a quality gate)\n", snap.RunsFailed, snap.GateFailures)
	_, _ = fmt.Fprintf(w, "In progress:\t%d\n", snap.RunsInProgress)
	_, _ = fmt.Fprintf(w, "Failure rate:\t%.1f%%\n", snap.FailRate*100)
	if snap.RunsComplete > 0 {
		_, _ = fmt.Fprintf(w, "Avg test F1:\t%.4f\n", snap.AvgTestF1)
		_, _ = fmt.Fprintf(w, "Latest:\tversion %d, test F1 %.4f (%s)\n",
			snap.LatestVersion, snap.LatestTestF1, truncateID(snap.LatestRunID))
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
