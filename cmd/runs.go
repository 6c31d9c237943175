package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/uhi-cli/internal/model"
	"github.com/sells-group/uhi-cli/internal/report"
	"github.com/sells-group/uhi-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect stored analysis batches",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored batches",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		mode, _ := cmd.Flags().GetString("mode")
		year, _ := cmd.Flags().GetInt("year")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Mode:  model.Mode(mode),
			Year:  year,
			Limit: limit,
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
	Short: "Show the summary table of a stored batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		results, err := st.CityResults(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		failures, err := st.Failures(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		formatRunDetail(os.Stdout, run, results, failures)
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("mode", "", "filter by mode (correlation, discrepancy)")
	runsListCmd.Flags().Int("year", 0, "filter by season year")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []store.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tMODE\tYEAR\tANALYZED\tSKIPPED\tSTARTED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t----\t----\t--------\t-------\t-------\t--------")

	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			truncateID(r.ID),
			r.Mode,
			r.Year,
			r.Analyzed,
			r.Skipped,
			r.StartedAt.Format("2006-01-02 15:04"),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String(),
		)
	}
	_ = w.Flush()
}

// formatRunDetail writes the stored summary table of one run, then its
// skipped cities.
func formatRunDetail(out io.Writer, run *store.Run, results []*model.CityStatistics, failures []store.Failure) {
	_, _ = fmt.Fprintf(out, "Run %s: %s %d, %d analyzed, %d skipped\n\n", run.ID, run.Mode, run.Year, run.Analyzed, run.Skipped)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	cols := report.Columns(run.Mode)
	for i, c := range cols {
		sep := "\t"
		if i == len(cols)-1 {
			sep = "\n"
		}
		_, _ = fmt.Fprint(w, c, sep)
	}
	for _, cs := range results {
		row := report.Row(run.Mode, cs)
		for i, v := range row {
			if v == "" {
				v = "-"
			}
			sep := "\t"
			if i == len(row)-1 {
				sep = "\n"
			}
			_, _ = fmt.Fprint(w, v, sep)
		}
	}
	_ = w.Flush()

	if len(failures) > 0 {
		_, _ = fmt.Fprintln(out, "\nSkipped:")
		for _, f := range failures {
			_, _ = fmt.Fprintf(out, "  %s (%s): %s\n", f.City, f.Kind, f.Message)
		}
	}
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
