package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/geowerk/postal-cli/internal/model"
	"github.com/geowerk/postal-cli/internal/store"
)

var statusCountry string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline stage completion and geocode run history",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		country, err := model.ParseCountry(statusCountry)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "STAGE\tSTATUS")
		for _, stage := range model.Stages() {
			done, err := st.HasStage(ctx, country, stage)
			if err != nil {
				return err
			}
			status := "pending"
			if done {
				status = "done"
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\n", stage, status)
		}
		_ = w.Flush()

		runs, err := st.ListRuns(ctx, country)
		if err != nil {
			return err
		}
		if len(runs) > 0 {
			fmt.Println()
			formatRuns(os.Stdout, runs)
		}
		return nil
	},
}

// formatRuns writes a tabular geocode run history to w.
func formatRuns(out io.Writer, runs []store.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tROWS\tMATCHED\tSTARTED\tDURATION")
	for _, r := range runs {
		dur := ""
		if !r.FinishedAt.IsZero() {
			dur = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			truncateID(r.ID),
			r.Status,
			r.Rows,
			r.Matched,
			r.StartedAt.Format("2006-01-02 15:04"),
			dur,
		)
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

func init() {
	statusCmd.Flags().StringVar(&statusCountry, "country", "germany", "country to report on")
	rootCmd.AddCommand(statusCmd)
}
