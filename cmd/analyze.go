package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dataviz-ai/dataviz-go/internal/dataset"
	"github.com/dataviz-ai/dataviz-go/internal/profile"
	"github.com/dataviz-ai/dataviz-go/internal/recommend"
)

var flagAnalyzeNoCharts bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Profile a local CSV or XLSX file and print the analysis as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read file: %w", err)
		}
		tbl, err := dataset.Read(filepath.Base(path), data)
		if err != nil {
			return err
		}

		cols := profile.Dataset(tbl)
		sig := profile.DeriveSignals(cols)

		out := map[string]any{
			"filename":        filepath.Base(path),
			"n_rows":          tbl.NumRows(),
			"n_cols":          tbl.NumCols(),
			"columns":         cols,
			"has_time_series": sig.HasTimeSeries,
			"has_geographic":  sig.HasGeographic,
		}
		if !flagAnalyzeNoCharts {
			rc := make([]recommend.Column, len(cols))
			for i, c := range cols {
				rc[i] = recommend.Column{Name: c.Name, Type: string(c.Type)}
			}
			charts := recommend.Charts(rc, sig.HasTimeSeries)
			out["recommended"] = charts
			out["total_count"] = len(charts)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&flagAnalyzeNoCharts, "no-charts", false, "omit chart recommendations from the output")
	rootCmd.AddCommand(analyzeCmd)
}
