package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/i474232898/forecast-drift/internal/diff"
	"github.com/i474232898/forecast-drift/internal/timefmt"
	"github.com/i474232898/forecast-drift/internal/weather"
)

const fetchTimeout = 45 * time.Second

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch one forecast snapshot and print what changed",
	Example: `  forecast-drift fetch --location "40.7128, -74.0060"
  forecast-drift fetch --location "Austin" --mode daily`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		input, _ := cmd.Flags().GetString("location")
		rawMode, _ := cmd.Flags().GetString("mode")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		mode, err := modeOrDefault(rawMode, cfg.ComparisonMode)
		if err != nil {
			return err
		}

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), fetchTimeout)
		defer cancel()

		loc, err := a.service.ResolveLocation(ctx, input)
		if err != nil {
			return fmt.Errorf("resolve %q: %w", input, err)
		}
		res, err := a.service.Refresh(ctx, loc, mode)
		if err != nil {
			return err
		}
		printRefresh(cmd.OutOrStdout(), res, formatterFor(cfg))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().String("location", "", `Location as "lat, lon" or a place name`)
	fetchCmd.Flags().String("mode", "", "Comparison mode: hourly or daily (default from COMPARISON_MODE)")
	_ = fetchCmd.MarkFlagRequired("location")
}

func modeOrDefault(raw string, def diff.Mode) (diff.Mode, error) {
	if raw == "" {
		return def, nil
	}
	return diff.ParseMode(raw)
}

// printRefresh writes a plain-text summary of one refresh.
func printRefresh(w io.Writer, res weather.RefreshResult, f timefmt.Formatter) {
	snap := res.Snapshot
	fmt.Fprintf(w, "%s (%s)\n", snap.Location.Name, snap.Location.ID)
	fmt.Fprintf(w, "Fetched %s, %d alerts (%s)\n", f.DateTime(snap.FetchedAt), len(snap.Normalized.Alerts), snap.SourceMeta.AlertsStatus)
	printDiff(w, res.Diff)
}

func printDiff(w io.Writer, d diff.Result) {
	fmt.Fprintf(w, "Mode: %s\n", d.Mode)
	if !d.HasChanges {
		fmt.Fprintln(w, d.UnchangedMessage)
	}
	for _, c := range d.Summary {
		fmt.Fprintf(w, "  - %s\n", c.Message)
	}
	if extra := len(d.Changes) - len(d.Summary); extra > 0 {
		fmt.Fprintf(w, "  ... and %d more\n", extra)
	}
	if d.HasBaseline {
		m := d.Metrics
		fmt.Fprintf(w, "Windows: %d of %d changed (%.0f%%)\n", m.ChangedWindows, m.TotalComparedWindows, m.ChangeRate*100)
	}
	fmt.Fprintf(w, "Confidence: %s (%.0f) %s\n", d.Confidence.Label, d.Confidence.Score, d.Confidence.Reason)
}
