package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/i474232898/forecast-drift/internal/diff"
	"github.com/i474232898/forecast-drift/internal/forecast"
	"github.com/i474232898/forecast-drift/internal/timefmt"
)

var compareCmd = &cobra.Command{
	Use:   "compare <previous.json> <current.json>",
	Short: "Compare two snapshot files and print the diff as JSON",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rawMode, _ := cmd.Flags().GetString("mode")
		text, _ := cmd.Flags().GetBool("text")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		mode, err := modeOrDefault(rawMode, cfg.ComparisonMode)
		if err != nil {
			return err
		}

		result, err := compareFiles(args[0], args[1], mode, formatterFor(cfg))
		if err != nil {
			return err
		}
		if text {
			printDiff(cmd.OutOrStdout(), result)
			return nil
		}
		return writeJSON(cmd.OutOrStdout(), result)
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().String("mode", "", "Comparison mode: hourly or daily (default from COMPARISON_MODE)")
	compareCmd.Flags().Bool("text", false, "Print a plain-text summary instead of JSON")
}

func compareFiles(previousPath, currentPath string, mode diff.Mode, f timefmt.Formatter) (diff.Result, error) {
	previous, err := readSnapshot(previousPath)
	if err != nil {
		return diff.Result{}, err
	}
	current, err := readSnapshot(currentPath)
	if err != nil {
		return diff.Result{}, err
	}
	return diff.NewEngine(f).Compare(&previous, &current, mode), nil
}

func readSnapshot(path string) (forecast.Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return forecast.Snapshot{}, err
	}
	snap, err := forecast.DecodeSnapshot(raw)
	if err != nil {
		return forecast.Snapshot{}, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
