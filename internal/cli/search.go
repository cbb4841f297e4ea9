package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/i474232898/forecast-drift/internal/forecast"
	"github.com/i474232898/forecast-drift/internal/weather/providers"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Look up locations by name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.HTTPTimeout)
		defer cancel()

		geocoder := providers.NewOpenMeteoProvider(providers.NewHTTPClient(providers.DefaultClientConfig(cfg.HTTPTimeout)))
		locs, err := geocoder.SearchLocations(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), locs)
		}
		printLocations(cmd.OutOrStdout(), locs)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().Bool("json", false, "Print results as JSON")
}

func printLocations(w io.Writer, locs []forecast.Location) {
	if len(locs) == 0 {
		fmt.Fprintln(w, "No matching locations found.")
		return
	}
	for _, loc := range locs {
		fmt.Fprintf(w, "%-40s  %s  %s\n", loc.Name, loc.ID, loc.Timezone)
	}
}
