package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/forecast-drift/internal/api/http"
	"github.com/i474232898/forecast-drift/internal/common"
	"github.com/i474232898/forecast-drift/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the auto-refresh scheduler",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if port, _ := cmd.Flags().GetString("port"); port != "" {
			cfg.Port = port
		}
		accessLog, _ := cmd.Flags().GetBool("access-log")

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		// Scheduler that periodically fetches and compares snapshots.
		sched := scheduler.New(cfg.Locations, cfg.FetchInterval, cfg.ComparisonMode, a.service)
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()

		server := httpapi.NewApp(a.service, accessLog)
		go func() {
			if err := server.Listen(":" + cfg.Port); err != nil {
				common.Log.Errorf("fiber server stopped: %v", err)
			}
		}()
		common.Log.WithField("port", cfg.Port).Infof("serving %d scheduled locations", len(cfg.Locations))

		// Wait for termination signal
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.ShutdownWithContext(shutdownCtx); err != nil {
			common.Log.Errorf("error during shutdown: %v", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("port", "", "Listen port (overrides PORT)")
	serveCmd.Flags().Bool("access-log", true, "Log every HTTP request")
}
