package cmd

import (
	"dispatch-backend/models"
	"dispatch-backend/utils"
	"dispatch-backend/utils/logger"
	"fmt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "dispatch-backend",
	Short:        "Technician assignment and dispatch lifecycle API",
	SilenceUsage: true,
	RunE:         runServe,
}

// Execute runs the CLI. Without a subcommand it starts the API server.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noWorker, "no-worker", false, "do not start the background infrastructure worker")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(setupTablesCmd)
}

func loadConfig() (*models.Config, logger.Logger, error) {
	cfg, err := utils.GetConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	return cfg, logger.NewLogger(cfg.LogLevel, cfg.LogFormat), nil
}
