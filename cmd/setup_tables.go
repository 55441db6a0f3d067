package cmd

import (
	"context"
	"dispatch-backend/dal"
	"dispatch-backend/repository"
	"dispatch-backend/utils"
	"dispatch-backend/worker"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var setupTimeout time.Duration

var setupTablesCmd = &cobra.Command{
	Use:   "setup-tables",
	Short: "Create the DynamoDB tables once and exit",
	RunE:  runSetupTables,
}

func init() {
	setupTablesCmd.Flags().DurationVar(&setupTimeout, "timeout", 5*time.Minute, "how long to wait for the tables to become active")
}

func runSetupTables(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), setupTimeout)
	defer cancel()

	dalContainer, err := dal.NewDALContainer(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	repos := repository.NewRepositoryContainer(dalContainer, cfg, log)

	svc, err := worker.NewService(cfg, dalContainer.GetDatabaseClient(), repos.GetLockRepository(), log)
	if err != nil {
		return err
	}
	result, err := svc.RunSetupOnce(ctx)
	if err != nil {
		return fmt.Errorf("setup-tables: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), utils.PrintPrettyJSON(result))
	return nil
}
