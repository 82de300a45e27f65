package main

import (
	"fmt"
	"log/slog"

	"summit/internal/app/bootstrap"

	"github.com/spf13/cobra"
)

type migrateArguments struct {
	DSN string
}

var migrateArgs migrateArguments

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the assembly, newsroom and notification tables",
	Args:  cobra.NoArgs,
	RunE:  migrateRun,
}

func init() {
	dsnFlag(migrateCmd, &migrateArgs.DSN)
}

func migrateRun(cmd *cobra.Command, _ []string) error {
	pg, err := connect(migrateArgs.DSN)
	if err != nil {
		return err
	}
	defer pg.Close()

	if err := bootstrap.Migrate(cmd.Context(), pg, slog.Default()); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
	return nil
}
