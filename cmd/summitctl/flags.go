package main

import (
	"errors"
	"strings"

	"summit/internal/platform/config"
	"summit/internal/platform/db"

	"github.com/spf13/cobra"
)

// dsnFlag falls back to POSTGRES_DSN when left empty.
func dsnFlag(cmd *cobra.Command, dsn *string) {
	cmd.Flags().StringVarP(dsn, "dsn", "d", "", "postgres dsn (defaults to POSTGRES_DSN)")
}

func connect(dsn string) (*db.Postgres, error) {
	if strings.TrimSpace(dsn) == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		dsn = cfg.PostgresDSN
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required: pass --dsn or set POSTGRES_DSN")
	}
	return db.Connect(dsn)
}
