package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogotex/gogotex/backend/docservice/internal/config"
	"github.com/gogotex/gogotex/backend/docservice/internal/database"
	"github.com/gogotex/gogotex/backend/docservice/pkg/logger"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back the SQL schema of the configured store",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(database.Up), string(database.Down)},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			dir := database.Up
			if len(args) == 1 {
				dir = database.Direction(args[0])
			}
			if dir != database.Up && dir != database.Down {
				return fmt.Errorf("unknown direction %q, want up or down", dir)
			}

			switch cfg.Store.Driver {
			case config.DriverPostgres:
				err = database.MigratePostgres(cfg.Postgres.DSN, dir)
			case config.DriverSQLite:
				db, oerr := database.OpenSQLite(cfg.SQLite.Path)
				if oerr != nil {
					return oerr
				}
				defer db.Close()
				err = database.MigrateSQLite(db, dir)
			default:
				return fmt.Errorf("store driver %q has no SQL schema", cfg.Store.Driver)
			}
			if err != nil {
				return err
			}
			logger.Infof("migrated %s %s", cfg.Store.Driver, dir)
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(newMigrateCmd())
}
