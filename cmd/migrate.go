package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jmehdipour/salon-campaigns/internal/app"
	"github.com/jmehdipour/salon-campaigns/internal/logger"
	"github.com/jmehdipour/salon-campaigns/migrations"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateSkipClickHouse bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations (dev: DROP & CREATE tables)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.Bootstrap(cfgPath)
		if err != nil {
			return err
		}
		ctx := context.Background()

		sqlDB, err := app.MySQL(ctx, cfg)
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		if _, err := sqlDB.Exec("SET FOREIGN_KEY_CHECKS = 0"); err != nil {
			return fmt.Errorf("disable fk checks: %w", err)
		}
		// the MySQL DSN enables multiStatements, so each file runs in one Exec
		if err := applyDir(sqlDB, migrations.MySQL, ".", false); err != nil {
			_, _ = sqlDB.Exec("SET FOREIGN_KEY_CHECKS = 1")
			return err
		}
		if _, err := sqlDB.Exec("SET FOREIGN_KEY_CHECKS = 1"); err != nil {
			return fmt.Errorf("enable fk checks: %w", err)
		}
		logger.Log.Info("mysql migration complete")

		if migrateSkipClickHouse {
			return nil
		}
		chDB, err := app.ClickHouse(ctx, cfg)
		if err != nil {
			return err
		}
		defer chDB.Close()

		if err := applyDir(chDB, migrations.ClickHouse, "clickhouse", true); err != nil {
			return err
		}
		logger.Log.Info("clickhouse migration complete")
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateSkipClickHouse, "skip-clickhouse", false, "only migrate MySQL")
}

func applyDir(dbx *sqlx.DB, fsys fs.FS, dir string, split bool) error {
	names, err := fs.Glob(fsys, strings.TrimPrefix(dir+"/*.sql", "./"))
	if err != nil {
		return err
	}
	sort.Strings(names)

	for _, name := range names {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read migration file %s: %w", name, err)
		}
		stmts := []string{string(raw)}
		if split {
			stmts = splitStatements(string(raw))
		}
		for _, stmt := range stmts {
			if _, err := dbx.Exec(stmt); err != nil {
				return fmt.Errorf("exec migration %s: %w", name, err)
			}
		}
		logger.Log.Debug("migration applied", zap.String("file", name))
	}
	return nil
}

func splitStatements(sql string) []string {
	var out []string
	for _, s := range strings.Split(sql, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
