package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmehdipour/salon-campaigns/internal/app"
	"github.com/jmehdipour/salon-campaigns/internal/importer"
	"github.com/jmehdipour/salon-campaigns/internal/model"
	"github.com/jmehdipour/salon-campaigns/internal/repository"
	"github.com/spf13/cobra"
)

var (
	importTenant string
	importDryRun bool
)

var importCmd = &cobra.Command{
	Use:   "import <file.vcf|file.csv>",
	Short: "Import contacts into a tenant's roster",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		res, err := importer.Parse(filepath.Base(path), f)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "read %d contacts: %d usable, %d skipped\n", res.Total, res.Imported, res.Skipped)
		for _, e := range res.Errors {
			fmt.Fprintf(out, "  skipped: %s\n", e)
		}
		if importDryRun || len(res.Contacts) == 0 {
			for _, c := range res.Contacts {
				fmt.Fprintf(out, "  %s\t%s\t%s\n", c.Name, c.Phone, c.LastService)
			}
			return nil
		}
		if importTenant == "" {
			return fmt.Errorf("--tenant is required unless --dry-run is set")
		}

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

		rs := make([]model.Recipient, 0, len(res.Contacts))
		for _, c := range res.Contacts {
			rs = append(rs, c.Recipient(importTenant))
		}
		n, err := repository.NewRecipientsRepository(sqlDB).UpsertBulk(ctx, importTenant, rs)
		if err != nil {
			return fmt.Errorf("store contacts: %w", err)
		}
		fmt.Fprintf(out, "stored %d recipients\n", n)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importTenant, "tenant", "", "tenant (account) id")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "print the decoded contacts without storing them")
}
