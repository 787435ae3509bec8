package cmd

import (
	"fmt"
	"os"

	"github.com/jmehdipour/salon-campaigns/cmd/worker"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	rootCmd = &cobra.Command{
		Use:   "salon-campaigns",
		Short: "Salon CRM SMS campaigns",
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(campaignCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(worker.NewWorkerCmd())
}
