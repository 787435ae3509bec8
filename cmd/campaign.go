package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/jmehdipour/salon-campaigns/internal/app"
	"github.com/jmehdipour/salon-campaigns/internal/dispatcher"
	"github.com/jmehdipour/salon-campaigns/internal/generator"
	"github.com/jmehdipour/salon-campaigns/internal/logger"
	"github.com/jmehdipour/salon-campaigns/internal/model"
	"github.com/jmehdipour/salon-campaigns/internal/repository"
	"github.com/jmehdipour/salon-campaigns/internal/service/campaign"
	"github.com/spf13/cobra"
)

var campaignFlags struct {
	tenant     string
	salon      string
	intent     string
	mode       string
	strategy   string
	template   string
	recipients []string
	name       string
	service    string
}

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Run or preview a campaign from the command line",
}

var campaignRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Dispatch a campaign synchronously to a tenant's roster",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.Bootstrap(cfgPath)
		if err != nil {
			return err
		}
		f := campaignFlags
		if f.tenant == "" {
			return fmt.Errorf("--tenant is required")
		}

		req := campaign.Request{
			Salon:        f.salon,
			Intent:       f.intent,
			Mode:         model.Mode(f.mode),
			Strategy:     model.StrategyKind(f.strategy),
			Template:     f.template,
			RecipientIDs: f.recipients,
		}
		if err := req.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sqlDB, err := app.MySQL(ctx, cfg)
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		gen, err := app.Generator(ctx, cfg)
		if err != nil {
			return err
		}

		roster := repository.NewRecipientsRepository(sqlDB)
		var recipients []model.Recipient
		if len(req.RecipientIDs) > 0 {
			recipients, err = roster.GetByIDs(ctx, f.tenant, req.RecipientIDs)
		} else {
			recipients, err = roster.ListByTenant(ctx, f.tenant)
		}
		if err != nil {
			return fmt.Errorf("load roster: %w", err)
		}

		runner := campaign.NewRunner(campaign.RunnerOpts{
			Dispatcher: app.Dispatcher(cfg, logger.Log.Named("dispatcher")),
			Generator:  gen,
			Fallback:   cfg.Dispatcher.Fallback,
			Log:        logger.Log.Named("campaign"),
		})

		out := cmd.OutOrStdout()
		report, err := runner.Execute(ctx, model.Campaign{
			TenantID: f.tenant,
			Salon:    req.Salon,
			Intent:   req.Intent,
			Mode:     req.Mode,
			Strategy: req.Strategy,
			Template: req.Template,
		}, recipients, func(p dispatcher.Progress) {
			fmt.Fprintf(out, "[%3.0f%%] %d/%d %s %s\n", p.Fraction*100, p.Done, p.Total, p.Last.Recipient.Phone, p.Last.Status)
		})
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tPHONE\tSTATUS\tDETAIL\tTEXT")
		for _, m := range report.Messages {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", m.Recipient.Name, m.Recipient.Phone, m.Status, m.Detail, m.Text)
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		ok, failed := report.Counts()
		fmt.Fprintf(out, "done: %d ok, %d failed\n", ok, failed)
		return nil
	},
}

var campaignPreviewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Generate one message (or a template with --strategy template) without sending",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.Bootstrap(cfgPath)
		if err != nil {
			return err
		}
		f := campaignFlags

		ctx := context.Background()
		gen, err := app.Generator(ctx, cfg)
		if err != nil {
			return err
		}
		if gen == nil {
			return generator.ErrMissingAPIKey
		}

		kind, _ := model.ParseStrategyKind(f.strategy)
		res, err := gen.Generate(ctx, generator.Request{
			Salon:         f.salon,
			Intent:        f.intent,
			RecipientName: f.name,
			LastService:   f.service,
			Template:      kind == model.StrategyTemplate && strings.TrimSpace(f.name) == "",
		})

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "tone: %s\n--- prompt ---\n%s\n", res.Tone, res.Prompt)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "--- sms (%d chars) ---\n%s\n", len([]rune(res.Text)), res.Text)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{campaignRunCmd, campaignPreviewCmd} {
		c.Flags().StringVar(&campaignFlags.salon, "salon", "", "salon name used in the message")
		c.Flags().StringVar(&campaignFlags.intent, "intent", "", "campaign goal, e.g. a promotion")
		c.Flags().StringVar(&campaignFlags.strategy, "strategy", "template", "template | per_recipient")
	}
	campaignRunCmd.Flags().StringVar(&campaignFlags.tenant, "tenant", "", "tenant (account) id")
	campaignRunCmd.Flags().StringVar(&campaignFlags.mode, "mode", "simulate", "simulate | real")
	campaignRunCmd.Flags().StringVar(&campaignFlags.template, "template", "", "fixed template with {name}, skips generation")
	campaignRunCmd.Flags().StringSliceVar(&campaignFlags.recipients, "recipient", nil, "recipient ids (default: whole roster)")
	campaignPreviewCmd.Flags().StringVar(&campaignFlags.name, "name", "", "client name (per-recipient preview)")
	campaignPreviewCmd.Flags().StringVar(&campaignFlags.service, "service", "", "client's last service")

	campaignCmd.AddCommand(campaignRunCmd)
	campaignCmd.AddCommand(campaignPreviewCmd)
}
