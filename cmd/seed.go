package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jmehdipour/salon-campaigns/internal/app"
	"github.com/jmehdipour/salon-campaigns/internal/logger"
	"github.com/jmehdipour/salon-campaigns/internal/model"
	"github.com/jmehdipour/salon-campaigns/internal/repository"
	"github.com/jmehdipour/salon-campaigns/internal/util"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	demoEmail    = "demo@salon.pl"
	demoPassword = "demo1234"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with a demo salon and its clients",
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

		logger.Log.Info("seeding demo salon")

		acc, err := seedAccount(ctx, repository.NewAccountsRepository(sqlDB), cfg.Auth.BcryptCost)
		if err != nil {
			return err
		}
		n, err := seedRecipients(ctx, repository.NewRecipientsRepository(sqlDB), acc.ID)
		if err != nil {
			return err
		}

		logger.Log.Info("seed completed",
			zap.String("email", demoEmail),
			zap.String("tenant", acc.ID),
			zap.Int("recipients", n))
		return nil
	},
}

// seedAccount creates the demo account once (idempotent by email).
func seedAccount(ctx context.Context, accounts repository.AccountsRepository, cost int) (model.Account, error) {
	existing, err := accounts.GetByEmail(ctx, demoEmail)
	if err != nil {
		return model.Account{}, fmt.Errorf("load demo account: %w", err)
	}
	if existing != nil {
		return *existing, nil
	}

	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), cost)
	if err != nil {
		return model.Account{}, fmt.Errorf("hash password: %w", err)
	}
	acc := model.Account{
		ID:           util.NewID(),
		Email:        demoEmail,
		PasswordHash: string(hash),
		SalonName:    "Studio Urody Demo",
	}
	if err := accounts.Create(ctx, acc); err != nil {
		return model.Account{}, fmt.Errorf("insert demo account: %w", err)
	}
	return acc, nil
}

// seedRecipients fills an empty roster with five demo clients.
func seedRecipients(ctx context.Context, recipients repository.RecipientsRepository, tenantID string) (int, error) {
	existing, err := recipients.ListByTenant(ctx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("list roster: %w", err)
	}
	if len(existing) > 0 {
		return len(existing), nil
	}

	visit := func(daysAgo int) *time.Time {
		d := time.Now().UTC().AddDate(0, 0, -daysAgo).Truncate(24 * time.Hour)
		return &d
	}
	demo := []model.Recipient{
		{Name: "Anna Nowak", Phone: "48500100200", LastService: "manicure hybrydowy", VisitDate: visit(21)},
		{Name: "Katarzyna Wiśniewska", Phone: "48500100201", LastService: "henna brwi", VisitDate: visit(45)},
		{Name: "Małgorzata Zielińska", Phone: "48500100202", LastService: "pedicure", VisitDate: visit(60)},
		{Name: "Ola Kowalczyk", Phone: "48500100203", LastService: "strzyżenie", VisitDate: visit(10)},
		{Name: "Ewa Lewandowska", Phone: "48500100204", LastService: "oczyszczanie twarzy"},
	}
	n, err := recipients.UpsertBulk(ctx, tenantID, demo)
	if err != nil {
		return 0, fmt.Errorf("insert demo recipients: %w", err)
	}
	return n, nil
}
