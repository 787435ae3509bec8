package worker

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/salon-campaigns/internal/app"
	"github.com/jmehdipour/salon-campaigns/internal/kafka"
	"github.com/jmehdipour/salon-campaigns/internal/logger"
	"github.com/jmehdipour/salon-campaigns/internal/metrics"
	"github.com/jmehdipour/salon-campaigns/internal/repository"
	"github.com/jmehdipour/salon-campaigns/internal/service/campaign"
	"github.com/jmehdipour/salon-campaigns/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Run the campaign worker (consumes queued campaigns from Kafka)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
		cfg, err := app.Bootstrap(cfgPath)
		if err != nil {
			return err
		}
		log := logger.Log
		defer func() { _ = log.Sync() }()

		metrics.MustRegister(prometheus.DefaultRegisterer)

		// graceful shutdown
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// 1) stores
		dbx, err := app.MySQL(ctx, cfg)
		if err != nil {
			return err
		}
		defer dbx.Close()

		chDB, err := app.ClickHouse(ctx, cfg)
		if err != nil {
			return err
		}
		defer chDB.Close()

		rdb, err := app.Redis(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()

		// 2) generator + gateways → runner
		gen, err := app.Generator(ctx, cfg)
		if err != nil {
			return err
		}
		runner := campaign.NewRunner(campaign.RunnerOpts{
			Campaigns:  repository.NewCampaignsRepository(dbx),
			Recipients: repository.NewRecipientsRepository(dbx),
			Reports:    repository.NewCHDeliveriesRepository(chDB),
			Progress:   campaign.NewRedisProgress(rdb, 0),
			Dispatcher: app.Dispatcher(cfg, log.Named("dispatcher")),
			Generator:  gen,
			Fallback:   cfg.Dispatcher.Fallback,
			Log:        log.Named("campaign"),
		})

		// 3) kafka consumer
		topic := cfg.Kafka.Topic
		if topic == "" {
			topic = campaign.JobsKafkaTopic
		}
		groupID := cfg.Kafka.GroupID
		if groupID == "" {
			groupID = "salon-campaigns"
		}
		consumer := kafka.NewConsumer(kafka.Config{
			Brokers:        cfg.Kafka.Brokers,
			Topic:          topic,
			GroupID:        groupID + "-worker",
			MinBytes:       cfg.Kafka.MinBytes,
			MaxBytes:       cfg.Kafka.MaxBytes,
			CommitInterval: time.Duration(cfg.Kafka.CommitInterval) * time.Millisecond,
		})
		defer consumer.Close()

		w := worker.NewCampaignKafka(consumer, runner, log.Named("worker"))

		log.Info("campaign worker started",
			zap.String("topic", topic),
			zap.String("group", groupID+"-worker"),
			zap.Strings("brokers", cfg.Kafka.Brokers))

		return w.Run(ctx)
	},
}
