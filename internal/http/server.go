package http

import (
	"context"
	"net/http"
	"time"

	"github.com/jmehdipour/salon-campaigns/internal/auth"
	"github.com/jmehdipour/salon-campaigns/internal/config"
	"github.com/jmehdipour/salon-campaigns/internal/dispatcher"
	"github.com/jmehdipour/salon-campaigns/internal/http/middleware"
	"github.com/jmehdipour/salon-campaigns/internal/logger"
	"github.com/jmehdipour/salon-campaigns/internal/metrics"
	"github.com/jmehdipour/salon-campaigns/internal/model"
	"github.com/jmehdipour/salon-campaigns/internal/repository"
	"github.com/jmehdipour/salon-campaigns/internal/service/campaign"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CampaignService queues campaigns and reports on them.
type CampaignService interface {
	Enqueue(ctx context.Context, tenantID string, req campaign.Request) (model.Campaign, error)
	Status(ctx context.Context, tenantID, id string) (model.Campaign, *campaign.Progress, error)
}

// Deps are the collaborators behind the routes.
type Deps struct {
	Auth       auth.Provider
	Recipients repository.RecipientsRepository
	Campaigns  CampaignService
	Deliveries repository.CHDeliveriesRepository
	// Generator is nil when no API key is configured; generation routes answer 503.
	Generator dispatcher.TextGenerator
	Redis     *redis.Client
}

type Server struct{ e *echo.Echo }

func NewServer(cfg config.Config, mysqlDB, clickhouseDB *sqlx.DB, rds *redis.Client, gen dispatcher.TextGenerator) *Server {
	// repos (MySQL)
	accountsRepo := repository.NewAccountsRepository(mysqlDB)
	recipientsRepo := repository.NewRecipientsRepository(mysqlDB)
	campaignsRepo := repository.NewCampaignsRepository(mysqlDB)
	outboxRepo := repository.NewOutboxRepository()

	// repos (ClickHouse)
	chDeliveriesRepo := repository.NewCHDeliveriesRepository(clickhouseDB)

	// services
	authSvc := auth.NewService(accountsRepo, auth.NewRedisStore(rds), auth.Options{
		SessionTTL: cfg.Auth.SessionTTL,
		ResetTTL:   cfg.Auth.ResetTTL,
		ResetURL:   cfg.Auth.ResetURL,
		BcryptCost: cfg.Auth.BcryptCost,
		Log:        logger.Log.Named("auth"),
	})
	campaignSvc := campaign.NewService(
		mysqlDB,
		campaignsRepo,
		outboxRepo,
		campaign.NewRedisProgress(rds, 0),
		cfg.Kafka.Topic,
	)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e := newRouter(cfg, Deps{
		Auth:       authSvc,
		Recipients: recipientsRepo,
		Campaigns:  campaignSvc,
		Deliveries: chDeliveriesRepo,
		Generator:  gen,
		Redis:      rds,
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return &Server{e: e}
}

func newRouter(cfg config.Config, d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// public auth, limited per client IP
	a := e.Group("/auth", middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          d.Redis,
		RPS:            cfg.RateLimit.AuthPerMinute,
		KeyPrefix:      "rl:auth:",
		Window:         time.Minute,
		RetryAfterHint: true,
		Key:            middleware.RealIPKey,
	}))
	a.POST("/signup", signUpHandler(d.Auth))
	a.POST("/signin", signInHandler(d.Auth))
	a.POST("/reset", resetPasswordHandler(d.Auth))
	a.POST("/reset/confirm", confirmResetHandler(d.Auth))

	// middlewares
	sessionMW := middleware.SessionMiddleware(d.Auth)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          d.Redis,
		RPS:            cfg.RateLimit.RPS,
		KeyPrefix:      "rl:tenant:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	// routes
	v1 := e.Group("/v1", sessionMW, rlMW)
	v1.POST("/auth/signout", signOutHandler(d.Auth))

	v1.GET("/recipients", listRecipientsHandler(d.Recipients))
	v1.POST("/recipients", createRecipientHandler(d.Recipients))
	v1.PUT("/recipients", upsertRecipientsHandler(d.Recipients))
	v1.DELETE("/recipients", deleteRecipientsHandler(d.Recipients))
	v1.POST("/recipients/import", importRecipientsHandler(d.Recipients, cfg.HTTP.MaxUploadSize))

	v1.POST("/campaigns/preview", previewHandler(d.Generator, d.Recipients))
	v1.POST("/campaigns/template", templateHandler(d.Generator))
	v1.POST("/campaigns", enqueueCampaignHandler(d.Campaigns))
	v1.GET("/campaigns/:id", campaignStatusHandler(d.Campaigns))

	v1.GET("/reports/deliveries", listDeliveriesHandler(d.Deliveries))

	return e
}

func (s *Server) Start(addr string) error {
	logger.Log.Info("http: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }

func jsonError(c echo.Context, code int, msg string) error {
	return c.JSON(code, map[string]string{"error": msg})
}
