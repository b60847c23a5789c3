package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/aurorallabs/referral-portal/internal/config"
	"github.com/aurorallabs/referral-portal/internal/handler"
	"github.com/aurorallabs/referral-portal/internal/identity"
	"github.com/aurorallabs/referral-portal/internal/jobs"
	"github.com/aurorallabs/referral-portal/internal/live"
	"github.com/aurorallabs/referral-portal/internal/middleware"
	"github.com/aurorallabs/referral-portal/internal/repository"
	"github.com/aurorallabs/referral-portal/internal/service"
	"github.com/aurorallabs/referral-portal/internal/session"
	"github.com/aurorallabs/referral-portal/internal/tracing"
	appvalidator "github.com/aurorallabs/referral-portal/internal/validator"
	"github.com/aurorallabs/referral-portal/pkg/database"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	initLogger(cfg)

	ctx := context.Background()

	shutdownTracing, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Environment: cfg.App.Env,
		Version:     version,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracing")
	}

	// Initialize database pool with retry
	pool, err := database.NewPool(ctx, cfg.DB.DSN(), 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if cfg.DB.AutoMigrate {
		if err := database.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to apply database schema")
		}
		log.Info().Msg("database schema applied")
	}

	// Live updates: Redis fans out across instances, memory works for one.
	var broker live.Broker
	healthChecks := map[string]handler.Pinger{}
	if cfg.Redis.Addr != "" {
		rb, err := live.NewRedisBroker(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("failed to connect to redis")
		}
		broker = rb
		healthChecks["redis"] = rb
		log.Info().Str("addr", cfg.Redis.Addr).Msg("using redis live-update broker")
	} else {
		broker = live.NewMemoryBroker()
		log.Info().Msg("using in-memory live-update broker")
	}

	idp := identity.NewClient(identity.Config{
		ProjectID:  cfg.Identity.ProjectID,
		Issuer:     cfg.Identity.Issuer(),
		JWKSURL:    cfg.Identity.JWKSURL,
		APIBaseURL: cfg.Identity.APIBaseURL,
		AdminToken: cfg.Identity.AdminToken,
		Timeout:    cfg.Identity.Timeout,
	})
	sessions := session.NewManager(cfg.Session.Secret, cfg.Session.TTL)
	validate := appvalidator.New()

	// Repositories and services (layered architecture)
	userRepo := repository.NewUserRepository(pool)
	submissionRepo := repository.NewSubmissionRepository(pool)
	rewardRepo := repository.NewRewardRepository(pool)
	catalogRepo := repository.NewCatalogRepository(pool)

	accountService := service.NewAccountService(userRepo, idp, cfg.App.PublicBaseURL)
	submissionService := service.NewSubmissionService(pool, userRepo, submissionRepo, broker)
	rewardService := service.NewRewardService(pool, userRepo, rewardRepo, idp, broker)
	adminService := service.NewAdminService(pool, userRepo, submissionRepo, rewardRepo, broker)
	templateService := service.NewTemplateService(catalogRepo)

	scheduler, err := jobs.NewScheduler(adminService, cfg.Jobs.AuditInterval)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create job scheduler")
	}
	scheduler.Start()

	// Streams end when streamCtx is cancelled so shutdown is not held open by them.
	streamCtx, stopStreams := context.WithCancel(context.Background())
	streamer := handler.NewStreamer(streamCtx, broker, handler.DefaultKeepalive)

	auth := middleware.NewAuth(sessions, accountService, cfg.App.IsProduction(), cfg.App.BootstrapToken)

	healthHandler := handler.NewHealthHandler(pool, healthChecks)
	sessionHandler := handler.NewSessionHandler(accountService, sessions, auth, validate)
	submissionHandler := handler.NewSubmissionHandler(submissionService, validate)
	rewardHandler := handler.NewRewardHandler(rewardService, validate)
	templateHandler := handler.NewTemplateHandler(templateService)
	adminHandler := handler.NewAdminHandler(adminService, accountService, validate)
	dashboardHandler := handler.NewDashboardHandler(accountService, submissionService, rewardService, streamer, validate)

	app := fiber.New(fiber.Config{
		AppName:      "Referral Portal",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // event streams stay open
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.AllowedOrigins,
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, X-Request-ID, " + middleware.BootstrapHeader,
		AllowCredentials: true,
		MaxAge:           86400,
	}))
	app.Use(tracing.Middleware())

	app.Get("/health", healthHandler.Check)

	api := app.Group("/api")
	api.Post("/auth/session", sessionHandler.Create)
	api.Delete("/auth/session", sessionHandler.Delete)
	api.Get("/auth/signout", sessionHandler.SignOut)

	api.Post("/submit-form", limiter.New(limiter.Config{
		Max:        cfg.Server.SubmitRateLimit,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error":   "Too many submissions, please try again later",
			})
		},
	}), submissionHandler.SubmitForm)

	api.Get("/user/rewards", auth.RequireSession(), rewardHandler.GetRewards)
	api.Post("/user/rewards", auth.RequireSession(), rewardHandler.ClaimReward)

	api.Get("/rewards/templates", templateHandler.List)
	api.Post("/rewards/templates", auth.AdminOrBootstrap(), templateHandler.Seed)
	api.Post("/create-admin", auth.AdminOrBootstrap(), adminHandler.CreateAdmin)

	dash := app.Group("/dashboard", auth.DashboardGate())
	dash.Get("/", dashboardHandler.Overview)
	dash.Get("/referrals", dashboardHandler.Referrals)
	dash.Get("/referrals/stream", dashboardHandler.ReferralsStream)
	dash.Get("/rewards", dashboardHandler.Rewards)
	dash.Get("/rewards/stream", dashboardHandler.RewardsStream)
	dash.Delete("/rewards/:id", dashboardHandler.WithdrawClaim)
	dash.Get("/settings", dashboardHandler.Settings)
	dash.Patch("/settings", dashboardHandler.UpdateSettings)

	admin := dash.Group("/admin", auth.RequireAdmin())
	admin.Get("/stats", adminHandler.Stats)
	admin.Get("/analytics", adminHandler.Analytics)
	admin.Get("/users", adminHandler.Users)
	admin.Get("/submissions", adminHandler.Submissions)
	admin.Patch("/submissions/:id", adminHandler.UpdateSubmission)
	admin.Delete("/submissions/:id", adminHandler.DeleteSubmission)
	admin.Get("/claims", adminHandler.Claims)
	admin.Post("/claims/:id/approve", adminHandler.ApproveClaim)
	admin.Post("/claims/:id/reject", adminHandler.RejectClaim)
	admin.Get("/templates", adminHandler.Templates)
	admin.Post("/templates", adminHandler.CreateTemplate)
	admin.Patch("/templates/:id", adminHandler.UpdateTemplate)
	admin.Delete("/templates/:id", adminHandler.DeleteTemplate)

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	stopStreams()

	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	if err := scheduler.Shutdown(); err != nil {
		log.Error().Err(err).Msg("error stopping job scheduler")
	}
	if err := broker.Close(); err != nil {
		log.Error().Err(err).Msg("error closing live-update broker")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error flushing traces")
	}

	// Close database pool AFTER server shutdown (even if shutdown timed out)
	log.Info().Msg("closing database connections...")
	pool.Close()
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Pretty {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
