package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vidaplus/convenio-api/internal/config"
	"github.com/vidaplus/convenio-api/internal/domain/access"
	"github.com/vidaplus/convenio-api/internal/domain/billing"
	"github.com/vidaplus/convenio-api/internal/domain/consultation"
	"github.com/vidaplus/convenio-api/internal/domain/network"
	"github.com/vidaplus/convenio-api/internal/platform/auth"
	"github.com/vidaplus/convenio-api/internal/platform/db"
	"github.com/vidaplus/convenio-api/internal/platform/gateway"
	"github.com/vidaplus/convenio-api/internal/platform/middleware"
	"github.com/vidaplus/convenio-api/internal/platform/notification"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:     "convenio-server",
		Short:   "Convenio appointment and settlement API server",
		Version: version,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	txRunner := db.NewPoolTxRunner(pool)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Public group: webhook and health checks carry no bearer token.
	public := e.Group("/api/v1")

	// Authenticated group
	apiV1 := e.Group("/api/v1")
	if cfg.IsDev() {
		apiV1.Use(auth.DevAuthMiddleware())
	} else {
		apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{
			SigningKey: []byte(cfg.JWTSigningKey),
			Issuer:     cfg.JWTIssuer,
			JWKSURL:    cfg.JWTJWKSURL,
		}))
	}

	// Platform services
	gwClient := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayAccessToken,
		time.Duration(cfg.GatewayTimeoutSecs)*time.Second)
	notifier := notification.NewService(notification.NewLogSender(logger))

	// Network registry
	memberRepo := network.NewPgMemberRepository(pool)
	dependentRepo := network.NewPgDependentRepository(pool)
	privateRepo := network.NewPgPrivatePatientRepository(pool)
	catalogRepo := network.NewPgCatalogRepository(pool)
	resolver := network.NewResolver(memberRepo, dependentRepo, privateRepo)
	subscriptions := network.NewSubscriptionService(memberRepo, dependentRepo)

	// Scheduling access ledger
	accessRepo := access.NewPgRepository(pool)
	accessSvc := access.NewService(accessRepo, txRunner)
	accessHandler := access.NewHandler(accessSvc)
	accessHandler.RegisterRoutes(apiV1)

	// Consultations
	consultationRepo := consultation.NewPgRepository(pool)
	consultationSvc := consultation.NewService(consultationRepo, resolver, catalogRepo, accessSvc)
	consultationHandler := consultation.NewHandler(consultationSvc)
	consultationHandler.RegisterRoutes(apiV1)

	// Billing
	billingRepo := billing.NewPgRepository(pool)
	issuer := billing.NewIssuer(billingRepo, gwClient, memberRepo, dependentRepo, billing.Config{
		SubscriptionPrice: cfg.SubscriptionPrice,
		DependentPrice:    cfg.DependentPrice,
		AgendaDailyRate:   cfg.AgendaDailyRate,
		CheckoutBaseURL:   cfg.CheckoutBaseURL,
		PublicBaseURL:     cfg.PublicBaseURL,
	})
	reconciler := billing.NewReconciler(gwClient, billingRepo, subscriptions, dependentRepo,
		accessSvc, notifier, txRunner, logger)
	billingHandler := billing.NewHandler(issuer, reconciler)
	billingHandler.RegisterRoutes(apiV1, public)

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool, version))

	// Start server
	addr := ":" + cfg.Port
	go func() {
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
	return nil
}
