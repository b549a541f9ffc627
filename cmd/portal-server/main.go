package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/carebridge/carebridge/internal/config"
	"github.com/carebridge/carebridge/internal/domain/appointment"
	"github.com/carebridge/carebridge/internal/domain/identity"
	"github.com/carebridge/carebridge/internal/domain/prescription"
	"github.com/carebridge/carebridge/internal/domain/verification"
	"github.com/carebridge/carebridge/internal/platform/auth"
	"github.com/carebridge/carebridge/internal/platform/db"
	"github.com/carebridge/carebridge/internal/platform/metrics"
	"github.com/carebridge/carebridge/internal/platform/middleware"
	"github.com/carebridge/carebridge/internal/platform/render"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "portal-server",
		Short: "Patient/doctor portal API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(adminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the portal API server",
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
			if dir == "" {
				dir = cfg.MigrationsDir
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
	upCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
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
			if dir == "" {
				dir = cfg.MigrationsDir
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
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
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
	statusCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

// adminCmd manages capability grants from the command line. The first admin
// grant has to happen here, before any HTTP-based administration is possible.
func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage capability grants",
	}

	withStore := func(run func(ctx context.Context, store auth.CapabilityStore, identityID uuid.UUID, capability string) error) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			rawID, _ := cmd.Flags().GetString("identity")
			capability, _ := cmd.Flags().GetString("capability")

			identityID, err := uuid.Parse(rawID)
			if err != nil {
				return fmt.Errorf("--identity must be a valid UUID")
			}
			if capability != auth.CapabilityDoctor && capability != auth.CapabilityAdmin {
				return fmt.Errorf("--capability must be %q or %q", auth.CapabilityDoctor, auth.CapabilityAdmin)
			}

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

			return run(ctx, auth.NewCapabilityStorePG(pool), identityID, capability)
		}
	}

	grantCmd := &cobra.Command{
		Use:   "grant",
		Short: "Grant a capability to an identity",
		RunE: withStore(func(ctx context.Context, store auth.CapabilityStore, identityID uuid.UUID, capability string) error {
			if err := store.Grant(ctx, identityID, capability); err != nil {
				return err
			}
			fmt.Printf("Granted %q to %s\n", capability, identityID)
			return nil
		}),
	}
	grantCmd.Flags().String("identity", "", "Identity UUID")
	grantCmd.Flags().String("capability", "", "Capability name (doctor or admin)")
	cmd.AddCommand(grantCmd)

	revokeCmd := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke a capability from an identity",
		RunE: withStore(func(ctx context.Context, store auth.CapabilityStore, identityID uuid.UUID, capability string) error {
			if err := store.Revoke(ctx, identityID, capability); err != nil {
				return err
			}
			fmt.Printf("Revoked %q from %s\n", capability, identityID)
			return nil
		}),
	}
	revokeCmd.Flags().String("identity", "", "Identity UUID")
	revokeCmd.Flags().String("capability", "", "Capability name (doctor or admin)")
	cmd.AddCommand(revokeCmd)

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

	// Metrics
	m := metrics.New()
	m.RegisterPoolStats(
		func() int32 { return pool.Stat().AcquiredConns() },
		func() int32 { return pool.Stat().TotalConns() },
	)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(m.Middleware())
	e.Use(middleware.Audit(logger))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	// Authenticated API group
	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(rateLimitCfg))
	if cfg.IsDev() {
		apiV1.Use(auth.DevAuthMiddleware())
	} else {
		apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
		}))
	}
	apiV1.Use(db.TxMiddleware(pool))

	// Health and metrics
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/metrics", m.Handler())

	// -- Wire domain services --

	capStore := auth.NewCapabilityStorePG(pool)

	profileRepo := identity.NewProfileRepo(pool)
	identitySvc := identity.NewService(profileRepo)
	identityHandler := identity.NewHandler(identitySvc)
	identityHandler.RegisterRoutes(apiV1.Group("/profiles"))

	apptRepo := appointment.NewRepo(pool)
	apptSvc := appointment.NewService(apptRepo, identitySvc)
	apptHandler := appointment.NewHandler(apptSvc, identitySvc, m)
	apptHandler.RegisterRoutes(apiV1.Group("/appointments"))

	renderer := render.NewClient(cfg.RendererURL)
	if !renderer.Enabled() {
		logger.Warn().Msg("RENDERER_URL not set; printable documents are disabled")
	}

	rxRepo := prescription.NewRepo(pool)
	rxSvc := prescription.NewService(rxRepo, capStore, identitySvc, apptSvc)
	rxHandler := prescription.NewHandler(rxSvc, identitySvc, renderer, m)
	rxHandler.RegisterRoutes(apiV1.Group("/prescriptions"))

	// Anonymous verification: rate limited, no auth in front of it.
	verifySvc := verification.NewService(rxRepo, identitySvc)
	verifyHandler := verification.NewHandler(verifySvc, m)
	e.GET("/verify", verifyHandler.Verify, middleware.RateLimit(rateLimitCfg))

	// Capability administration. The role gate is a coarse filter; the
	// handler re-checks the admin capability against the store on every call.
	capHandler := &capabilityHandler{store: capStore}
	capGroup := apiV1.Group("/capabilities", auth.RequireRole("admin"))
	capGroup.POST("/grant", capHandler.Grant)
	capGroup.POST("/revoke", capHandler.Revoke)
	capGroup.GET("/:id", capHandler.List)

	// Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}
