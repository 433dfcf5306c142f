package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"hmsportal/docs"
	"hmsportal/internal/apiclient"
	"hmsportal/internal/auth"
	"hmsportal/internal/config"
	"hmsportal/internal/db"
	"hmsportal/internal/handler"
	"hmsportal/internal/metrics"
	"hmsportal/internal/middleware"
	"hmsportal/internal/model"
	"hmsportal/internal/repository"
	"hmsportal/internal/route"
	"hmsportal/internal/router"
	"hmsportal/internal/service"
	"hmsportal/internal/session"
	"hmsportal/internal/storage"
	"hmsportal/internal/telemetry"
)

// @title Hospital Portal API
// @version 1.0
// @description Session API of the hospital management portal. The portal identifies browsers by a signed client cookie.
// @BasePath /api
// @schemes http
func main() {
	rootCmd := &cobra.Command{
		Use:   "portal",
		Short: "Hospital management portal",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(routesCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the portal server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func routesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the route table",
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := route.Default(nil)
			if err != nil {
				return err
			}
			roleFlag, _ := cmd.Flags().GetString("role")

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PATH\tTITLE\tACCESS")
			if roleFlag != "" {
				role := model.NormalizeRole(roleFlag)
				for _, r := range handler.VisibleRoutes(table, role) {
					fmt.Fprintf(w, "%s\t%s\t%s\n", r.Path, r.Title, role)
				}
				return w.Flush()
			}
			for _, e := range table.Entries() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.Path, e.Title, access(e))
			}
			return w.Flush()
		},
	}
	cmd.Flags().String("role", "", "Only list pages this role may open (e.g. DOCTOR)")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the session storage table for the configured SQL driver",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			switch cfg.StorageDriver {
			case config.DriverMySQL:
				gormDB, err := db.NewMySQL(cfg.MySQLDSN)
				if err != nil {
					return err
				}
				if err := db.MigrateMySQL(gormDB); err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
			case config.DriverPostgres:
				pool, err := db.NewPostgres(ctx, cfg.DatabaseURL)
				if err != nil {
					return err
				}
				defer pool.Close()
				if err := storage.NewPostgres(pool).EnsureSchema(ctx); err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "Storage driver %q needs no migration.\n", cfg.StorageDriver)
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Session storage ready (%s).\n", cfg.StorageDriver)
			return nil
		},
	}
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Logger
	logger := newLogger(os.Stdout, cfg)

	ctx := context.Background()
	shutdownTracing := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: "hms-portal",
		Endpoint:    cfg.OTELEndpoint,
		Insecure:    cfg.OTELInsecure,
	}, logger)

	// Storage
	base, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("failed to open session storage")
	}
	defer closeStorage()
	logger.Info().Str("driver", cfg.StorageDriver).Msg("session storage ready")

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// Hospital API client
	client, err := apiclient.New(cfg.APIBaseURL, apiclient.WithObserver(collector.RecordAPIResponse))
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid API_BASE_URL")
	}

	sessions := session.NewRegistry(base, service.NewAuthService(client, cfg.AuthLoginPath), logger, collector, cfg.SessionIdleTTL)
	defer sessions.Stop()
	eject := sessions.Install(client)
	defer eject()

	table, err := route.Default(collector)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid route table")
	}

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		PerMinute: cfg.LoginRatePerMinute,
		Burst:     cfg.LoginBurst,
	})
	defer limiter.Stop()

	docs.SwaggerInfo.Host = cfg.SwaggerHost

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	if err := router.Register(
		e,
		cfg,
		logger,
		auth.NewJWTService(cfg.ClientSecret, cfg.ClientCookieTTL),
		limiter,
		registry,
		handler.NewAuthHandler(sessions, table, collector, cfg.RestoreWait),
		handler.NewPageHandler(table, sessions, client, collector, cfg.RestoreWait, cfg.PageLoadWait),
		handler.NewRoutesHandler(table, sessions, cfg.RestoreWait),
	); err != nil {
		logger.Fatal().Err(err).Msg("failed to register routes")
	}

	addr := ":" + cfg.ServerPort
	go func() {
		logger.Info().Str("addr", addr).Str("api", client.BaseURL()).Msg("portal listening")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("tracing shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newLogger writes JSON logs, or console output in development, at the
// configured level.
func newLogger(w io.Writer, cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		w = zerolog.ConsoleWriter{Out: w}
	}
	logger := zerolog.New(w).With().Timestamp().Logger()
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && cfg.LogLevel != "" {
		logger = logger.Level(level)
	}
	return logger
}

// openStorage connects the configured durable storage backend.
func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, func(), error) {
	switch cfg.StorageDriver {
	case config.DriverRedis:
		r := storage.NewRedis(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.StorageTTL)
		if err := r.Ping(ctx); err != nil {
			_ = r.Close()
			return nil, nil, err
		}
		return r, func() { _ = r.Close() }, nil
	case config.DriverMySQL:
		gormDB, err := db.NewMySQL(cfg.MySQLDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := db.MigrateMySQL(gormDB); err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			if sqlDB, err := gormDB.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return storage.NewSQL(repository.NewStoredValueRepository(gormDB)), closeDB, nil
	case config.DriverPostgres:
		pool, err := db.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		pg := storage.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pg, pool.Close, nil
	default:
		return storage.NewMemory(), func() {}, nil
	}
}

func access(e *route.Entry) string {
	switch {
	case e.Public:
		return "public"
	case len(e.AllowedRoles) == 0:
		return "any role"
	}
	names := make([]string, 0, len(e.AllowedRoles))
	for _, r := range e.AllowedRoles {
		names = append(names, string(r))
	}
	return strings.Join(names, ", ")
}
