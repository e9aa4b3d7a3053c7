package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/yukikurage/cms-resource-broker/internal/backend"
	"github.com/yukikurage/cms-resource-broker/internal/config"
	"github.com/yukikurage/cms-resource-broker/internal/constants"
	"github.com/yukikurage/cms-resource-broker/internal/database"
	"github.com/yukikurage/cms-resource-broker/internal/handlers"
	"github.com/yukikurage/cms-resource-broker/internal/logging"
	"github.com/yukikurage/cms-resource-broker/internal/metrics"
	"github.com/yukikurage/cms-resource-broker/internal/middleware"
	"github.com/yukikurage/cms-resource-broker/internal/repository"
	"github.com/yukikurage/cms-resource-broker/internal/services"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "broker",
	Short: "CMS resource broker",
	Long: `CMS resource broker

Serves projects, users, groups, resources and their metadata behind a
single access-checked facade.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE:  runMigrate,
}

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Create the built-in groups, users, online project and resource types",
	RunE:  runBootstrap,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML configuration file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(bootstrapCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger
func setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	log := logging.New().
		WithLevel(cfg.Logging.Level).
		WithFormat(cfg.Logging.Format).
		Make()
	return cfg, log, nil
}

// openStores opens the configured backend with the schema migrated
func openStores(cfg *config.Config) (*repository.Stores, error) {
	return backend.Open(cfg.Broker.Backend, backend.Options{
		Database: &cfg.Database,
		Migrate:  true,
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	stores, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := services.Bootstrap(ctx, stores, cfg.Broker, log); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	broker := services.NewResourceBroker(services.BrokerDeps{
		Stores:  stores,
		Logger:  log,
		Metrics: metrics.New(registry),
		Config:  cfg.Broker,
	})
	authService := services.NewAuthService(broker)

	gin.SetMode(cfg.Server.GinMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))

	store, err := sessionStore(cfg)
	if err != nil {
		return err
	}
	cookieName := cfg.Session.CookieName
	if cookieName == "" {
		cookieName = constants.DefaultSessionCookieName
	}
	r.Use(sessions.Sessions(cookieName, store))

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	handlers.RegisterRoutes(r, broker, authService)

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("backend", cfg.Broker.Backend).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// sessionStore builds the configured session backend
func sessionStore(cfg *config.Config) (sessions.Store, error) {
	var store sessions.Store
	switch cfg.Session.Store {
	case "redis":
		s, err := redisStore.NewStore(
			cfg.Redis.PoolSize,
			"tcp",
			cfg.Redis.Addr(),
			cfg.Redis.Password,
			[]byte(cfg.Session.Secret),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis store: %w", err)
		}
		store = s
	case "cookie":
		store = cookie.NewStore([]byte(cfg.Session.Secret))
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}

	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.Session.MaxAge,
		HttpOnly: true,
		Secure:   cfg.Server.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	db, err := database.Connect(&cfg.Database)
	if err != nil {
		return err
	}
	if err := database.MigrateDatabase(db); err != nil {
		return err
	}

	log.Info().Str("driver", cfg.Database.Driver).Msg("schema migrated")
	return nil
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	stores, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	return services.Bootstrap(cmd.Context(), stores, cfg.Broker, log)
}
