package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/qlndemo/coffeerun/backend/internal/auth"
	"github.com/qlndemo/coffeerun/backend/internal/cache"
	"github.com/qlndemo/coffeerun/backend/internal/catalog"
	"github.com/qlndemo/coffeerun/backend/internal/config"
	"github.com/qlndemo/coffeerun/backend/internal/database"
	"github.com/qlndemo/coffeerun/backend/internal/ids"
	"github.com/qlndemo/coffeerun/backend/internal/logging"
	"github.com/qlndemo/coffeerun/backend/internal/orders"
	"github.com/qlndemo/coffeerun/backend/internal/roster"
	"github.com/qlndemo/coffeerun/backend/internal/server"
	"github.com/qlndemo/coffeerun/backend/internal/users"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "coffeerun-api",
		Short: "CoffeeRun office coffee-run coordinator backend",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("admin-email", defaults.GetString("auth.admin_email"), "Email promoted to admin on first login")
	cmd.PersistentFlags().String("frontend-url", defaults.GetString("frontend.url"), "Frontend base URL for magic links and CORS")
	cmd.PersistentFlags().String("signing-secret", "", "Session signing secret (overrides env)")
	cmd.PersistentFlags().Bool("redis-enabled", defaults.GetBool("redis.enabled"), "Enable the Redis shared-order cache")
	cmd.PersistentFlags().String("redis-addr", defaults.GetString("redis.addr"), "Redis address")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "auth.admin_email", "admin-email")
	bindFlag(cmd, "frontend.url", "frontend-url")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
	bindFlag(cmd, "redis.enabled", "redis-enabled")
	bindFlag(cmd, "redis.addr", "redis-addr")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	idProvider := ids.NewUUIDProvider()

	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	rosterService, err := roster.NewService(roster.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	orderService, err := orders.NewService(orders.ServiceConfig{
		Database:   db,
		Resolver:   rosterService,
		IDProvider: idProvider,
		Clock:      time.Now,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	userService, err := users.NewService(users.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		AdminEmail: appConfig.AdminEmail,
	})
	if err != nil {
		return err
	}

	magicLinks, err := auth.NewMagicLinks(auth.MagicLinkConfig{
		Database:   db,
		Accounts:   userService,
		IDProvider: idProvider,
		TTL:        appConfig.MagicLinkTTL,
		Clock:      time.Now,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	sessions, err := auth.NewSessions(auth.SessionsConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		CookieName:    appConfig.CookieName,
		TTL:           appConfig.SessionTTL,
	})
	if err != nil {
		return err
	}

	var mailer auth.Mailer
	if appConfig.ResendAPIKey != "" {
		mailer = auth.NewResendMailer(appConfig.ResendAPIKey, "CoffeeRun <noreply@ftt.qlndemo.com>")
	} else {
		mailer = auth.NewLogMailer(logger)
	}

	sharedCache, err := cache.NewRedisCache(cache.Config{
		Enabled:  appConfig.RedisEnabled,
		Addr:     appConfig.RedisAddr,
		Password: appConfig.RedisPassword,
		DB:       appConfig.RedisDB,
	}, logger)
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Sessions:      sessions,
		MagicLinks:    magicLinks,
		Mailer:        mailer,
		Accounts:      userService,
		Catalog:       catalogService,
		Roster:        rosterService,
		Orders:        orderService,
		SharedCache:   sharedCache,
		Logger:        logger,
		FrontendURL:   appConfig.FrontendURL,
		SecureCookies: appConfig.SecureCookies,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
