package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gantry-web/gantry/internal/config"
	"github.com/gantry-web/gantry/internal/db"
	"github.com/gantry-web/gantry/internal/demo"
	"github.com/gantry-web/gantry/internal/web/auth"
	"github.com/gantry-web/gantry/internal/web/middleware"
	"github.com/gantry-web/gantry/internal/web/ratelimit"
	"github.com/gantry-web/gantry/internal/web/server"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	var configDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Build the application and start the HTTP server",
		Long: `Builds the application from its declarations and starts serving.
The build phase validates every query, provider and route; any
diagnostic aborts startup before the listener opens.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(configDir)
			if err != nil {
				return err
			}

			logger, err := newLogger(cfg.Log)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if cfg.Database.URL == "" {
				return fmt.Errorf("database.url is not configured")
			}
			if cfg.Auth.Secret == "" {
				return fmt.Errorf("auth.secret is not configured")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			pool, err := db.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}

			opts := demo.Options{
				Auth:   auth.NewService(cfg.Auth.Secret, cfg.Auth.TokenTTL),
				Logger: logger,
			}

			var redisClient *redis.Client
			if cfg.Redis.RateLimit > 0 {
				redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
				limiter, err := ratelimit.NewRedisLimiter(ratelimit.RedisConfig{
					Client: redisClient,
					Limit:  cfg.Redis.RateLimit,
					Window: cfg.Redis.RateWindow,
				})
				if err != nil {
					return err
				}
				opts.Limiter = limiter
			}

			table, err := demo.Build(pool, opts)
			if err != nil {
				return err
			}

			handler := middleware.NewChain(
				middleware.RequestID(),
				middleware.Logging(logger),
				middleware.Recovery(logger),
			).Then(table)

			serverCfg := server.DefaultConfig()
			serverCfg.Address = cfg.Server.Addr()
			serverCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout

			srv, err := server.New(handler, serverCfg, logger)
			if err != nil {
				return err
			}
			srv.OnShutdown(func(ctx context.Context) error {
				pool.Close()
				return nil
			})
			if redisClient != nil {
				srv.OnShutdown(func(ctx context.Context) error {
					return redisClient.Close()
				})
			}

			logger.Info("application built",
				zap.Int("routes", table.Len()),
				zap.String("addr", cfg.Server.Addr()),
			)
			return srv.Start()
		},
	}

	cmd.Flags().StringVarP(&configDir, "config", "c", ".", "directory containing gantry.yml")
	return cmd
}
