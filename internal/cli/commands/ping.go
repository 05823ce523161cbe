package commands

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fatih/color"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/gantry-web/gantry/internal/config"
)

// NewPingCommand creates the ping command
func NewPingCommand() *cobra.Command {
	var configDir string

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check connectivity to the configured backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(configDir)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			ok := color.New(color.FgGreen).FprintfFunc()
			fail := color.New(color.FgRed).FprintfFunc()

			if cfg.Database.URL == "" {
				return fmt.Errorf("database.url is not configured")
			}

			dbConn, err := sql.Open("postgres", cfg.Database.URL)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer dbConn.Close()

			if err := dbConn.PingContext(ctx); err != nil {
				fail(cmd.OutOrStdout(), "database: unreachable (%v)\n", err)
				return fmt.Errorf("database ping failed")
			}
			ok(cmd.OutOrStdout(), "database: ok\n")

			if cfg.Redis.Addr != "" {
				client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
				defer client.Close()

				if err := client.Ping(ctx).Err(); err != nil {
					fail(cmd.OutOrStdout(), "redis: unreachable (%v)\n", err)
					return fmt.Errorf("redis ping failed")
				}
				ok(cmd.OutOrStdout(), "redis: ok\n")
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&configDir, "config", "c", ".", "directory containing gantry.yml")
	return cmd
}
