// Command tokenbot runs the 1Shot token deployment Telegram bot.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/m3rciful/tokenbot/core/buildinfo"
	corecmd "github.com/m3rciful/tokenbot/core/cmd"
	coreconfig "github.com/m3rciful/tokenbot/core/config"
	coredatabase "github.com/m3rciful/tokenbot/core/database"
	"github.com/m3rciful/tokenbot/core/logger"
	"github.com/m3rciful/tokenbot/internal/app"
	"github.com/m3rciful/tokenbot/internal/store"
)

const defaultConfigPath = "config.yaml"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "tokenbot",
		Short:         "Telegram bot deploying ERC-20 tokens through 1Shot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to the YAML config (default $"+corecmd.DefaultConfigEnvVar+" or "+defaultConfigPath+")")

	runOpts := func() corecmd.Options {
		return corecmd.Options{
			ConfigPath:        configPath,
			DefaultConfigPath: defaultConfigPath,
			Bootstrap: func(ctx context.Context, cfg *coreconfig.Config) (corecmd.TelegramApp, error) {
				return app.Bootstrap(ctx, cfg)
			},
		}
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Provision the deployer method and run the bot",
		RunE: func(*cobra.Command, []string) error {
			return corecmd.Run(runOpts())
		},
	}

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(*cobra.Command, []string) error {
			cfg, err := corecmd.LoadConfig(runOpts())
			if err != nil {
				return err
			}
			if cfg.Database.Driver == "" {
				return errors.New("migrate: database.driver is not configured")
			}
			if err := logger.InitLogger(cfg); err != nil {
				return err
			}
			defer func() { _ = logger.Shutdown() }()
			return coredatabase.RunMigrations(cfg.Database, store.Migrations, store.MigrationsDir)
		},
	}

	version := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "tokenbot "+buildinfo.String())
		},
	}

	root.AddCommand(serve, migrate, version)
	root.RunE = serve.RunE
	return root
}
