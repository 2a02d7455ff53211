package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"fitquest-api/config"
	"fitquest-api/logging"
	"fitquest-api/store"
	"fitquest-api/store/gormstore"
	"fitquest-api/store/memstore"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := newServeCmd()
	root := &cobra.Command{
		Use:           "fitquest",
		Short:         "FitQuest API: missions, workouts, XP and achievements",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.AddCommand(serve, newMigrateCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL environment variable not set")
			}
			logger, err := logging.New(cfg.LogLevel, cfg.Development())
			if err != nil {
				return err
			}
			defer logger.Sync()

			st, err := gormstore.Open(cmd.Context(), cfg.DatabaseURL, cfg.DBConnectTimeout)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := gormstore.Migrate(st.DB); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}
			logger.Info("database migrated")
			return nil
		},
	}
}

// openStore picks the data source. With FALLBACK_TO_MOCK a live database
// that cannot be reached degrades to the seeded mock dataset.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, string, func(), error) {
	noop := func() {}
	mock := func(source string) (store.Store, string, func(), error) {
		st, err := memstore.NewSeeded()
		if err != nil {
			return nil, "", noop, fmt.Errorf("seed mock data: %w", err)
		}
		return st, source, noop, nil
	}

	if cfg.DataSource == config.DataSourceMock {
		logger.Info("serving mock dataset", zap.String("demo_user_id", memstore.DemoUserID))
		return mock(string(config.DataSourceMock))
	}

	var st *gormstore.Store
	err := errors.New("DATABASE_URL environment variable not set")
	if cfg.DatabaseURL != "" {
		st, err = gormstore.Open(ctx, cfg.DatabaseURL, cfg.DBConnectTimeout)
	}
	if err == nil {
		err = gormstore.Migrate(st.DB)
		if err != nil {
			_ = st.Close()
			err = fmt.Errorf("failed to migrate database: %w", err)
		}
	}
	if err != nil {
		if !cfg.FallbackToMock {
			return nil, "", noop, err
		}
		logger.Warn("database unavailable, falling back to mock dataset", zap.Error(err))
		return mock("mock-fallback")
	}
	closeFn := func() {
		if err := st.Close(); err != nil {
			logger.Warn("close database", zap.Error(err))
		}
	}
	return st, string(config.DataSourceLive), closeFn, nil
}
