package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fitquest-api/config"
	"fitquest-api/handlers"
	"fitquest-api/logging"
	"fitquest-api/services"
	"fitquest-api/utils"
	"fitquest-api/workers"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.LogLevel, cfg.Development())
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	st, source, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	var photos services.PhotoStore
	if cfg.R2.Enabled() {
		r2, err := utils.NewR2Store(ctx, utils.R2Options{
			AccountID:       cfg.R2.AccountID,
			AccessKeyID:     cfg.R2.AccessKeyID,
			AccessKeySecret: cfg.R2.AccessKeySecret,
			Bucket:          cfg.R2.Bucket,
			CDNBaseURL:      cfg.R2.CDNBaseURL,
		})
		if err != nil {
			return err
		}
		photos = r2
	} else {
		logger.Warn("R2 not configured, avatar uploads disabled")
	}

	tokens := utils.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	hub := services.NewHub(logger)

	achievements := services.NewAchievementService(st, hub, logger)
	watcher := services.NewAchievementWatcher(st, achievements, logger)
	missions := services.NewMissionService(st, hub, logger)
	workouts := services.NewWorkoutService(st, hub, logger)
	steps := services.NewStepService(st, cfg.StepThreshold, cfg.StepCooldown, logger)
	missions.Stats = watcher
	workouts.Stats = watcher
	steps.Stats = watcher
	users := services.NewUserService(st, tokens, photos, logger)
	progression := services.NewProgressionService(st, logger)
	sessions := services.NewSessions(hub, watcher, steps, logger)

	app := handlers.NewApp(handlers.Deps{
		Missions:       missions,
		Workouts:       workouts,
		Users:          users,
		Achievements:   achievements,
		Steps:          steps,
		Progression:    progression,
		Sessions:       sessions,
		Hub:            hub,
		Tokens:         tokens,
		DataSource:     source,
		ServiceToken:   cfg.ServiceToken,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	})

	sched, err := workers.NewScheduler(watcher, progression, workers.Options{
		PollInterval:  cfg.AchievementPollInterval,
		StreakResetAt: cfg.StreakResetAt,
	}, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sched.Start()
		<-gctx.Done()
		return sched.Shutdown()
	})
	g.Go(func() error {
		logger.Info("server listening",
			zap.String("port", cfg.Port),
			zap.String("data_source", source),
			zap.String("api_base_url", cfg.APIBaseURL),
			zap.Strings("allowed_origins", cfg.AllowedOrigins))
		if err := app.Listen(":" + cfg.Port); err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})
	return g.Wait()
}
