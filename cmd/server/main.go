package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/condohub/billing/internal/api"
	cronapi "github.com/condohub/billing/internal/api/cron"
	"github.com/condohub/billing/internal/cache"
	"github.com/condohub/billing/internal/config"
	"github.com/condohub/billing/internal/integration"
	"github.com/condohub/billing/internal/logger"
	"github.com/condohub/billing/internal/migrations"
	"github.com/condohub/billing/internal/postgres"
	"github.com/condohub/billing/internal/publisher"
	"github.com/condohub/billing/internal/repository"
	"github.com/condohub/billing/internal/s3"
	"github.com/condohub/billing/internal/sentry"
	"github.com/condohub/billing/internal/service"
	"github.com/condohub/billing/internal/types"
	"github.com/condohub/billing/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			validator.NewValidator,
			config.NewConfig,
			logger.NewLogger,
			cache.NewCache,
			s3.NewService,
		),
		sentry.Module(),
		postgres.Module(),
		repository.Module(),
		publisher.Module(),
		integration.Module(),
	)

	opts = append(opts,
		service.Module(),
		api.Module(),
		fx.Invoke(
			runMigrations,
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func runMigrations(lc fx.Lifecycle, cfg *config.Configuration, db *postgres.DB, log *logger.Logger) {
	if !cfg.Postgres.AutoMigrate {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Applying database migrations...")
			return migrations.Up(ctx, db.DB.DB, log)
		},
	})
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	dunning *cronapi.DunningHandler,
	sentryService *sentry.Service,
	db *postgres.DB,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal:
		startAPIServer(lc, r, cfg, log)
		startScheduler(lc, dunning, sentryService, cfg, log)
	case types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
	case types.ModeScheduler:
		startScheduler(lc, dunning, sentryService, cfg, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			db.Close()
			return nil
		},
	})
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("Starting API server...", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return srv.Shutdown(ctx)
		},
	})
}

// startScheduler runs the overdue sweep and the dunning engine on the
// configured cron schedule. Ticks never overlap.
func startScheduler(
	lc fx.Lifecycle,
	dunning *cronapi.DunningHandler,
	sentryService *sentry.Service,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	if !cfg.Billing.DunningEnabled {
		log.Info("Dunning scheduler disabled")
		return
	}

	scheduler := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_, err := scheduler.AddFunc(cfg.Billing.DunningSchedule, func() {
				runCtx := types.SetRequestID(context.Background(), types.GenerateRequestID())
				resp, err := dunning.Run(runCtx, time.Now().UTC())
				if err != nil {
					log.Errorw("scheduled dunning failed", "error", err)
					sentryService.CaptureException(err)
					return
				}
				log.Infow("scheduled dunning completed",
					"marked_past_due", len(resp.Overdue.MarkedIDs),
					"processed", resp.Dunning.Processed,
					"suspended", resp.Dunning.Suspended,
					"failed", len(resp.Dunning.Failed),
				)
			})
			if err != nil {
				return err
			}
			log.Infow("Starting dunning scheduler", "schedule", cfg.Billing.DunningSchedule)
			scheduler.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Stopping dunning scheduler...")
			select {
			case <-scheduler.Stop().Done():
			case <-ctx.Done():
			}
			return nil
		},
	})
}
