package main

import (
	"context"
	"fmt"
	"time"

	"github.com/aleister1102/resourcewatch/internal/bot"
	"github.com/aleister1102/resourcewatch/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	maintenanceArchiveCleanup = "archive_cleanup"
	maintenanceStats          = "stats_aggregation"
	statsAggregationInterval  = time.Hour
)

func newRunCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler, bot and health server until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd.Context())
		},
	}
}

func (c *cli) run(ctx context.Context) error {
	logger := c.logger.With().Str("component", "Main").Logger()
	logger.Info().Msg("resourcewatch starting")

	a, err := newApp(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer a.close()

	restored, err := a.scheduler.Rehydrate(ctx, a.store)
	if err != nil {
		return err
	}

	cleanupEvery := time.Duration(c.cfg.StorageConfig.ArchiveCleanupIntervalHours) * time.Hour
	if err := a.scheduler.AddJob(maintenanceArchiveCleanup, cleanupEvery, a.tracker.CleanupArchives); err != nil {
		return err
	}
	if err := a.scheduler.AddJob(maintenanceStats, statsAggregationInterval, a.tracker.ReportTargets); err != nil {
		return err
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	logger.Info().Int("targets", restored).Msg("Scheduler running")

	g, gctx := errgroup.WithContext(ctx)

	if c.cfg.ServerConfig.Enabled {
		srv := server.NewServer(c.cfg.ServerConfig, a.metrics.Handler(), c.logger)
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	if c.cfg.BotConfig.Enabled {
		handlers := bot.NewHandlers(a.tracker, a.http, c.logger).WithStatusSource(a.scheduler)
		b, err := bot.NewBot(c.cfg.BotConfig, handlers, c.logger)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return b.Start(gctx)
		})
	} else {
		logger.Warn().Msg("Discord bot is disabled; targets can only be managed with import")
	}

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	err = g.Wait()
	logger.Info().Msg("Shutting down")
	return err
}
