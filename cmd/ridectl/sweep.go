package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"groupride/internal/app"
	"groupride/internal/config"
	internalRedis "groupride/internal/redis"
	"groupride/internal/repository/postgres"
	"groupride/internal/service"
)

func newSweepCmd() *cobra.Command {
	var (
		staleAfter time.Duration
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one archival sweep now",
		Long: `Archives every active ride whose start lies more than --stale-after in the
past, then prints how many rides were archived.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if staleAfter > 0 {
				cfg.Archive.StaleAfter = staleAfter
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return runSweep(ctx, cmd.OutOrStdout(), cfg)
		},
	}

	cmd.Flags().DurationVar(&staleAfter, "stale-after", 0, "override ARCHIVE_STALE_AFTER")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "maximum time to spend sweeping")
	return cmd
}

func runSweep(ctx context.Context, out io.Writer, cfg *config.Config) error {
	logger := app.NewLogger(cfg.App)

	loc, err := cfg.App.Location()
	if err != nil {
		return err
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nil)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	defer db.Close()

	var (
		cacheStore    internalRedis.RideCacheInterface
		locationStore internalRedis.RideLocationStoreInterface
		lockStore     internalRedis.LockStoreInterface
	)
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nil)
	if err != nil {
		logger.WithError(err).Warn("redis unavailable, sweeping without cache eviction or lock")
	} else if redisClient != nil {
		defer redisClient.Close()
		cacheStore = internalRedis.NewCacheStore(redisClient, cfg.Redis.CacheTTL)
		locationStore = internalRedis.NewLocationStore(redisClient)
		lockStore = internalRedis.NewLockStore(redisClient)
	}

	archiver := service.NewArchiveService(postgres.NewRideRepository(db), cacheStore, locationStore, lockStore, nil, logger, service.ArchiveOptions{
		StaleAfter: cfg.Archive.StaleAfter,
		Location:   loc,
		LockTTL:    cfg.Archive.LockTTL,
	})

	n, err := archiver.Sweep(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "archived %d ride(s) starting before %s\n", n, archiver.Cutoff().Format(service.DateTimeLayout))
	return nil
}
