package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"groupride/internal/app"
	"groupride/internal/config"
	"groupride/internal/handler"
	"groupride/internal/jobs"
	internalRedis "groupride/internal/redis"
	"groupride/internal/repository/postgres"
	"groupride/internal/service"
)

func main() {
	cfg := config.Load()
	logger := app.NewLogger(cfg.App)

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// New Relic first so the database and Redis clients get instrumented.
	nrApp := app.NewNewRelic(cfg.NewRelic, logger)
	if nrApp != nil {
		defer nrApp.Shutdown(5 * time.Second)
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()
	logger.Info("connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
		logger.Info("connected to Redis")
	} else {
		logger.Warn("redis disabled: no ride cache, location search or sweep lock")
	}

	server, archiveJob, err := wireServer(db, redisClient, nrApp, logger, cfg)
	if err != nil {
		logger.WithError(err).Fatal("failed to wire server")
	}

	if archiveJob != nil {
		if err := archiveJob.Start(); err != nil {
			logger.WithError(err).Fatal("failed to start archive job")
		}
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}

	if archiveJob != nil {
		if err := archiveJob.Stop(shutdownCtx); err != nil {
			logger.WithError(err).Error("archive job did not stop cleanly")
		}
	}

	logger.Info("server exited")
}

// wireServer wires all dependencies and returns the HTTP server and the
// archival job (nil when archiving is disabled).
func wireServer(
	db *sqlx.DB,
	redisClient *redis.Client,
	nrApp *newrelic.Application,
	logger *logrus.Logger,
	cfg *config.Config,
) (*http.Server, *jobs.ArchiveJob, error) {
	loc, err := cfg.App.Location()
	if err != nil {
		return nil, nil, err
	}

	// Redis-backed stores stay nil interfaces when Redis is off.
	var (
		cacheStore    internalRedis.RideCacheInterface
		locationStore internalRedis.RideLocationStoreInterface
		lockStore     internalRedis.LockStoreInterface
	)
	if redisClient != nil {
		cacheStore = internalRedis.NewCacheStore(redisClient, cfg.Redis.CacheTTL)
		locationStore = internalRedis.NewLocationStore(redisClient)
		lockStore = internalRedis.NewLockStore(redisClient)
	}

	rideRepo := postgres.NewRideRepository(db)
	participantRepo := postgres.NewParticipantRepository(db)
	commentRepo := postgres.NewCommentRepository(db)
	userRepo := postgres.NewUserRepository(db)

	rideService := service.NewRideService(rideRepo, participantRepo, cacheStore, locationStore, logger)
	participantService := service.NewParticipantService(rideRepo, participantRepo, logger)
	commentService := service.NewCommentService(rideRepo, commentRepo)
	userService := service.NewUserService(userRepo)

	router, err := app.NewRouter(app.RouterDeps{
		RideHandler:        handler.NewRideHandler(rideService),
		ParticipantHandler: handler.NewParticipantHandler(participantService),
		CommentHandler:     handler.NewCommentHandler(commentService),
		UserHandler:        handler.NewUserHandler(userService),
		RedisClient:        redisClient,
		NewRelicApp:        nrApp,
		Logger:             logger,
		Config:             cfg,
	})
	if err != nil {
		return nil, nil, err
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if !cfg.Archive.Enabled {
		return server, nil, nil
	}

	archiveService := service.NewArchiveService(rideRepo, cacheStore, locationStore, lockStore, nrApp, logger, service.ArchiveOptions{
		StaleAfter: cfg.Archive.StaleAfter,
		Location:   loc,
		LockTTL:    cfg.Archive.LockTTL,
	})

	return server, jobs.NewArchiveJob(archiveService, cfg.Archive.Interval, logger), nil
}
