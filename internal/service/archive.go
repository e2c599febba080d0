package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"

	"groupride/internal/redis"
	"groupride/internal/repository"
)

const (
	// DefaultStaleAfter is how long after its start a ride stays active.
	DefaultStaleAfter = 24 * time.Hour

	archiveLockName       = "archive-sweep"
	archiveTransaction    = "archive-sweep"
	defaultArchiveLockTTL = 10 * time.Minute
)

// ArchiveOptions tunes the archival sweep.
type ArchiveOptions struct {
	StaleAfter time.Duration
	Location   *time.Location
	LockTTL    time.Duration
}

// ArchiveService moves rides whose start lies more than StaleAfter in the
// past from active to archived.
type ArchiveService struct {
	rideRepo  repository.RideRepository
	cache     redis.RideCacheInterface
	locations redis.RideLocationStoreInterface
	lock      redis.LockStoreInterface
	nrApp     *newrelic.Application
	logger    *logrus.Logger

	staleAfter time.Duration
	loc        *time.Location
	lockTTL    time.Duration
	now        func() time.Time
}

// NewArchiveService creates a new ArchiveService. cache, locations, lock and
// nrApp may be nil.
func NewArchiveService(
	rideRepo repository.RideRepository,
	cache redis.RideCacheInterface,
	locations redis.RideLocationStoreInterface,
	lock redis.LockStoreInterface,
	nrApp *newrelic.Application,
	logger *logrus.Logger,
	opts ArchiveOptions,
) *ArchiveService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = DefaultStaleAfter
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultArchiveLockTTL
	}

	return &ArchiveService{
		rideRepo:   rideRepo,
		cache:      cache,
		locations:  locations,
		lock:       lock,
		nrApp:      nrApp,
		logger:     logger,
		staleAfter: opts.StaleAfter,
		loc:        opts.Location,
		lockTTL:    opts.LockTTL,
		now:        time.Now,
	}
}

// SetClock replaces the time source.
func (s *ArchiveService) SetClock(now func() time.Time) {
	s.now = now
}

// Cutoff returns the wall-clock instant before which active rides are stale.
func (s *ArchiveService) Cutoff() time.Time {
	n := s.now().In(s.loc)
	wall := time.Date(n.Year(), n.Month(), n.Day(), n.Hour(), n.Minute(), n.Second(), n.Nanosecond(), time.UTC)
	return wall.Add(-s.staleAfter)
}

// Run performs one sweep and logs the outcome. Errors never propagate; the
// next scheduled run retries.
func (s *ArchiveService) Run(ctx context.Context) {
	n, err := s.Sweep(ctx)
	if err != nil {
		s.logger.WithError(err).Error("archive sweep failed")
		return
	}
	s.logger.WithField("archived", n).Info("archive sweep completed")
}

// Sweep archives every stale active ride and returns how many were archived.
// It returns zero without error when another replica holds the sweep lock.
func (s *ArchiveService) Sweep(ctx context.Context) (int, error) {
	if s.nrApp != nil {
		txn := s.nrApp.StartTransaction(archiveTransaction)
		defer txn.End()
		ctx = newrelic.NewContext(ctx, txn)
	}

	if s.lock != nil {
		token, ok, err := s.lock.Acquire(ctx, archiveLockName, s.lockTTL)
		switch {
		case err != nil:
			s.logger.WithError(err).Warn("archive lock unavailable, sweeping without it")
		case !ok:
			s.logger.Info("archive sweep already running elsewhere, skipping")
			return 0, nil
		default:
			defer func() {
				err := s.lock.Release(context.WithoutCancel(ctx), archiveLockName, token)
				switch {
				case errors.Is(err, redis.ErrLockNotHeld):
					s.logger.WithField("ttl", s.lockTTL).Warn("archive lock expired before the sweep finished")
				case err != nil:
					s.logger.WithError(err).Warn("failed to release archive lock")
				}
			}()
		}
	}

	cutoff := s.Cutoff()
	ids, err := s.rideRepo.ArchiveStale(ctx, cutoff)
	if err != nil {
		if txn := newrelic.FromContext(ctx); txn != nil {
			txn.NoticeError(err)
		}
		return 0, fmt.Errorf("archive rides before %s: %w", cutoff.Format(DateTimeLayout), err)
	}

	if txn := newrelic.FromContext(ctx); txn != nil {
		txn.AddAttribute("archived", len(ids))
	}

	if len(ids) > 0 {
		if s.cache != nil {
			if err := s.cache.InvalidateRides(ctx, ids...); err != nil {
				s.logger.WithError(err).Warn("failed to evict archived rides from cache")
			}
		}
		if s.locations != nil {
			if err := s.locations.RemoveRides(ctx, ids...); err != nil {
				s.logger.WithError(err).Warn("failed to remove archived rides from location index")
			}
		}
	}

	return len(ids), nil
}
