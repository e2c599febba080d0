package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultArchiveInterval is how often the archival sweep runs.
const DefaultArchiveInterval = 24 * time.Hour

// ErrAlreadyStarted is returned when Start is called twice.
var ErrAlreadyStarted = errors.New("archive job already started")

// Sweeper performs one archival sweep. Implementations handle their own errors.
type Sweeper interface {
	Run(ctx context.Context)
}

// ArchiveJob schedules the archival sweep for the lifetime of the process.
// Sweeps never overlap: scheduled, startup and manual runs are serialized.
type ArchiveJob struct {
	sweeper  Sweeper
	logger   *logrus.Logger
	interval time.Duration

	cron *cron.Cron
	job  cron.Job

	runMu sync.Mutex
	wg    sync.WaitGroup

	mu      sync.Mutex
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewArchiveJob creates a new ArchiveJob. A non-positive interval uses DefaultArchiveInterval.
func NewArchiveJob(sweeper Sweeper, interval time.Duration, logger *logrus.Logger) *ArchiveJob {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if interval <= 0 {
		interval = DefaultArchiveInterval
	}

	cl := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())

	j := &ArchiveJob{
		sweeper:  sweeper,
		logger:   logger,
		interval: interval,
		cron:     cron.New(cron.WithLogger(cl)),
		ctx:      ctx,
		cancel:   cancel,
	}
	j.job = cron.NewChain(cron.Recover(cl), cron.DelayIfStillRunning(cl)).
		Then(cron.FuncJob(func() { j.RunOnce(j.ctx) }))

	return j
}

// Start runs one sweep immediately in the background, then schedules a sweep
// every interval.
func (j *ArchiveJob) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.started {
		return ErrAlreadyStarted
	}
	j.started = true

	j.cron.Schedule(cron.Every(j.interval), j.job)

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		j.job.Run()
	}()

	j.cron.Start()
	j.logger.WithField("interval", j.interval.String()).Info("archive job started")
	return nil
}

// Stop halts scheduling and waits for an in-flight sweep to finish or for
// ctx to expire, whichever comes first.
func (j *ArchiveJob) Stop(ctx context.Context) error {
	j.mu.Lock()
	started := j.started
	j.started = false
	j.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		<-j.cron.Stop().Done()
		j.wg.Wait()
		close(done)
	}()

	defer j.cancel()

	select {
	case <-done:
		j.logger.Info("archive job stopped")
		return nil
	case <-ctx.Done():
		j.logger.Warn("archive job stop timed out, cancelling in-flight sweep")
		return ctx.Err()
	}
}

// RunOnce performs a sweep synchronously, waiting for any sweep already in progress.
func (j *ArchiveJob) RunOnce(ctx context.Context) {
	j.runMu.Lock()
	defer j.runMu.Unlock()

	started := time.Now()
	j.sweeper.Run(ctx)
	j.logger.WithField("duration", time.Since(started).String()).Debug("archive sweep finished")
}

// Interval returns the time between scheduled sweeps.
func (j *ArchiveJob) Interval() time.Duration {
	return j.interval
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct {
	logger *logrus.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(toFields(keysAndValues)).Debug("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithError(err).WithFields(toFields(keysAndValues)).Error("cron: " + msg)
}

func toFields(keysAndValues []interface{}) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}
