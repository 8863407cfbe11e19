package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/vendorportal/pkg/logger"
	"github.com/angelmondragon/vendorportal/pkg/metrics"
)

// SweeperJobName labels the sweeper in job metrics and logs.
const SweeperJobName = "reservation_sweeper"

const (
	defaultSweepInterval = time.Minute
	defaultSweepBatch    = 100
)

// SweeperParams configure the reservation sweeper.
type SweeperParams struct {
	Logger    *logger.Logger
	Service   Service
	Lock      Lock
	Metrics   *metrics.JobMetrics
	Interval  time.Duration
	BatchSize int
}

// Sweeper expires held reservations whose deadline has passed.
type Sweeper struct {
	logg      *logger.Logger
	service   Service
	lock      Lock
	metrics   *metrics.JobMetrics
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

// NewSweeper builds a sweeper.
func NewSweeper(params SweeperParams) (*Sweeper, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Service == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	lock := params.Lock
	if lock == nil {
		lock = LocalLock{}
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	return &Sweeper{
		logg:      params.Logger,
		service:   params.Service,
		lock:      lock,
		metrics:   params.Metrics,
		interval:  interval,
		batchSize: batch,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Run sweeps immediately and then on every tick until ctx is canceled.
func (s *Sweeper) Run(ctx context.Context) error {
	ctx = s.logg.WithField(ctx, "job", SweeperJobName)
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "reservation sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.logg.Error(ctx, "reservation sweep failed", err)
	}
}

// RunOnce performs a single sweep and returns how many holds were expired.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Debug(ctx, "another instance holds the sweeper lock; skipping")
		return 0, nil
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "failed to release sweeper lock", relErr)
		}
	}()

	start := time.Now()
	released, err := s.service.ReleaseExpired(ctx, s.now(), s.batchSize)
	s.metrics.ObserveDuration(SweeperJobName, time.Since(start))
	s.metrics.AddItems(SweeperJobName, released)
	if err != nil {
		s.metrics.IncFailure(SweeperJobName)
		return released, err
	}
	s.metrics.IncSuccess(SweeperJobName)
	if released > 0 {
		s.logg.Info(s.logg.WithField(ctx, "released", released), "expired reservations released")
	}
	return released, nil
}
