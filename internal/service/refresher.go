package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/codam/web-greeter/pkg/jobs"
)

// RefresherConfig tunes background cache refreshes.
type RefresherConfig struct {
	Interval   time.Duration
	Warmup     bool
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Refresher keeps the schedule cache warm by enqueueing refresh jobs at
// start-up and on a fixed interval.
type Refresher struct {
	svc      *SchedulingService
	queue    *jobs.Queue
	interval time.Duration
	warmup   bool
	logger   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRefresher wires a job queue to svc.
func NewRefresher(svc *SchedulingService, cfg RefresherConfig) *Refresher {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	queue := jobs.NewQueue("schedule-refresh", svc.HandleRefreshJob, jobs.QueueConfig{
		Workers:    2,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     cfg.Logger,
	})
	return &Refresher{
		svc:      svc,
		queue:    queue,
		interval: cfg.Interval,
		warmup:   cfg.Warmup,
		logger:   cfg.Logger,
	}
}

// Start launches the queue, performs the optional warmup and the ticker.
func (r *Refresher) Start(ctx context.Context) {
	if !r.svc.DataSourceConfigured() {
		r.logger.Warn("data source not configured, background refresh disabled")
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.queue.Start(ctx)

	if r.warmup {
		r.Warmup()
	}
	if r.interval <= 0 {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Warmup()
			}
		}
	}()
}

// Warmup enqueues a refresh of events and exams. Keys already pending are skipped.
func (r *Refresher) Warmup() {
	for _, key := range []string{CacheKeyEvents, CacheKeyExams} {
		if _, err := r.queue.Enqueue(key); err != nil {
			r.logger.Warn("failed to enqueue refresh", zap.String("key", key), zap.Error(err))
		}
	}
}

// Stop cancels the ticker and drains the queue workers.
func (r *Refresher) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	r.wg.Wait()
	r.queue.Stop()
}
