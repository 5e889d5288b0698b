// Package maintenance runs the two periodic background jobs that keep
// the cache and the published store gauges current: expired-entry
// eviction and a conversation/message/size refresh.
package maintenance

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/convoarchive/convoarchive/internal/metrics"
	"github.com/convoarchive/convoarchive/internal/store"
)

const defaultInterval = 60 * time.Second

// Evictor is satisfied by any cache.Cache instantiation.
type Evictor interface {
	EvictExpired() int
}

// StatsSource reports the counts the size-refresh job publishes as
// gauges.
type StatsSource interface {
	CountStats(ctx context.Context, path string) (store.Stats, error)
}

// Runner owns the single ticker goroutine that runs both jobs.
type Runner struct {
	evictors []Evictor
	stats    StatsSource
	storePath string
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New returns a Runner that evicts expired entries from every evictor and
// refreshes the store-size gauges from stats, both every interval (0
// means defaultInterval).
func New(evictors []Evictor, stats StatsSource, storePath string, interval time.Duration, logger *zap.Logger) *Runner {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Runner{
		evictors:  evictors,
		stats:     stats,
		storePath: storePath,
		interval:  interval,
		logger:    logger,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start launches the background ticker. Returns immediately.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	r.logger.Info("starting background maintenance", zap.Duration("interval", r.interval))
	go r.run(ctx)
}

// Stop halts the ticker and waits for the in-flight tick to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	close(r.stopCh)
	<-r.doneCh

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

func (r *Runner) run(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	r.evictExpired()
	r.refreshStats(ctx)
}

func (r *Runner) evictExpired() {
	total := 0
	for _, e := range r.evictors {
		total += e.EvictExpired()
	}
	if total > 0 {
		r.logger.Debug("evicted expired cache entries", zap.Int("count", total))
	}
}

func (r *Runner) refreshStats(ctx context.Context) {
	st, err := r.stats.CountStats(ctx, r.storePath)
	if err != nil {
		r.logger.Warn("store stats refresh failed", zap.Error(err))
		return
	}
	metrics.ConversationsCount.Set(float64(st.Conversations))
	metrics.MessagesCount.Set(float64(st.Messages))
	metrics.DatabaseSizeBytes.Set(float64(st.DatabaseSizeBytes))
}
