// Package worker runs the background reconciliation sweep: a pool of
// workers that periodically recomputes unread counters from the message
// ground truth and heals any drift left behind by failed sends or
// racing writes.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"portal-server/services/portal-api/internal/domain/chat"
	"portal-server/services/portal-api/internal/infrastructure/metrics"
)

// Pool manages the reconciliation workers.
type Pool struct {
	workers       []*Worker
	conversations chat.ConversationRepository
	ledger        *chat.Ledger
	workerCount   int
	interval      time.Duration
	log           zerolog.Logger
	wg            sync.WaitGroup
}

// Config contains worker pool configuration.
type Config struct {
	WorkerCount int
	Interval    time.Duration
}

// NewPool creates a new reconciliation pool.
func NewPool(
	conversations chat.ConversationRepository,
	ledger *chat.Ledger,
	cfg Config,
	log zerolog.Logger,
) *Pool {
	return &Pool{
		conversations: conversations,
		ledger:        ledger,
		workerCount:   cfg.WorkerCount,
		interval:      cfg.Interval,
		log:           log.With().Str("component", "reconcile-pool").Logger(),
	}
}

// Start launches all workers. Each worker runs its own sweep timer;
// sweeps partition the conversation list by worker id so no two
// workers reconcile the same conversation in the same round.
func (p *Pool) Start(ctx context.Context) error {
	p.log.Info().
		Int("worker_count", p.workerCount).
		Dur("interval", p.interval).
		Msg("starting reconciliation pool")

	p.workers = make([]*Worker, p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		worker := NewWorker(i, p.workerCount, p.conversations, p.ledger, p.interval, p.log)
		p.workers[i] = worker

		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Start(ctx)
		}(worker)
	}

	return nil
}

// Stop gracefully shuts down all workers.
func (p *Pool) Stop() {
	p.log.Info().Msg("stopping reconciliation pool")

	for _, worker := range p.workers {
		worker.Stop()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Info().Msg("all reconciliation workers stopped")
	case <-time.After(30 * time.Second):
		p.log.Warn().Msg("reconciliation pool shutdown timed out")
	}
}

// SweepOnce runs a single full sweep across every active conversation,
// outside the timer. Used by the readiness-time warmup and by tests.
func (p *Pool) SweepOnce(ctx context.Context) error {
	start := time.Now()
	defer func() {
		metrics.ReconcileSweepDuration.Observe(time.Since(start).Seconds())
	}()

	conversations, err := p.conversations.ListActive(ctx)
	if err != nil {
		return err
	}
	for _, conv := range conversations {
		if _, err := p.ledger.Reconcile(ctx, conv.ID); err != nil {
			p.log.Warn().Err(err).Str("conversation_id", conv.ID).Msg("reconcile failed")
		}
	}
	return nil
}
