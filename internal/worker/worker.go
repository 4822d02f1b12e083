package worker

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/rs/zerolog"

	"portal-server/services/portal-api/internal/domain/chat"
	"portal-server/services/portal-api/internal/infrastructure/metrics"
)

// Worker reconciles its share of the active conversations on a timer.
type Worker struct {
	id            int
	shardCount    int
	conversations chat.ConversationRepository
	ledger        *chat.Ledger
	interval      time.Duration
	log           zerolog.Logger
	stopChan      chan struct{}
}

// NewWorker creates a reconciliation worker owning one shard.
func NewWorker(
	id int,
	shardCount int,
	conversations chat.ConversationRepository,
	ledger *chat.Ledger,
	interval time.Duration,
	log zerolog.Logger,
) *Worker {
	return &Worker{
		id:            id,
		shardCount:    shardCount,
		conversations: conversations,
		ledger:        ledger,
		interval:      interval,
		log:           log.With().Int("worker_id", id).Str("component", "reconcile-worker").Logger(),
		stopChan:      make(chan struct{}),
	}
}

// Start begins the sweep loop.
func (w *Worker) Start(ctx context.Context) {
	w.log.Info().Msg("reconcile worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("reconcile worker stopped by context")
			return
		case <-w.stopChan:
			w.log.Info().Msg("reconcile worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	close(w.stopChan)
}

func (w *Worker) sweep(ctx context.Context) {
	start := time.Now()
	defer func() {
		metrics.ReconcileSweepDuration.Observe(time.Since(start).Seconds())
	}()

	conversations, err := w.conversations.ListActive(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("failed to list conversations for sweep")
		return
	}

	repaired := 0
	for _, conv := range conversations {
		if !w.owns(conv.ID) {
			continue
		}
		drift, err := w.ledger.Reconcile(ctx, conv.ID)
		if err != nil {
			w.log.Warn().Err(err).Str("conversation_id", conv.ID).Msg("reconcile failed")
			continue
		}
		if drift.Detected() {
			repaired++
		}
	}

	if repaired > 0 {
		w.log.Info().
			Int("repaired", repaired).
			Int("scanned", len(conversations)).
			Msg("reconciliation sweep repaired drift")
	}
}

// owns reports whether this worker's shard covers the conversation.
func (w *Worker) owns(conversationID string) bool {
	if w.shardCount <= 1 {
		return true
	}
	h := fnv.New32a()
	h.Write([]byte(conversationID))
	return int(h.Sum32())%w.shardCount == w.id
}
