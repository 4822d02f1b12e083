package chat

import (
	"context"

	"github.com/rs/zerolog"

	"portal-server/services/portal-api/internal/infrastructure/metrics"
	"portal-server/services/portal-api/internal/infrastructure/observability"
	"portal-server/services/portal-api/internal/utils/platformerrors"
)

// Ledger maintains the denormalised unread counters as a performance
// cache over the authoritative per-message read flags. Ordinary
// increment/reset writes are last-writer-wins; Reconcile recomputes
// both counters from the messages themselves and is the invariant
// restorer after any drift.
type Ledger struct {
	conversations ConversationRepository
	messages      MessageRepository
	log           zerolog.Logger
}

// Drift reports the counter corrections applied by a reconcile pass.
type Drift struct {
	ConversationID string
	ClientDelta    int
	AdminDelta     int
}

// Detected reports whether the pass corrected anything.
func (d Drift) Detected() bool {
	return d.ClientDelta != 0 || d.AdminDelta != 0
}

// NewLedger builds the unread counter ledger.
func NewLedger(conversations ConversationRepository, messages MessageRepository, log zerolog.Logger) *Ledger {
	return &Ledger{
		conversations: conversations,
		messages:      messages,
		log:           log.With().Str("component", "unread-ledger").Logger(),
	}
}

// Increment adds one to the unread counter of the given role.
func (l *Ledger) Increment(ctx context.Context, conversationID string, role Role) error {
	conv, err := l.conversations.FindByID(ctx, conversationID)
	if err != nil {
		return err
	}
	conv.SetUnread(role, conv.UnreadFor(role)+1)
	return l.conversations.UpdateCounters(ctx, conversationID, conv.UnreadForClient, conv.UnreadForAdmin)
}

// Reset zeroes the unread counter of the given role. Safe to call
// repeatedly; never increases a counter.
func (l *Ledger) Reset(ctx context.Context, conversationID string, role Role) error {
	conv, err := l.conversations.FindByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv.UnreadFor(role) == 0 {
		return nil
	}
	conv.SetUnread(role, 0)
	return l.conversations.UpdateCounters(ctx, conversationID, conv.UnreadForClient, conv.UnreadForAdmin)
}

// Reconcile recomputes both counters by counting unread messages per
// sender role. Drift is logged and counted, never an error: the
// counters are a cache, the read flags are the source of truth.
func (l *Ledger) Reconcile(ctx context.Context, conversationID string) (Drift, error) {
	ctx, span := observability.StartReconcileSpan(ctx, conversationID)
	defer span.End()

	conv, err := l.conversations.FindByID(ctx, conversationID)
	if err != nil {
		observability.RecordError(span, err)
		return Drift{}, err
	}

	unreadForClient, err := l.messages.CountUnread(ctx, conversationID, RoleAdmin)
	if err != nil {
		observability.RecordError(span, err)
		return Drift{}, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeDatabaseError, "count unread admin messages", err)
	}
	unreadForAdmin, err := l.messages.CountUnread(ctx, conversationID, RoleClient)
	if err != nil {
		observability.RecordError(span, err)
		return Drift{}, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeDatabaseError, "count unread client messages", err)
	}

	drift := Drift{
		ConversationID: conversationID,
		ClientDelta:    int(unreadForClient) - int(conv.UnreadForClient),
		AdminDelta:     int(unreadForAdmin) - int(conv.UnreadForAdmin),
	}
	if !drift.Detected() {
		return drift, nil
	}

	if err := l.conversations.UpdateCounters(ctx, conversationID, unreadForClient, unreadForAdmin); err != nil {
		observability.RecordError(span, err)
		return Drift{}, err
	}

	observability.AddDriftEvent(span, conversationID, drift.ClientDelta, drift.AdminDelta)
	if drift.ClientDelta != 0 {
		metrics.ReconcileDriftTotal.WithLabelValues(string(RoleClient)).Inc()
	}
	if drift.AdminDelta != 0 {
		metrics.ReconcileDriftTotal.WithLabelValues(string(RoleAdmin)).Inc()
	}
	l.log.Warn().
		Str("conversation_id", conversationID).
		Int("client_delta", drift.ClientDelta).
		Int("admin_delta", drift.AdminDelta).
		Msg("unread counter drift repaired")
	return drift, nil
}
