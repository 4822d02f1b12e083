package notification

import (
	"context"

	"github.com/rs/zerolog"

	"portal-server/services/portal-api/internal/infrastructure/metrics"
	"portal-server/services/portal-api/internal/infrastructure/observability"
	"portal-server/services/portal-api/internal/utils/platformerrors"
)

// DegradedSource records one source that failed during aggregation.
type DegradedSource struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// FeedResult is the outcome of one aggregation pass: the merged ranked
// feed plus the sources that could not contribute to it.
type FeedResult struct {
	Notifications []Notification   `json:"notifications"`
	Degraded      []DegradedSource `json:"degraded,omitempty"`
}

// Partial reports whether at least one source failed.
func (r FeedResult) Partial() bool {
	return len(r.Degraded) > 0
}

// Service assembles the notification feed for a viewer.
type Service interface {
	FetchAll(ctx context.Context, viewer Viewer) (FeedResult, error)
	FetchPage(ctx context.Context, viewer Viewer, opts FilterOptions, page, pageSize int) (Page, []DegradedSource, error)
}

// Aggregator merges heterogeneous sources into one ranked feed. A
// failing source degrades the feed instead of failing it; only an
// invalid viewer is a hard error.
type Aggregator struct {
	sources []Source
	log     zerolog.Logger
}

// NewAggregator builds an aggregator over the given sources. Source
// order is irrelevant to the final feed because ranking is absolute.
func NewAggregator(log zerolog.Logger, sources ...Source) *Aggregator {
	return &Aggregator{
		sources: sources,
		log:     log.With().Str("component", "notification-aggregator").Logger(),
	}
}

// FetchAll fetches every source, isolates per-source failures, and
// returns the merged feed ranked by Less.
func (a *Aggregator) FetchAll(ctx context.Context, viewer Viewer) (FeedResult, error) {
	if !viewer.Role.Valid() {
		return FeedResult{}, platformerrors.NewError(ctx,
			platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden,
			"unknown viewer role", nil)
	}

	ctx, span := observability.StartFetchSpan(ctx, string(viewer.Role), len(a.sources))
	defer span.End()

	result := FeedResult{Notifications: []Notification{}}
	for _, src := range a.sources {
		ns, err := src.Fetch(ctx, viewer)
		if err != nil {
			a.log.Warn().Err(err).
				Str("source", src.Name()).
				Str("viewer_role", string(viewer.Role)).
				Msg("notification source degraded")
			observability.AddDegradedSourceEvent(span, src.Name(), err)
			metrics.DegradedSourcesTotal.WithLabelValues(src.Name()).Inc()
			result.Degraded = append(result.Degraded, DegradedSource{
				Source: src.Name(),
				Error:  err.Error(),
			})
			continue
		}
		result.Notifications = append(result.Notifications, ns...)
	}

	Rank(result.Notifications)

	status := "ok"
	if result.Partial() {
		status = "partial"
	}
	metrics.FeedFetchesTotal.WithLabelValues(string(viewer.Role), status).Inc()
	return result, nil
}

// FetchPage is FetchAll plus filtering and pagination, the shape the
// HTTP layer serves directly.
func (a *Aggregator) FetchPage(ctx context.Context, viewer Viewer, opts FilterOptions, page, pageSize int) (Page, []DegradedSource, error) {
	result, err := a.FetchAll(ctx, viewer)
	if err != nil {
		return Page{}, nil, err
	}
	filtered := Filter(result.Notifications, opts)
	return Paginate(filtered, page, pageSize), result.Degraded, nil
}
