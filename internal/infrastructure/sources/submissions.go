package sources

import (
	"context"

	"portal-server/services/portal-api/internal/domain/chat"
	"portal-server/services/portal-api/internal/domain/notification"
	"portal-server/services/portal-api/internal/infrastructure/docstore"
)

// SubmissionSource feeds survey or form submissions into the
// notification feed. One instance serves exactly one kind; the kind
// picks the backing collection.
type SubmissionSource struct {
	store      docstore.Store
	kind       notification.SourceType
	collection string
}

// NewSurveySource constructs the survey submission source.
func NewSurveySource(store docstore.Store) *SubmissionSource {
	return &SubmissionSource{store: store, kind: notification.SourceSurvey, collection: "survey_submissions"}
}

// NewFormSource constructs the form submission source.
func NewFormSource(store docstore.Store) *SubmissionSource {
	return &SubmissionSource{store: store, kind: notification.SourceForm, collection: "form_submissions"}
}

var _ notification.Source = (*SubmissionSource)(nil)

// Name returns the source identifier used in degradation reports.
func (s *SubmissionSource) Name() string {
	return string(s.kind)
}

// Fetch returns one notification per submission visible to the viewer.
// Clients are matched by email; admins get the recent broad view.
func (s *SubmissionSource) Fetch(ctx context.Context, viewer notification.Viewer) ([]notification.Notification, error) {
	var filters []docstore.Filter
	limit := adminFetchLimit
	if viewer.Role == chat.RoleClient {
		filters = []docstore.Filter{docstore.Eq("email", viewer.Email)}
		limit = 0
	}

	docs, err := s.store.Query(ctx, s.collection, filters,
		[]docstore.OrderBy{{Field: "created_at", Desc: true}}, limit)
	if err != nil {
		return nil, wrapStoreError(ctx, err, "failed to fetch submissions")
	}

	out := make([]notification.Notification, 0, len(docs))
	for _, doc := range docs {
		out = append(out, notification.MapSubmission(decodeSubmission(doc), s.kind))
	}
	return out, nil
}

func decodeSubmission(doc docstore.Document) notification.SubmissionRecord {
	return notification.SubmissionRecord{
		ID:        doc.ID,
		Name:      fieldString(doc.Fields, "name"),
		Email:     fieldString(doc.Fields, "email"),
		Status:    fieldString(doc.Fields, "status"),
		CreatedAt: fieldTime(doc.Fields, "created_at", doc.CreatedAt),
	}
}
