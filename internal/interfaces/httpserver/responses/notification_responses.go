package responses

import (
	"portal-server/services/portal-api/internal/domain/notification"
)

// FeedResponse is the paginated notification feed with degradation
// metadata. A partial response still carries every healthy source.
type FeedResponse struct {
	Data       []notification.Notification   `json:"data"`
	Page       int                           `json:"page"`
	PageSize   int                           `json:"page_size"`
	TotalItems int                           `json:"total_items"`
	TotalPages int                           `json:"total_pages"`
	Partial    bool                          `json:"partial"`
	Degraded   []notification.DegradedSource `json:"degraded,omitempty"`
}

// MapFeed maps a feed page plus degradation info to DTO.
func MapFeed(page notification.Page, degraded []notification.DegradedSource) FeedResponse {
	return FeedResponse{
		Data:       page.Items,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalItems: page.TotalItems,
		TotalPages: page.TotalPages,
		Partial:    len(degraded) > 0,
		Degraded:   degraded,
	}
}
