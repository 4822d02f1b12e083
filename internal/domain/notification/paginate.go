package notification

// DefaultPageSize is used when the caller passes a non-positive size.
const DefaultPageSize = 20

// Page is one slice of a ranked feed.
type Page struct {
	Items      []Notification `json:"items"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalItems int            `json:"total_items"`
	TotalPages int            `json:"total_pages"`
}

// Paginate slices the feed. Pages are 1-based; a page past the end
// yields an empty item list. Pure arithmetic, no I/O.
func Paginate(notifications []Notification, page, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}

	total := len(notifications)
	totalPages := (total + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return Page{
		Items:      notifications[start:end],
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}
}
