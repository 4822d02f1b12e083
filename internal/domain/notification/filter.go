package notification

import "time"

// StatusFilter partitions the feed by read state.
type StatusFilter string

const (
	StatusAll    StatusFilter = "all"
	StatusNew    StatusFilter = "new"
	StatusUnread StatusFilter = "unread"
	StatusRead   StatusFilter = "read"
)

// DateWindow restricts the feed to a wall-clock window ending now.
type DateWindow string

const (
	WindowAll        DateWindow = "all"
	WindowToday      DateWindow = "today"
	WindowLast7Days  DateWindow = "last7days"
	WindowLast30Days DateWindow = "last30days"
)

// FilterOptions combines the three orthogonal feed predicates. Zero
// values mean "no restriction". Now anchors the date window; callers
// leave it zero for wall-clock time.
type FilterOptions struct {
	Type   string
	Status StatusFilter
	Window DateWindow
	Now    time.Time
}

// Filter returns the subset of notifications matching every predicate.
// Window boundaries are inclusive.
func Filter(notifications []Notification, opts FilterOptions) []Notification {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	out := make([]Notification, 0, len(notifications))
	for _, n := range notifications {
		if !matchType(n, opts.Type) {
			continue
		}
		if !matchStatus(n, opts.Status) {
			continue
		}
		if !matchWindow(n, opts.Window, now) {
			continue
		}
		out = append(out, n)
	}
	return out
}

func matchType(n Notification, typ string) bool {
	if typ == "" || typ == "all" {
		return true
	}
	return n.SourceType == SourceType(typ)
}

func matchStatus(n Notification, status StatusFilter) bool {
	switch status {
	case "", StatusAll:
		return true
	case StatusNew:
		return n.IsNew
	case StatusUnread:
		return !n.Read
	case StatusRead:
		return n.Read && !n.IsNew
	default:
		return true
	}
}

func matchWindow(n Notification, window DateWindow, now time.Time) bool {
	switch window {
	case "", WindowAll:
		return true
	case WindowToday:
		y1, m1, d1 := now.Date()
		y2, m2, d2 := n.Date.In(now.Location()).Date()
		return y1 == y2 && m1 == m2 && d1 == d2
	case WindowLast7Days:
		return !n.Date.Before(now.AddDate(0, 0, -7))
	case WindowLast30Days:
		return !n.Date.Before(now.AddDate(0, 0, -30))
	default:
		return true
	}
}
