package notification

import "sort"

// Less is the one canonical feed comparator: unseen items first, then
// newest first. No source type priority is applied; ties beyond the
// date keep their input order (the sort is stable), which makes the
// ordering a strict weak total order.
func Less(a, b Notification) bool {
	if a.IsNew != b.IsNew {
		return a.IsNew
	}
	return a.Date.After(b.Date)
}

// Rank orders notifications in place using Less and returns the slice.
func Rank(notifications []Notification) []Notification {
	sort.SliceStable(notifications, func(i, j int) bool {
		return Less(notifications[i], notifications[j])
	})
	return notifications
}
