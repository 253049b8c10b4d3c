package notify

import "time"

// Rendering of instants for humans lives here, at the presentation boundary.
// Everything below this package works with timezone-aware instants only.

// HumanTime renders an instant for notification content, e.g.
// "January 10 at 14:00".
func HumanTime(t time.Time) string {
	return t.UTC().Format("January 2 at 15:04")
}
