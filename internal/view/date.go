package view

import (
	"fmt"
	"math"
	"time"
)

// RelativeDate labels a history entry: Today, Yesterday, "N days ago" within
// a week, then the short month and day.
func RelativeDate(ts, now time.Time) string {
	if ts.IsZero() {
		return "unknown date"
	}
	days := int(math.Floor(now.Sub(ts).Hours() / 24))
	switch {
	case days <= 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	default:
		return ts.Local().Format("Jan 2")
	}
}
