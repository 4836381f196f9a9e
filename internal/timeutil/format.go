package timeutil

import (
	"fmt"
	"time"
)

// FormatRelativeTime renders how far t lies from now, in words. Past and
// future both work; distant times fall back to the calendar date.
func FormatRelativeTime(t time.Time, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	duration := t.Sub(now)
	abs := duration
	if abs < 0 {
		abs = -abs
	}

	seconds := int(abs.Seconds())
	minutes := int(abs.Minutes())
	hours := int(abs.Hours())
	days := int(abs.Hours() / 24)

	past := duration < 0
	switch {
	case seconds < 30:
		if past {
			return "just now"
		}
		return "in a few seconds"
	case seconds < 90:
		if past {
			return "a minute ago"
		}
		return "in a minute"
	case minutes < 45:
		if past {
			return fmt.Sprintf("%d minutes ago", minutes)
		}
		return fmt.Sprintf("in %d minutes", minutes)
	case minutes < 90:
		if past {
			return "an hour ago"
		}
		return "in an hour"
	case hours < 24:
		if past {
			return fmt.Sprintf("%d hours ago", hours)
		}
		return fmt.Sprintf("in %d hours", hours)
	case days == 1:
		if past {
			return "yesterday"
		}
		return "tomorrow"
	case days < 7:
		if past {
			return fmt.Sprintf("%d days ago", days)
		}
		return fmt.Sprintf("in %d days", days)
	default:
		return fmt.Sprintf("on %s", t.Format("Jan 2"))
	}
}

// FormatDuration renders a duration compactly for status lines: 42s, 3m, 2h.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
