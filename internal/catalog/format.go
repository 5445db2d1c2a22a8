package catalog

import (
	"fmt"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatPullCount abbreviates large counts: 1500 is "1.5K", 2300000 is
// "2.3M".
func FormatPullCount(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	}
	return strconv.Itoa(n)
}

// FormatNumber prints n with English digit grouping, e.g. "12,345".
func FormatNumber(n int) string {
	return message.NewPrinter(language.English).Sprint(n)
}

// FormatDaysSince describes how long ago t was relative to now.
func FormatDaysSince(t, now time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		d = -d
	}
	days := int(d / (24 * time.Hour))
	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	case days < 30:
		return fmt.Sprintf("%d weeks ago", days/7)
	case days < 365:
		return fmt.Sprintf("%d months ago", days/30)
	}
	return fmt.Sprintf("%d years ago", days/365)
}
