package stats

import "fmt"

// FormatSeconds renders a duration in milliseconds as "12.3s", or "--" when unknown.
func FormatSeconds(ms *int64) string {
	if ms == nil {
		return "--"
	}
	return fmt.Sprintf("%.1fs", float64(*ms)/1000)
}

// FormatClock renders a duration in milliseconds as "m:ss", or "00:00" when unknown.
func FormatClock(ms *int64) string {
	if ms == nil {
		return "00:00"
	}
	total := *ms / 1000
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
