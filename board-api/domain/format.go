package domain

import "time"

const displayLayout = "02/01/2006 - 03.04 PM"

// FormatDate renders t the way the board details panel shows "Last Updated",
// e.g. "18/10/2026 - 07.14 PM", in t's location.
func FormatDate(t time.Time) string {
	return t.Format(displayLayout)
}
