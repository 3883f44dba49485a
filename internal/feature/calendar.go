package feature

import "time"

// Quarter maps a month to its calendar quarter (1..4).
func Quarter(m time.Month) int {
	return (int(m)-1)/3 + 1
}

// AddMonths moves t by n calendar months. Month-end dates stay on month ends
// and other days are clamped to the target month's length, so Jan 31 + 1
// month is Feb 28/29 and Feb 29 + 1 month is Mar 31.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := daysIn(first)
	if d > last || d == daysIn(t) {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
