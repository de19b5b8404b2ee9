// Package rocdate formats timestamps in the ROC (Minguo) calendar used by
// the NHI interface: the year is offset by 1911 and zero-padded to three
// digits, so dates sort lexicographically without parsing.
package rocdate

import (
	"fmt"
	"strconv"
	"time"
)

// Date returns t as a fixed-width YYYMMDD string (ROC year).
func Date(t time.Time) string {
	return fmt.Sprintf("%03d%02d%02d", t.Year()-1911, int(t.Month()), t.Day())
}

// Clock returns the time of day of t as HHMMSS.
func Clock(t time.Time) string {
	return fmt.Sprintf("%02d%02d%02d", t.Hour(), t.Minute(), t.Second())
}

// Stamp returns t as YYYMMDDHHMMSS.
func Stamp(t time.Time) string {
	return Date(t) + Clock(t)
}

// YearMonth returns t as YYYMM, the billing-month form.
func YearMonth(t time.Time) string {
	return fmt.Sprintf("%03d%02d", t.Year()-1911, int(t.Month()))
}

// Western converts a YYYMMDD ROC date to a "YYYY/MM/DD" display string.
// Malformed input is returned unchanged.
func Western(d string) string {
	if len(d) < 7 {
		return d
	}
	yy, err := strconv.Atoi(d[:3])
	if err != nil {
		return d
	}
	return fmt.Sprintf("%d/%s/%s", yy+1911, d[3:5], d[5:7])
}
