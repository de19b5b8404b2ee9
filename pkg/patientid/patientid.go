// Package patientid canonicalizes chart numbers to the fixed-width form
// used as the join key across every table in the export pipeline.
package patientid

import "strings"

// Width is the canonical chart-number width. Source tables store chart
// numbers with inconsistent padding; every lookup and join uses the
// zero-padded form.
const Width = 7

// Normalize trims surrounding whitespace and left-pads the chart number
// with '0' to Width characters. It never fails and is idempotent.
func Normalize(id string) string {
	id = strings.TrimSpace(id)
	if len(id) >= Width {
		return id
	}
	return strings.Repeat("0", Width-len(id)) + id
}
