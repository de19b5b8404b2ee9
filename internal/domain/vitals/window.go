package vitals

import (
	"fmt"
	"time"

	"github.com/bp2vpn/bp2vpn/internal/platform/rocdate"
)

// Preset names a relative date range offered to the operator.
type Preset string

const (
	PresetThisYear   Preset = "this-year"
	PresetLast3Mo    Preset = "3-months"
	PresetLast6Mo    Preset = "6-months"
	PresetLastYear   Preset = "1-year"
)

// Window bounds a scan by measurement date. Both bounds are ROC
// fixed-width YYYMMDD strings compared lexicographically; End may be
// empty, meaning no upper bound.
type Window struct {
	Start string
	End   string
}

// Contains reports whether the record date d falls inside the window.
// Dates shorter than the well-formed width are always rejected.
func (w Window) Contains(d string) bool {
	if len(d) < 7 {
		return false
	}
	if d < w.Start {
		return false
	}
	if w.End != "" && d > w.End {
		return false
	}
	return true
}

// PresetWindow resolves a named preset relative to now. Preset windows
// are open-ended above: records dated after now still qualify.
func PresetWindow(p Preset, now time.Time) (Window, error) {
	var start time.Time
	switch p {
	case PresetThisYear:
		start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	case PresetLast3Mo:
		start = now.AddDate(0, 0, -91)
	case PresetLast6Mo:
		start = now.AddDate(0, 0, -182)
	case PresetLastYear:
		start = now.AddDate(0, 0, -365)
	default:
		return Window{}, fmt.Errorf("vitals: unknown range preset %q", p)
	}
	return Window{Start: rocdate.Date(start)}, nil
}

// CustomWindow builds an inclusive explicit window. Start must be
// strictly before end.
func CustomWindow(start, end time.Time) (Window, error) {
	if !start.Before(end) {
		return Window{}, fmt.Errorf("vitals: start date %s must be before end date %s",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	return Window{Start: rocdate.Date(start), End: rocdate.Date(end)}, nil
}
