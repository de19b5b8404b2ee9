// Package worksheet merges the demographic roster with the scanned
// readings and tracks the mutable per-patient selection state that the
// operator edits before export.
package worksheet

import (
	"errors"
	"time"

	"github.com/bp2vpn/bp2vpn/internal/domain/patient"
	"github.com/bp2vpn/bp2vpn/internal/domain/vitals"
	"github.com/bp2vpn/bp2vpn/internal/platform/rocdate"
	"github.com/bp2vpn/bp2vpn/pkg/patientid"
)

// ErrUnknownPatient reports an operation on a chart number not present
// in the roster.
var ErrUnknownPatient = errors.New("worksheet: patient not in roster")

// Status describes a row for presentation.
type Status string

const (
	StatusSelected Status = "selected" // included in the export
	StatusHasData  Status = "has-data" // values present but deselected
	StatusPending  Status = "pending"  // waiting for manual entry
)

// Row is one roster entry with its live, possibly edited values. The
// original Reading is kept separately so date/time derivation always
// uses the measured instant, not the edit.
type Row struct {
	Patient   patient.Record
	Reading   *vitals.Reading // nil when the scan found nothing
	Systolic  int
	Diastolic int
	Included  bool
}

// HasData reports whether both live values are positive.
func (r *Row) HasData() bool {
	return r.Systolic > 0 && r.Diastolic > 0
}

// Status classifies the row for display.
func (r *Row) Status() Status {
	switch {
	case r.Included:
		return StatusSelected
	case r.Systolic > 0 || r.Diastolic > 0:
		return StatusHasData
	default:
		return StatusPending
	}
}

// ExportRow is a finalized row handed to the document generator.
type ExportRow struct {
	Patient   patient.Record
	Systolic  int
	Diastolic int
	Date      string // ROC YYYMMDD of the measurement (or collection time)
	Time      string // HHMMSS
}

// Skipped records a row that was included but failed the final range
// check; it is reported, not silently dropped.
type Skipped struct {
	PatientID string
	Systolic  int
	Diastolic int
	Reason    string
}

// Worksheet holds the rows in roster order plus a canonical-id index.
type Worksheet struct {
	rows []*Row
	byID map[string]*Row
}

// New builds a worksheet from the roster and the scanner's reading map.
// Rows whose reading carries both values start out included.
func New(roster *patient.Roster, readings map[string]*vitals.Reading) *Worksheet {
	w := &Worksheet{byID: make(map[string]*Row, len(roster.Records))}
	for _, rec := range roster.Records {
		row := &Row{Patient: rec}
		if r := readings[patientid.Normalize(rec.ID)]; r != nil {
			row.Reading = r
			row.Systolic = r.Systolic
			row.Diastolic = r.Diastolic
		}
		row.Included = row.HasData()
		w.rows = append(w.rows, row)
		w.byID[patientid.Normalize(rec.ID)] = row
	}
	return w
}

// Rows returns the rows in roster order.
func (w *Worksheet) Rows() []*Row {
	return w.rows
}

// Len returns the number of rows.
func (w *Worksheet) Len() int {
	return len(w.rows)
}

// SelectedCount returns the number of included rows.
func (w *Worksheet) SelectedCount() int {
	n := 0
	for _, r := range w.rows {
		if r.Included {
			n++
		}
	}
	return n
}

// SetValues stores edited values for the patient. Inclusion follows the
// auto-select rule: the only transition a value edit may cause is
// false→true, the instant both values become positive. An edit never
// clears an inclusion; only Exclude and ClearSelection do.
func (w *Worksheet) SetValues(id string, systolic, diastolic int) error {
	row, ok := w.byID[patientid.Normalize(id)]
	if !ok {
		return ErrUnknownPatient
	}
	row.Systolic = systolic
	row.Diastolic = diastolic
	if !row.Included && row.HasData() {
		row.Included = true
	}
	return nil
}

// Include marks the patient for export regardless of values.
func (w *Worksheet) Include(id string) error {
	row, ok := w.byID[patientid.Normalize(id)]
	if !ok {
		return ErrUnknownPatient
	}
	row.Included = true
	return nil
}

// Exclude removes the patient from the export. This is the only path,
// besides ClearSelection, that turns Included off.
func (w *Worksheet) Exclude(id string) error {
	row, ok := w.byID[patientid.Normalize(id)]
	if !ok {
		return ErrUnknownPatient
	}
	row.Included = false
	return nil
}

// SelectAll includes every row.
func (w *Worksheet) SelectAll() {
	for _, r := range w.rows {
		r.Included = true
	}
}

// ClearSelection excludes every row.
func (w *Worksheet) ClearSelection() {
	for _, r := range w.rows {
		r.Included = false
	}
}

// CollectExportRows walks the roster in order and returns the rows that
// are included and whose live values pass the plausibility bands. Rows
// failing the band check are returned in the skipped list with a
// reason. The measurement date and time come from the original reading
// when one exists; otherwise now is converted to the ROC calendar.
func (w *Worksheet) CollectExportRows(now time.Time) ([]ExportRow, []Skipped) {
	var rows []ExportRow
	var skipped []Skipped

	for _, r := range w.rows {
		if !r.Included {
			continue
		}
		if !vitals.InBands(r.Systolic, r.Diastolic) {
			skipped = append(skipped, Skipped{
				PatientID: patientid.Normalize(r.Patient.ID),
				Systolic:  r.Systolic,
				Diastolic: r.Diastolic,
				Reason:    "values outside plausibility bands",
			})
			continue
		}

		row := ExportRow{
			Patient:   r.Patient,
			Systolic:  r.Systolic,
			Diastolic: r.Diastolic,
		}
		if r.Reading != nil {
			row.Date = r.Reading.Date
			row.Time = r.Reading.Time
		} else {
			row.Date = rocdate.Date(now)
			row.Time = rocdate.Clock(now)
		}
		rows = append(rows, row)
	}
	return rows, skipped
}
