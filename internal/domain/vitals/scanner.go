// Package vitals scans the CO18H measurement table for blood-pressure
// readings and keeps the chronologically latest qualifying reading per
// patient.
package vitals

import (
	"strconv"
	"strings"
	"time"

	"github.com/bp2vpn/bp2vpn/internal/platform/dbf"
	"github.com/bp2vpn/bp2vpn/pkg/patientid"
)

// Plausibility bands. Values outside these are rejected during the scan
// and again when export rows are collected.
const (
	SystolicMin  = 50
	SystolicMax  = 250
	DiastolicMin = 30
	DiastolicMax = 150
)

// bpItemTag marks a blood-pressure row in the HITEM column.
const bpItemTag = "BP"

// Reading is the latest qualifying measurement retained for a patient.
type Reading struct {
	Systolic  int
	Diastolic int
	Date      string // ROC YYYMMDD, as stored in the source row
	Time      string // HHMMSS
	Raw       string // original composite "sys/dia" text
	Key       string // Date+Time, the sort key of the latest-wins reduction
}

// Stats aggregates the per-record counters of one scan. Malformed rows
// are never surfaced individually; they only show up here.
type Stats struct {
	Processed      int // rows examined
	DateFiltered   int // rows inside the date window
	TypeMatched    int // rows tagged as blood pressure
	PatientMatched int // rows belonging to a target patient
	Replaced       int // latest-wins replacements performed
	PatientsFound  int // distinct patients with at least one reading
}

// Option configures a scan.
type Option func(*scanConfig)

type scanConfig struct {
	progress      func(done, total int)
	progressEvery int
	minInterval   time.Duration
}

// WithProgress installs a progress callback. Calls are throttled to at
// most one per 1000 records and one per 500ms so a UI or log sink is not
// flooded.
func WithProgress(fn func(done, total int)) Option {
	return func(c *scanConfig) { c.progress = fn }
}

// Scan walks every row of src once and returns the latest qualifying
// reading per target patient. The result's key set always equals the
// normalized target set exactly; a nil value records that no reading
// qualified for that patient.
//
// Filters run cheapest-first per row: date window, item tag, patient
// membership, then value parsing. Any malformed row is skipped silently.
func Scan(src dbf.Source, targets []string, w Window, opts ...Option) (map[string]*Reading, Stats) {
	cfg := scanConfig{progressEvery: 1000, minInterval: 500 * time.Millisecond}
	for _, opt := range opts {
		opt(&cfg)
	}

	targetSet := make(map[string]struct{}, len(targets))
	readings := make(map[string]*Reading, len(targets))
	for _, id := range targets {
		pid := patientid.Normalize(id)
		targetSet[pid] = struct{}{}
		readings[pid] = nil
	}

	var stats Stats
	total := src.NumRecords()
	lastEmit := time.Now()

	for row := 0; row < total; row++ {
		if cfg.progress != nil && row%cfg.progressEvery == 0 && time.Since(lastEmit) >= cfg.minInterval {
			cfg.progress(row, total)
			lastEmit = time.Now()
		}
		stats.Processed++

		date := src.Field(row, "HDATE")
		if !w.Contains(date) {
			continue
		}
		stats.DateFiltered++

		if src.Field(row, "HITEM") != bpItemTag {
			continue
		}
		stats.TypeMatched++

		pid := patientid.Normalize(src.Field(row, "KCSTMR"))
		if _, ok := targetSet[pid]; !ok {
			continue
		}
		stats.PatientMatched++

		systolic, diastolic, ok := parseValue(src.Field(row, "HVAL"))
		if !ok {
			continue
		}

		key := date + src.Field(row, "HTIME")
		stored := readings[pid]
		if stored != nil && key < stored.Key {
			continue
		}
		if stored == nil {
			stats.PatientsFound++
		}
		readings[pid] = &Reading{
			Systolic:  systolic,
			Diastolic: diastolic,
			Date:      date,
			Time:      src.Field(row, "HTIME"),
			Raw:       src.Field(row, "HVAL"),
			Key:       key,
		}
		stats.Replaced++
	}

	if cfg.progress != nil {
		cfg.progress(total, total)
	}
	return readings, stats
}

// ScanFile opens the measurement table at path and scans it. Open
// failures keep their distinguishable kinds (dbf.ErrNotFound,
// dbf.ErrNotPermitted) so the caller can decide whether the condition is
// fatal or merely degrades the run.
func ScanFile(path string, targets []string, w Window, opts ...Option) (map[string]*Reading, Stats, error) {
	table, err := dbf.Open(path)
	if err != nil {
		return nil, Stats{}, err
	}
	readings, stats := Scan(table, targets, w, opts...)
	return readings, stats, nil
}

// parseValue splits the composite "systolic/diastolic" text and applies
// the plausibility bands. Exactly one separator is required.
func parseValue(raw string) (systolic, diastolic int, ok bool) {
	parts := strings.Split(raw, "/")
	if len(parts) != 2 {
		return 0, 0, false
	}
	sysF, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	diaF, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, false
	}
	systolic, diastolic = int(sysF), int(diaF)
	if systolic < SystolicMin || systolic > SystolicMax {
		return 0, 0, false
	}
	if diastolic < DiastolicMin || diastolic > DiastolicMax {
		return 0, 0, false
	}
	return systolic, diastolic, true
}

// InBands reports whether a value pair passes the plausibility bands.
// The worksheet reuses this when collecting export rows.
func InBands(systolic, diastolic int) bool {
	return systolic >= SystolicMin && systolic <= SystolicMax &&
		diastolic >= DiastolicMin && diastolic <= DiastolicMax
}
