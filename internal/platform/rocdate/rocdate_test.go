package rocdate

import (
	"testing"
	"time"
)

func TestDate(t *testing.T) {
	d := time.Date(2024, 6, 15, 9, 0, 0, 0, time.Local)
	if got := Date(d); got != "1130615" {
		t.Errorf("Date = %q, want 1130615", got)
	}
	// Single-digit ROC year pads to three digits.
	old := time.Date(1912, 1, 2, 0, 0, 0, 0, time.Local)
	if got := Date(old); got != "0010102" {
		t.Errorf("Date = %q, want 0010102", got)
	}
}

func TestClockAndStamp(t *testing.T) {
	d := time.Date(2024, 6, 15, 8, 5, 9, 0, time.Local)
	if got := Clock(d); got != "080509" {
		t.Errorf("Clock = %q, want 080509", got)
	}
	if got := Stamp(d); got != "1130615080509" {
		t.Errorf("Stamp = %q, want 1130615080509", got)
	}
}

func TestYearMonth(t *testing.T) {
	d := time.Date(2024, 6, 15, 0, 0, 0, 0, time.Local)
	if got := YearMonth(d); got != "11306" {
		t.Errorf("YearMonth = %q, want 11306", got)
	}
}

func TestWestern(t *testing.T) {
	if got := Western("1130615"); got != "2024/06/15" {
		t.Errorf("Western = %q, want 2024/06/15", got)
	}
	// Malformed input passes through.
	if got := Western("113"); got != "113" {
		t.Errorf("Western = %q, want 113", got)
	}
	if got := Western("abc0615"); got != "abc0615" {
		t.Errorf("Western = %q, want abc0615", got)
	}
}
