// Package patient loads the demographic roster from the VISHFAM table.
// The roster is the mandatory backbone of a run: every downstream stage
// iterates it in source order.
package patient

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bp2vpn/bp2vpn/internal/platform/dbf"
	"github.com/bp2vpn/bp2vpn/pkg/patientid"
)

// ErrRegistryUnreadable marks a total failure to read the demographic
// table. Unlike the measurement source, the registry is mandatory and
// its absence aborts the whole run.
var ErrRegistryUnreadable = errors.New("patient registry unreadable")

// zeroSentinel is the placeholder chart number some HIS versions write
// for deleted rows.
const zeroSentinel = "0000000"

// Record is one demographic row. ID keeps the raw chart number exactly
// as stored; canonicalization happens at join points, not here.
type Record struct {
	ID        string // raw chart number (PAT_PID)
	DisplayID string // national id (PAT_ID)
	Name      string // display name (PAT_NAMEC)
	RegDate   string // registration date, source-native encoding
}

// Roster is the deduplicated, source-ordered patient list.
type Roster struct {
	Records    []Record
	Total      int // rows examined in the source
	Duplicates int // rows discarded as duplicate chart numbers
}

// IDs returns the raw chart numbers in roster order.
func (r *Roster) IDs() []string {
	ids := make([]string, len(r.Records))
	for i, rec := range r.Records {
		ids[i] = rec.ID
	}
	return ids
}

// Load reads every row of src, skipping blank and sentinel chart
// numbers, deduplicating on the raw chart number, and preserving source
// order for the surviving rows.
func Load(src dbf.Source) *Roster {
	roster := &Roster{Total: src.NumRecords()}
	seen := make(map[string]bool)

	for row := 0; row < roster.Total; row++ {
		pid := src.Field(row, "PAT_PID")
		if pid == "" || pid == zeroSentinel {
			continue
		}
		if seen[pid] {
			roster.Duplicates++
			continue
		}
		seen[pid] = true

		roster.Records = append(roster.Records, Record{
			ID:        pid,
			DisplayID: src.Field(row, "PAT_ID"),
			Name:      src.Field(row, "PAT_NAMEC"),
			RegDate:   src.Field(row, "REG_DATE"),
		})
	}
	return roster
}

// LoadFile opens the demographic table at path and loads the roster.
// Any open failure wraps ErrRegistryUnreadable.
func LoadFile(path string) (*Roster, error) {
	table, err := dbf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("patient: %w: %v", ErrRegistryUnreadable, err)
	}
	return Load(table), nil
}

// ReadIDList reads a chart-number list file: one chart number per line,
// blank lines skipped.
func ReadIDList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("patient: read id list: %w", err)
	}
	var ids []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			ids = append(ids, line)
		}
	}
	return ids, nil
}

// Filter returns a new roster restricted to the given chart numbers,
// keeping roster order. Matching uses the canonical form on both sides,
// so padded and unpadded spellings select the same row.
func (r *Roster) Filter(ids []string) *Roster {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[patientid.Normalize(id)] = true
	}
	out := &Roster{Total: r.Total, Duplicates: r.Duplicates}
	for _, rec := range r.Records {
		if want[patientid.Normalize(rec.ID)] {
			out.Records = append(out.Records, rec)
		}
	}
	return out
}
