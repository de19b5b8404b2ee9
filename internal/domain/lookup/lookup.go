// Package lookup loads the optional side tables that enrich generated
// documents: birth dates from CO01M and visit sequences from co03l.
// Both tables are best-effort; a missing file or malformed row degrades
// to an empty map, never an error.
package lookup

import (
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/bp2vpn/bp2vpn/internal/platform/dbf"
	"github.com/bp2vpn/bp2vpn/pkg/patientid"
)

// Source file names inside the HIS data directory.
const (
	BirthDateFile = "CO01M.DBF"
	VisitSeqFile  = "co03l.dbf"
)

// Tables holds the auxiliary lookups. Zero-value maps are valid and
// simply make every lookup miss.
type Tables struct {
	// BirthDates maps canonical chart number to the ROC birth date.
	BirthDates map[string]string
	// VisitSequences maps chart number + "_" + measurement date to the
	// raw visit-sequence value (era-prefixed).
	VisitSequences map[string]string
}

// VisitKey builds the composite key of the visit-sequence table.
func VisitKey(pid, date string) string {
	return patientid.Normalize(pid) + "_" + date
}

// LoadDir loads both side tables from dir. Failures are logged and
// swallowed; the returned Tables is never nil.
func LoadDir(dir string, log zerolog.Logger) *Tables {
	t := &Tables{
		BirthDates:     make(map[string]string),
		VisitSequences: make(map[string]string),
	}

	birthPath := filepath.Join(dir, BirthDateFile)
	if src, err := dbf.Open(birthPath); err != nil {
		log.Warn().Err(err).Str("table", BirthDateFile).Msg("birth-date lookup unavailable")
	} else {
		t.loadBirthDates(src)
		log.Info().Int("entries", len(t.BirthDates)).Str("table", BirthDateFile).Msg("birth dates loaded")
	}

	seqPath := filepath.Join(dir, VisitSeqFile)
	if src, err := dbf.Open(seqPath); err != nil {
		log.Warn().Err(err).Str("table", VisitSeqFile).Msg("visit-sequence lookup unavailable")
	} else {
		t.loadVisitSequences(src)
		log.Info().Int("entries", len(t.VisitSequences)).Str("table", VisitSeqFile).Msg("visit sequences loaded")
	}

	return t
}

func (t *Tables) loadBirthDates(src dbf.Source) {
	for row := 0; row < src.NumRecords(); row++ {
		pid := src.Field(row, "KCSTMR")
		birth := src.Field(row, "MBIRTHDT")
		if pid == "" || birth == "" {
			continue
		}
		t.BirthDates[patientid.Normalize(pid)] = birth
	}
}

func (t *Tables) loadVisitSequences(src dbf.Source) {
	for row := 0; row < src.NumRecords(); row++ {
		pid := src.Field(row, "KCSTMR")
		date := src.Field(row, "HDATE")
		seq := src.Field(row, "EDATE")
		if pid == "" || seq == "" {
			continue
		}
		t.VisitSequences[VisitKey(pid, date)] = seq
	}
}
