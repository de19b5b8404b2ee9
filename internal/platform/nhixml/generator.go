package nhixml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bp2vpn/bp2vpn/internal/domain/lookup"
	"github.com/bp2vpn/bp2vpn/internal/domain/worksheet"
	"github.com/bp2vpn/bp2vpn/internal/platform/rocdate"
	"github.com/bp2vpn/bp2vpn/pkg/patientid"
)

// ErrNoData is returned when a generation run receives zero rows.
var ErrNoData = errors.New("nhixml: no data to export")

// ErrBadFacilityCode marks a facility code that is not exactly ten
// ASCII digits.
var ErrBadFacilityCode = errors.New("nhixml: facility code must be exactly 10 digits")

// ValidateFacilityCode checks the bureau's facility-code shape before
// any I/O happens.
func ValidateFacilityCode(code string) error {
	if len(code) != 10 {
		return fmt.Errorf("%w: got %d characters", ErrBadFacilityCode, len(code))
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return fmt.Errorf("%w: %q is not a digit", ErrBadFacilityCode, c)
		}
	}
	return nil
}

// Generator assembles upload documents. UnifiedSecond is stamped into
// every r10 timestamp of a run so two exports of the same data never
// hash identically on the receiving side. Now is the generation instant
// written into h16 and used for every missing-timestamp fallback.
type Generator struct {
	FacilityCode  string
	UnifiedSecond int
	Lookups       *lookup.Tables
	Now           time.Time
}

// NewGenerator validates the facility code and returns a generator
// bound to the given side tables. Lookups may be nil.
func NewGenerator(facilityCode string, unifiedSecond int, lookups *lookup.Tables) (*Generator, error) {
	if err := ValidateFacilityCode(facilityCode); err != nil {
		return nil, err
	}
	if lookups == nil {
		lookups = &lookup.Tables{}
	}
	return &Generator{
		FacilityCode:  facilityCode,
		UnifiedSecond: unifiedSecond,
		Lookups:       lookups,
		Now:           time.Now(),
	}, nil
}

// Generate renders the export rows into the declared, indented document
// bytes. The rows are rendered in the order given.
func (g *Generator) Generate(rows []worksheet.ExportRow) ([]byte, error) {
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	doc := &Document{}
	for _, row := range rows {
		doc.Cases = append(doc.Cases, g.buildCase(row))
	}
	return Marshal(doc)
}

// Marshal serializes a document with two-space indentation and the
// Big5 declaration.
func Marshal(doc *Document) ([]byte, error) {
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("nhixml: marshal: %w", err)
	}
	out := make([]byte, 0, len(Declaration)+len(body)+1)
	out = append(out, Declaration...)
	out = append(out, body...)
	out = append(out, '\n')
	return out, nil
}

func (g *Generator) buildCase(row worksheet.ExportRow) Case {
	c := Case{
		ReportType:      ReportType,
		FacilityCode:    g.FacilityCode,
		MedicalCategory: MedicalCategory,
		CaseType:        CaseType,
		VisitSeq:        g.visitSeq(row),
		CardReplacement: CardReplacement,
		NationalID:      row.Patient.DisplayID,
		DiagnosisCode:   DiagnosisCode,
		GeneratedAt:     rocdate.Stamp(g.Now),
		TestName:        TestName,
		TransferFlag:    TransferFlag,
	}

	if len(row.Date) >= 5 {
		c.YearMonth = row.Date[:5]
	} else {
		c.YearMonth = rocdate.YearMonth(g.Now)
	}
	if row.Date != "" && row.Time != "" {
		c.CardTime = row.Date + row.Time
	} else {
		c.CardTime = rocdate.Stamp(g.Now)
	}
	if row.Date != "" {
		c.VisitDate = row.Date
		c.TreatDate = row.Date
	}
	if row.Date != "" && row.Time != "" {
		t := row.Time
		if len(t) > 4 {
			t = t[:4]
		}
		c.ExamTime = row.Date + t
	}
	if birth, ok := g.Lookups.BirthDates[patientid.Normalize(row.Patient.ID)]; ok {
		c.BirthDate = birth
	}

	reportTime := ""
	if row.Date != "" && row.Time != "" {
		reportTime = plusOneMinute(row.Date, row.Time, g.UnifiedSecond)
	}
	if row.Systolic > 0 {
		c.Readings = append(c.Readings, g.reading(SystolicSeq, SystolicName, SystolicReference, row.Systolic, reportTime))
	}
	if row.Diastolic > 0 {
		c.Readings = append(c.Readings, g.reading(DiastolicSeq, DiastolicName, DiastolicReference, row.Diastolic, reportTime))
	}
	return c
}

func (g *Generator) reading(seq, name, reference string, value int, reportTime string) ReadingData {
	return ReadingData{
		Seq:        seq,
		Name:       name,
		Method:     TestMethod,
		Value:      strconv.Itoa(value),
		Unit:       Unit,
		Reference:  reference,
		Facility:   g.FacilityCode,
		ReportTime: reportTime,
	}
}

// visitSeq resolves h7 from the visit-sequence table. A hit strips the
// three-digit era prefix and left-pads to four; zero or empty falls
// back to the default sequence. A miss uses the blood-pressure item
// code instead.
func (g *Generator) visitSeq(row worksheet.ExportRow) string {
	if row.Patient.ID == "" || row.Date == "" {
		return DefaultVisitSeq
	}
	seq, ok := g.Lookups.VisitSequences[lookup.VisitKey(row.Patient.ID, row.Date)]
	if !ok {
		return BPItemCode
	}
	value := DefaultVisitSeq
	if len(seq) > 3 {
		value = seq[3:]
		for len(value) < 4 {
			value = "0" + value
		}
	}
	if value == "" || value == "0000" {
		value = DefaultVisitSeq
	}
	return value
}

// plusOneMinute shifts the measurement timestamp forward one minute and
// substitutes the run's unified second. Minute 59 carries into the
// hour; hour 23 wraps to 00 without touching the date, matching the
// upstream system's expectations.
func plusOneMinute(date, clock string, second int) string {
	if len(clock) < 6 {
		return date + clock
	}
	hour, err := strconv.Atoi(clock[:2])
	if err != nil {
		return date + clock
	}
	minute, err := strconv.Atoi(clock[2:4])
	if err != nil {
		return date + clock
	}
	minute++
	if minute >= 60 {
		minute = 0
		hour++
		if hour >= 24 {
			hour = 0
		}
	}
	return fmt.Sprintf("%s%02d%02d%02d", date, hour, minute, second)
}
