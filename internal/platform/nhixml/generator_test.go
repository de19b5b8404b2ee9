package nhixml

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bp2vpn/bp2vpn/internal/domain/lookup"
	"github.com/bp2vpn/bp2vpn/internal/domain/patient"
	"github.com/bp2vpn/bp2vpn/internal/domain/worksheet"
)

func TestValidateFacilityCode(t *testing.T) {
	cases := []struct {
		code string
		ok   bool
	}{
		{"3522013684", true},
		{"352201368", false},   // nine digits
		{"35220136840", false}, // eleven digits
		{"35220A3684", false},
		{"", false},
	}
	for _, tc := range cases {
		err := ValidateFacilityCode(tc.code)
		if tc.ok && err != nil {
			t.Errorf("ValidateFacilityCode(%q) = %v, want nil", tc.code, err)
		}
		if !tc.ok && !errors.Is(err, ErrBadFacilityCode) {
			t.Errorf("ValidateFacilityCode(%q) = %v, want ErrBadFacilityCode", tc.code, err)
		}
	}
}

func TestNewGeneratorRejectsBadCode(t *testing.T) {
	if _, err := NewGenerator("352201368", 0, nil); !errors.Is(err, ErrBadFacilityCode) {
		t.Fatalf("err = %v, want ErrBadFacilityCode", err)
	}
}

func testGenerator(t *testing.T, tables *lookup.Tables) *Generator {
	t.Helper()
	g, err := NewGenerator("3522013684", 7, tables)
	if err != nil {
		t.Fatal(err)
	}
	g.Now = time.Date(2024, 6, 20, 10, 15, 30, 0, time.Local)
	return g
}

func exportRow() worksheet.ExportRow {
	return worksheet.ExportRow{
		Patient:   patient.Record{ID: "480319", DisplayID: "A123456789", Name: "陳小明"},
		Systolic:  128,
		Diastolic: 82,
		Date:      "1130615",
		Time:      "093045",
	}
}

func TestGenerateEmptyFails(t *testing.T) {
	g := testGenerator(t, nil)
	if _, err := g.Generate(nil); !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
}

func TestGenerateDocumentShape(t *testing.T) {
	g := testGenerator(t, nil)
	out, err := g.Generate([]worksheet.ExportRow{exportRow()})
	if err != nil {
		t.Fatal(err)
	}
	xml := string(out)

	if !strings.HasPrefix(xml, `<?xml version="1.0" encoding="Big5"?>`) {
		t.Error("missing Big5 declaration")
	}
	for _, want := range []string{
		"<patient>",
		"<hdata>",
		"<h1>1</h1>",
		"<h2>3522013684</h2>",
		"<h3>11</h3>",
		"<h4>11306</h4>",
		"<h5>1130615093045</h5>",
		"<h6>01</h6>",
		"<h8>1</h8>",
		"<h9>A123456789</h9>",
		"<h11>1130615</h11>",
		"<h12>1130615</h12>",
		"<h15>Y00006</h15>",
		"<h16>1130620101530</h16>",
		"<h20>11306150930</h20>",
		"<h22>血壓</h22>",
		"<h26>0</h26>",
		"<r1>1</r1>",
		"<r2>收縮壓</r2>",
		"<r3>診間血壓監測(OBPM)</r3>",
		"<r4>128</r4>",
		"<r5>mmHg</r5>",
		"<r6-1>90-130</r6-1>",
		"<r9>3522013684</r9>",
		"<r1>2</r1>",
		"<r2>舒張壓</r2>",
		"<r4>82</r4>",
		"<r6-1>60-80</r6-1>",
	} {
		if !strings.Contains(xml, want) {
			t.Errorf("document missing %s", want)
		}
	}
	// Birth date is unknown here, so the tag stays out entirely.
	if strings.Contains(xml, "<h10>") {
		t.Error("unexpected h10 without a birth-date lookup hit")
	}
}

func TestGenerateVisitSeqResolution(t *testing.T) {
	tables := &lookup.Tables{
		BirthDates: map[string]string{"0480319": "0650419"},
		VisitSequences: map[string]string{
			lookup.VisitKey("480319", "1130615"): "1130042",
		},
	}
	g := testGenerator(t, tables)

	out, err := g.Generate([]worksheet.ExportRow{exportRow()})
	if err != nil {
		t.Fatal(err)
	}
	xml := string(out)
	if !strings.Contains(xml, "<h7>0042</h7>") {
		t.Error("era prefix should be stripped and the remainder padded to 4")
	}
	if !strings.Contains(xml, "<h10>0650419</h10>") {
		t.Error("birth date lookup hit should emit h10")
	}
}

func TestVisitSeqFallbacks(t *testing.T) {
	tables := &lookup.Tables{VisitSequences: map[string]string{
		lookup.VisitKey("1", "1130601"): "1130000", // zero remainder
		lookup.VisitKey("2", "1130601"): "113",     // too short to strip
	}}
	g := testGenerator(t, tables)

	row := func(id string) worksheet.ExportRow {
		return worksheet.ExportRow{
			Patient: patient.Record{ID: id},
			Date:    "1130601",
		}
	}
	if got := g.visitSeq(row("1")); got != DefaultVisitSeq {
		t.Errorf("zero remainder: h7 = %q, want %q", got, DefaultVisitSeq)
	}
	if got := g.visitSeq(row("2")); got != DefaultVisitSeq {
		t.Errorf("short value: h7 = %q, want %q", got, DefaultVisitSeq)
	}
	// A patient with no visit row at all takes the item code, not the
	// default sequence.
	if got := g.visitSeq(row("3")); got != BPItemCode {
		t.Errorf("table miss: h7 = %q, want %q", got, BPItemCode)
	}
}

func TestPlusOneMinute(t *testing.T) {
	cases := []struct {
		clock string
		want  string
	}{
		{"093045", "1130615093107"}, // plain advance, unified second 07
		{"095945", "1130615100007"}, // minute carries into the hour
		{"235930", "1130615000007"}, // hour wraps, date untouched
		{"0930", "11306150930"},     // short clocks pass through unchanged
	}
	for _, tc := range cases {
		if got := plusOneMinute("1130615", tc.clock, 7); got != tc.want {
			t.Errorf("plusOneMinute(%q) = %q, want %q", tc.clock, got, tc.want)
		}
	}
}

func TestUnifiedSecondIsStable(t *testing.T) {
	g := testGenerator(t, nil)
	rows := []worksheet.ExportRow{exportRow(), func() worksheet.ExportRow {
		r := exportRow()
		r.Patient.ID = "860718"
		r.Time = "141500"
		return r
	}()}

	out, err := g.Generate(rows)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(out), "07</r10>"); n != 4 {
		t.Errorf("expected all 4 r10 tags to end in the unified second, got %d", n)
	}
}
