// Package nhixml builds the regulatory upload document: one <patient>
// root holding an <hdata> case per exported measurement, each with
// nested <rdata> result segments for the systolic and diastolic values.
package nhixml

import "encoding/xml"

// Codes mandated by the insurance bureau's upload format.
const (
	ReportType      = "1"      // h1 report class
	MedicalCategory = "11"     // h3, western medicine
	CaseType        = "01"     // h6, outpatient
	CardReplacement = "1"      // h8
	DiagnosisCode   = "Y00006" // h15, hypertension related
	BPItemCode      = "0023"   // treatment item for blood pressure
	DefaultVisitSeq = "Z000"   // h7 when the visit table has no usable row
	TransferFlag    = "0"      // h26

	TestName   = "血壓"
	TestMethod = "診間血壓監測(OBPM)"
	Unit       = "mmHg"

	SystolicSeq  = "1"
	DiastolicSeq = "2"

	SystolicName  = "收縮壓"
	DiastolicName = "舒張壓"

	SystolicReference  = "90-130"
	DiastolicReference = "60-80"
)

// Declaration replaces the stock UTF-8 xml.Header; the receiving system
// insists on a Big5 declaration.
const Declaration = `<?xml version="1.0" encoding="Big5"?>` + "\n"

// Document is the <patient> root element.
type Document struct {
	XMLName xml.Name `xml:"patient"`
	Cases   []Case   `xml:"hdata"`
}

// Case is one <hdata> block. Optional tags are omitted entirely when
// the source data lacks them, matching what the bureau accepts.
type Case struct {
	ReportType      string        `xml:"h1"`
	FacilityCode    string        `xml:"h2"`
	MedicalCategory string        `xml:"h3"`
	YearMonth       string        `xml:"h4"`
	CardTime        string        `xml:"h5"`
	CaseType        string        `xml:"h6"`
	VisitSeq        string        `xml:"h7"`
	CardReplacement string        `xml:"h8"`
	NationalID      string        `xml:"h9,omitempty"`
	BirthDate       string        `xml:"h10,omitempty"`
	VisitDate       string        `xml:"h11,omitempty"`
	TreatDate       string        `xml:"h12,omitempty"`
	DiagnosisCode   string        `xml:"h15"`
	GeneratedAt     string        `xml:"h16"`
	ExamTime        string        `xml:"h20,omitempty"`
	TestName        string        `xml:"h22"`
	TransferFlag    string        `xml:"h26"`
	Readings        []ReadingData `xml:"rdata"`
}

// ReadingData is one <rdata> result segment.
type ReadingData struct {
	Seq        string `xml:"r1"`
	Name       string `xml:"r2"`
	Method     string `xml:"r3"`
	Value      string `xml:"r4"`
	Unit       string `xml:"r5"`
	Reference  string `xml:"r6-1"`
	Facility   string `xml:"r9"`
	ReportTime string `xml:"r10,omitempty"`
}
