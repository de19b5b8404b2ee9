package patient

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type fakeSource struct {
	rows []map[string]string
}

func (f *fakeSource) NumRecords() int { return len(f.rows) }

func (f *fakeSource) Field(row int, name string) string {
	if row < 0 || row >= len(f.rows) {
		return ""
	}
	return f.rows[row][name]
}

func demoRow(pid, natID, name, reg string) map[string]string {
	return map[string]string{"PAT_PID": pid, "PAT_ID": natID, "PAT_NAMEC": name, "REG_DATE": reg}
}

func TestLoadSkipsBlankAndSentinel(t *testing.T) {
	src := &fakeSource{rows: []map[string]string{
		demoRow("", "A123456789", "無號", "1100101"),
		demoRow("0000000", "B123456789", "哨兵", "1100101"),
		demoRow("480319", "C123456789", "陳小明", "1100101"),
	}}
	roster := Load(src)
	if len(roster.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(roster.Records))
	}
	if roster.Records[0].ID != "480319" {
		t.Errorf("ID = %q, want 480319", roster.Records[0].ID)
	}
	if roster.Total != 3 {
		t.Errorf("Total = %d, want 3", roster.Total)
	}
}

func TestLoadDeduplicatesOnRawID(t *testing.T) {
	src := &fakeSource{rows: []map[string]string{
		demoRow("480319", "C1", "第一筆", "1100101"),
		demoRow("480319", "C2", "重複", "1100102"),
		// A differently-padded id is a distinct raw key on purpose.
		demoRow("0480319", "C3", "補零", "1100103"),
	}}
	roster := Load(src)
	if len(roster.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(roster.Records))
	}
	if roster.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", roster.Duplicates)
	}
	// First occurrence survives.
	if roster.Records[0].Name != "第一筆" {
		t.Errorf("surviving row = %q, want 第一筆", roster.Records[0].Name)
	}
}

func TestLoadPreservesSourceOrder(t *testing.T) {
	src := &fakeSource{rows: []map[string]string{
		demoRow("3", "", "丙", ""),
		demoRow("1", "", "甲", ""),
		demoRow("2", "", "乙", ""),
	}}
	roster := Load(src)
	got := roster.IDs()
	want := []string{"3", "1", "2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("IDs = %v, want %v", got, want)
		}
	}
}

func TestReadIDList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.txt")
	if err := os.WriteFile(path, []byte("480319\n\n  860718  \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ids, err := ReadIDList(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "480319" || ids[1] != "860718" {
		t.Errorf("ids = %v", ids)
	}

	if _, err := ReadIDList(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing list file")
	}
}

func TestFilterMatchesCanonicalForm(t *testing.T) {
	src := &fakeSource{rows: []map[string]string{
		demoRow("480319", "", "甲", ""),
		demoRow("860718", "", "乙", ""),
		demoRow("12345", "", "丙", ""),
	}}
	roster := Load(src)

	// Padded spelling selects the unpadded row and vice versa.
	got := roster.Filter([]string{"0480319", "12345"})
	if len(got.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got.Records))
	}
	if got.Records[0].ID != "480319" || got.Records[1].ID != "12345" {
		t.Errorf("filtered IDs = %v", got.IDs())
	}
}

func TestLoadFileMissingIsFatal(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "VISHFAM.DBF"))
	if !errors.Is(err, ErrRegistryUnreadable) {
		t.Fatalf("expected ErrRegistryUnreadable, got %v", err)
	}
}
