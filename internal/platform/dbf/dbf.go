// Package dbf provides read-only access to the dBASE tables exported by
// the clinic HIS. A table is opened, fully read into memory, and released
// within a single operation; no cursor survives across calls.
package dbf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/LindsayBradford/go-dbf/godbf"
)

var (
	// ErrNotFound reports that the table file does not exist.
	ErrNotFound = errors.New("table file not found")
	// ErrNotPermitted reports that the table file exists but cannot be
	// read, typically because the HIS still holds it open.
	ErrNotPermitted = errors.New("table file not readable")
)

// Source is the sequential record access the domain loaders consume.
// *Table satisfies it; tests substitute in-memory fakes.
type Source interface {
	NumRecords() int
	// Field returns the trimmed value of the named column in the given
	// row, or "" when the column does not exist.
	Field(row int, name string) string
}

// Table is a fully-loaded DBF table.
type Table struct {
	dt *godbf.DbfTable
}

// Open reads the DBF file at path. The returned error distinguishes a
// missing file, a permission failure, and any other I/O problem so the
// caller can surface an actionable message.
func Open(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("dbf: %w: %s", ErrNotFound, path)
		case errors.Is(err, fs.ErrPermission):
			return nil, fmt.Errorf("dbf: %w: %s", ErrNotPermitted, path)
		default:
			return nil, fmt.Errorf("dbf: open %s: %w", path, err)
		}
	}
	f.Close()

	dt, err := godbf.NewFromFile(path, "big5")
	if err != nil {
		return nil, fmt.Errorf("dbf: read %s: %w", path, err)
	}
	return &Table{dt: dt}, nil
}

// NumRecords returns the number of rows in the table.
func (t *Table) NumRecords() int {
	return t.dt.NumberOfRecords()
}

// Field returns the trimmed value of the named column in row, or "" when
// the row or column is absent. Per-record problems never abort a scan.
func (t *Table) Field(row int, name string) string {
	v, err := t.dt.FieldValueByName(row, name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v)
}
