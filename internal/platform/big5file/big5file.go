// Package big5file serializes generated documents in the Big5 encoding
// mandated by the NHI upload interface. Encoding is validated for the
// whole document before a single byte reaches disk; a partial or corrupt
// file is never produced.
package big5file

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"
)

// UnencodableError reports every rune in the document that has no Big5
// representation. Patient names occasionally contain characters outside
// the repertoire (堃, 煊, 栢 are common offenders).
type UnencodableError struct {
	Chars []rune
}

func (e *UnencodableError) Error() string {
	return fmt.Sprintf("big5file: %d character(s) cannot be encoded as Big5: %s", len(e.Chars), e.List())
}

// List renders the offending characters as a single string for display.
func (e *UnencodableError) List() string {
	var b strings.Builder
	for _, r := range e.Chars {
		b.WriteRune(r)
	}
	return b.String()
}

// Encode converts text to Big5, or returns an *UnencodableError listing
// the exact offending characters (sorted, deduplicated).
func Encode(text string) ([]byte, error) {
	out, _, err := transform.Bytes(traditionalchinese.Big5.NewEncoder(), []byte(text))
	if err == nil {
		return out, nil
	}

	seen := make(map[rune]bool)
	var bad []rune
	for _, r := range text {
		if seen[r] {
			continue
		}
		if _, _, encErr := transform.Bytes(traditionalchinese.Big5.NewEncoder(), []byte(string(r))); encErr != nil {
			seen[r] = true
			bad = append(bad, r)
		}
	}
	sort.Slice(bad, func(i, j int) bool { return bad[i] < bad[j] })
	return nil, &UnencodableError{Chars: bad}
}

// WriteFile encodes text and writes it to path in one step. On encoding
// failure no file is created or touched.
func WriteFile(path, text string) error {
	data, err := Encode(text)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("big5file: write %s: %w", path, err)
	}
	return nil
}

// WriteZip encodes text and writes it as the sole entry of a deflate
// zip archive at path. The entry name is the archive base name with an
// .xml extension, matching what the VPN upload portal expects.
func WriteZip(path, text string) error {
	data, err := Encode(text)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("big5file: create %s: %w", path, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	entry := EntryName(path)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: entry, Method: zip.Deflate})
	if err != nil {
		zw.Close()
		return fmt.Errorf("big5file: create zip entry %s: %w", entry, err)
	}
	if _, err := w.Write(data); err != nil {
		zw.Close()
		return fmt.Errorf("big5file: write zip entry %s: %w", entry, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("big5file: finalize %s: %w", path, err)
	}
	return nil
}

// EntryName derives the archive's single entry name from the zip path:
// TOTFA.zip carries TOTFA.xml.
func EntryName(zipPath string) string {
	base := filepath.Base(zipPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return stem + ".xml"
}
