package leadsheet

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// ReadCSV parses a CSV lead sheet. Rows may have a variable number of fields.
func ReadCSV(r io.Reader) (*Sheet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "csv: read")
	}
	if len(records) > 0 && len(records[0]) > 0 {
		// Excel exports often start with a UTF-8 BOM.
		records[0][0] = trimBOM(records[0][0])
	}
	return fromRecords(records)
}

// ReadCSVFile opens and parses a CSV lead sheet.
func ReadCSVFile(path string) (*Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "csv: open file")
	}
	defer f.Close() //nolint:errcheck
	return ReadCSV(f)
}

// WriteCSV writes the header and rows, padding short rows to the header width.
func WriteCSV(w io.Writer, s *Sheet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(s.Header); err != nil {
		return eris.Wrap(err, "csv: write header")
	}
	for _, row := range s.Rows {
		if err := cw.Write(padRow(row, len(s.Header))); err != nil {
			return eris.Wrap(err, "csv: write row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "csv: flush")
}

// WriteCSVFile creates path and writes the sheet to it.
func WriteCSVFile(path string, s *Sheet) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "csv: create file")
	}
	if err := WriteCSV(f, s); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return eris.Wrap(f.Close(), "csv: close file")
}

func padRow(row []string, n int) []string {
	if len(row) >= n {
		return row
	}
	out := make([]string, n)
	copy(out, row)
	return out
}

func trimBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}
