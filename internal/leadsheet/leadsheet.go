// Package leadsheet reads and writes the CSV/XLSX lead tables handled by the
// batch command.
package leadsheet

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Column headers read from and written to lead sheets.
const (
	ColCompany       = "Company Name"
	ColFirstName     = "First Name"
	ColLastName      = "Last Name"
	ColEmail         = "Email"
	ColTitle         = "Title"
	ColLinkedIn      = "LinkedIn URL"
	ColWebsite       = "Website"
	ColCustomization = "Customization"
	ColAlt1          = "Alt Line 1"
	ColAlt2          = "Alt Line 2"
	ColScrapePath    = "Scrape Path"
)

// aliases maps a canonical column to other header spellings seen in exports.
var aliases = map[string][]string{
	ColCompany:   {"company", "company name", "organization", "account name"},
	ColFirstName: {"first name", "firstname", "first"},
	ColLastName:  {"last name", "lastname", "last"},
	ColEmail:     {"email", "email address", "work email"},
	ColTitle:     {"title", "job title"},
	ColLinkedIn:  {"linkedin url", "linkedin", "person linkedin url"},
	ColWebsite:   {"website", "website url", "company website", "url", "domain"},
}

// Format identifies a sheet file type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatOf derives the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", eris.Errorf("leadsheet: unsupported file type %q", filepath.Ext(path))
}

// Sheet is a header row plus data rows. Unknown columns are carried through
// untouched.
type Sheet struct {
	Header []string
	Rows   [][]string
}

// Len returns the number of data rows.
func (s *Sheet) Len() int { return len(s.Rows) }

// column returns the index of name (or one of its aliases), or -1.
func (s *Sheet) column(name string) int {
	want := append([]string{strings.ToLower(name)}, aliases[name]...)
	for _, w := range want {
		for i, h := range s.Header {
			if strings.EqualFold(strings.TrimSpace(h), w) {
				return i
			}
		}
	}
	return -1
}

// Get returns the trimmed cell for row i and column name, or "".
func (s *Sheet) Get(i int, name string) string {
	c := s.column(name)
	if c < 0 || i < 0 || i >= len(s.Rows) || c >= len(s.Rows[i]) {
		return ""
	}
	return strings.TrimSpace(s.Rows[i][c])
}

// Set writes a cell, appending the column to the header when missing.
func (s *Sheet) Set(i int, name, value string) {
	if i < 0 || i >= len(s.Rows) {
		return
	}
	c := s.column(name)
	if c < 0 {
		s.Header = append(s.Header, name)
		c = len(s.Header) - 1
	}
	for len(s.Rows[i]) <= c {
		s.Rows[i] = append(s.Rows[i], "")
	}
	s.Rows[i][c] = value
}

// Target returns the pipeline input for row i.
func (s *Sheet) Target(i int) model.Target {
	return model.Target{URL: s.Get(i, ColWebsite), Company: s.Get(i, ColCompany)}
}

// Lead returns the lead fields of row i.
func (s *Sheet) Lead(i int) model.Lead {
	return model.Lead{
		FirstName:   s.Get(i, ColFirstName),
		LastName:    s.Get(i, ColLastName),
		Email:       s.Get(i, ColEmail),
		Title:       s.Get(i, ColTitle),
		Company:     s.Get(i, ColCompany),
		WebsiteURL:  s.Get(i, ColWebsite),
		LinkedInURL: s.Get(i, ColLinkedIn),
	}
}

// Fill writes the best line, two alternates and the crawl path into row i.
func (s *Sheet) Fill(i int, res *model.Result) {
	path := model.PathNone
	if res != nil && res.Path != "" {
		path = res.Path
	}
	s.Set(i, ColCustomization, res.Best())
	s.Set(i, ColAlt1, res.Alt(1))
	s.Set(i, ColAlt2, res.Alt(2))
	s.Set(i, ColScrapePath, string(path))
}

// EnsureOutputColumns appends any missing output columns to the header.
func (s *Sheet) EnsureOutputColumns() {
	for _, col := range []string{ColCustomization, ColAlt1, ColAlt2, ColScrapePath} {
		if s.column(col) < 0 {
			s.Header = append(s.Header, col)
		}
	}
}

// Read loads a sheet from a .csv or .xlsx file.
func Read(path string) (*Sheet, error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	if f == FormatXLSX {
		return ReadXLSX(path, XLSXOptions{})
	}
	return ReadCSVFile(path)
}

// Write saves a sheet as .csv or .xlsx based on the path extension.
func Write(path string, s *Sheet) error {
	f, err := FormatOf(path)
	if err != nil {
		return err
	}
	if f == FormatXLSX {
		return WriteXLSX(path, s)
	}
	return WriteCSVFile(path, s)
}

func fromRecords(records [][]string) (*Sheet, error) {
	if len(records) == 0 {
		return nil, eris.New("leadsheet: empty sheet")
	}
	s := &Sheet{Header: records[0]}
	for _, r := range records[1:] {
		if isBlank(r) {
			continue
		}
		s.Rows = append(s.Rows, r)
	}
	if s.column(ColWebsite) < 0 && s.column(ColCompany) < 0 {
		return nil, eris.Errorf("leadsheet: header needs %q or %q column", ColWebsite, ColCompany)
	}
	return s, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
