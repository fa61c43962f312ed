// Package export renders contacts as CSV for spreadsheets and as vCard 3.0
// for address books.
package export

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/Bruhadev45/Cardsnap-AI/internal/domain"
)

const (
	CSVContentType   = "text/csv; charset=utf-8"
	VCardContentType = "text/vcard; charset=utf-8"
)

// ScannedDateLayout matches the en-US locale string the mobile app shows.
const ScannedDateLayout = "1/2/2006, 3:04:05 PM"

const utf8BOM = "\uFEFF"

var header = []string{"Name", "Job Title", "Company", "Email", "Phone", "Website", "Address", "Scanned Date"}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// quote wraps every field in double quotes regardless of content, which
// encoding/csv cannot be told to do.
func quote(field string) string {
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

func renderCSV(contacts []*domain.Contact, loc *time.Location) string {
	lines := make([]string, 0, len(contacts)+1)
	lines = append(lines, strings.Join(header, ","))
	for _, c := range contacts {
		fields := []string{
			c.FullName, c.JobTitle, c.Company, c.Email, c.Phone, c.Website, c.Address,
			c.ScannedAt.In(loc).Format(ScannedDateLayout),
		}
		for i, f := range fields {
			fields[i] = quote(f)
		}
		lines = append(lines, strings.Join(fields, ","))
	}
	return strings.Join(lines, "\n")
}

// CSV writes contacts with a header row. Scan dates are rendered in loc; nil
// means UTC.
func CSV(w io.Writer, contacts []*domain.Contact, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	if _, err := io.WriteString(w, renderCSV(contacts, loc)); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// ExcelCSV is CSV prefixed with a UTF-8 byte order mark so Excel detects the
// encoding.
func ExcelCSV(w io.Writer, contacts []*domain.Contact, loc *time.Location) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return CSV(w, contacts, loc)
}

// VCard writes c as a single vCard 3.0 entry. Empty fields are omitted,
// except FN which is always present.
func VCard(w io.Writer, c *domain.Contact) error {
	lines := []string{"BEGIN:VCARD", "VERSION:3.0", "FN:" + c.FullName}
	optional := []struct{ prop, value string }{
		{"ORG:", c.Company},
		{"TITLE:", c.JobTitle},
		{"EMAIL:", c.Email},
		{"TEL:", c.Phone},
		{"URL:", c.Website},
		{"ADR:;;", c.Address},
	}
	for _, o := range optional {
		if o.value != "" {
			lines = append(lines, o.prop+o.value)
		}
	}
	lines = append(lines, "END:VCARD")

	if _, err := io.WriteString(w, strings.Join(lines, "\n")); err != nil {
		return fmt.Errorf("failed to write vcard: %w", err)
	}
	return nil
}

// FileName is the download name for a CSV export made at now.
func FileName(now time.Time) string {
	return "CardSnap_Contacts_" + now.UTC().Format("2006-01-02") + ".csv"
}

// VCardFileName derives a file name from the contact's name, replacing every
// character outside [a-zA-Z0-9] with an underscore.
func VCardFileName(c *domain.Contact) string {
	return unsafeFileChars.ReplaceAllString(c.FullName, "_") + ".vcf"
}
