package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bruhadev45/Cardsnap-AI/internal/domain"
)

var scanned = time.Date(2026, 3, 1, 14, 5, 9, 0, time.UTC)

func ann() *domain.Contact {
	return &domain.Contact{
		ID: "c1",
		CardFields: domain.CardFields{
			FullName: "Ann Lee",
			JobTitle: "CTO",
			Company:  `Acme "Rockets", Inc.`,
			Email:    "ann@acme.com",
			Phone:    "+1 555 0100",
			Website:  "acme.com",
			Address:  "1 Main St\nSpringfield",
		},
		ScannedAt: scanned,
	}
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, []*domain.Contact{ann(), {ScannedAt: scanned}}, nil))

	lines := strings.Split(buf.String(), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Name,Job Title,Company,Email,Phone,Website,Address,Scanned Date", lines[0])
	assert.Equal(t, `"Ann Lee","CTO","Acme ""Rockets"", Inc.","ann@acme.com","+1 555 0100","acme.com","1 Main St`, lines[1])
	assert.Equal(t, `Springfield","3/1/2026, 2:05:09 PM"`, lines[2])
	assert.Equal(t, `"","","","","","","","3/1/2026, 2:05:09 PM"`, lines[3])
}

func TestCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, nil, nil))
	assert.Equal(t, "Name,Job Title,Company,Email,Phone,Website,Address,Scanned Date", buf.String())
}

func TestCSVLocation(t *testing.T) {
	var buf bytes.Buffer
	loc := time.FixedZone("UTC-5", -5*60*60)
	require.NoError(t, CSV(&buf, []*domain.Contact{{ScannedAt: scanned}}, loc))
	assert.Contains(t, buf.String(), `"3/1/2026, 9:05:09 AM"`)
}

func TestExcelCSVHasBOM(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExcelCSV(&buf, []*domain.Contact{ann()}, nil))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte{0xEF, 0xBB, 0xBF}))
	assert.True(t, strings.HasPrefix(strings.TrimPrefix(buf.String(), "\uFEFF"), "Name,"))
}

func TestVCard(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, VCard(&buf, ann()))
	assert.Equal(t, strings.Join([]string{
		"BEGIN:VCARD",
		"VERSION:3.0",
		"FN:Ann Lee",
		`ORG:Acme "Rockets", Inc.`,
		"TITLE:CTO",
		"EMAIL:ann@acme.com",
		"TEL:+1 555 0100",
		"URL:acme.com",
		"ADR:;;1 Main St\nSpringfield",
		"END:VCARD",
	}, "\n"), buf.String())
}

func TestVCardOmitsEmptyFields(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, VCard(&buf, &domain.Contact{CardFields: domain.CardFields{Email: "x@y.z"}}))
	assert.Equal(t, "BEGIN:VCARD\nVERSION:3.0\nFN:\nEMAIL:x@y.z\nEND:VCARD", buf.String())
}

func TestFileNames(t *testing.T) {
	assert.Equal(t, "CardSnap_Contacts_2026-03-01.csv", FileName(scanned))
	assert.Equal(t, "Ann_Lee.vcf", VCardFileName(ann()))
	assert.Equal(t, "Jos__O_Brien.vcf", VCardFileName(&domain.Contact{CardFields: domain.CardFields{FullName: "José O'Brien"}}))
}
