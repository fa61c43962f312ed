// Package contacts implements the dashboard view over a user's contacts:
// free-text search, company filtering and sorting.
package contacts

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/Bruhadev45/Cardsnap-AI/internal/domain"
)

type Sort string

const (
	SortNameAsc     Sort = "name-asc"
	SortNameDesc    Sort = "name-desc"
	SortCompanyAsc  Sort = "company-asc"
	SortCompanyDesc Sort = "company-desc"
	SortDateNewest  Sort = "date-newest"
	SortDateOldest  Sort = "date-oldest"
)

// Sorts lists every option in menu order.
var Sorts = []Sort{SortNameAsc, SortNameDesc, SortCompanyAsc, SortCompanyDesc, SortDateNewest, SortDateOldest}

// ParseSort maps a query value to a Sort. Empty selects SortDateNewest.
func ParseSort(s string) (Sort, error) {
	if s == "" {
		return SortDateNewest, nil
	}
	for _, opt := range Sorts {
		if string(opt) == s {
			return opt, nil
		}
	}
	return "", fmt.Errorf("unknown sort %q", s)
}

func (s Sort) Label() string {
	switch s {
	case SortNameAsc:
		return "Name (A-Z)"
	case SortNameDesc:
		return "Name (Z-A)"
	case SortCompanyAsc:
		return "Company (A-Z)"
	case SortCompanyDesc:
		return "Company (Z-A)"
	case SortDateOldest:
		return "Oldest First"
	default:
		return "Newest First"
	}
}

// Filter selects and orders contacts. The zero value keeps everything,
// newest first.
type Filter struct {
	Query     string
	Companies []string
	Sort      Sort
}

// Matches reports whether c passes the search term and company selection.
func (f Filter) Matches(c *domain.Contact) bool {
	return f.matchesQuery(c) && f.matchesCompany(c)
}

func (f Filter) matchesQuery(c *domain.Contact) bool {
	term := strings.ToLower(strings.TrimSpace(f.Query))
	if term == "" {
		return true
	}
	for _, v := range []string{c.FullName, c.Company, c.JobTitle, c.Email, c.Phone} {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

func (f Filter) matchesCompany(c *domain.Contact) bool {
	if len(f.Companies) == 0 {
		return true
	}
	return c.Company != "" && slices.Contains(f.Companies, c.Company)
}

// Apply returns the matching contacts in the requested order. The input
// slice is not modified.
func (f Filter) Apply(all []*domain.Contact) []*domain.Contact {
	out := make([]*domain.Contact, 0, len(all))
	for _, c := range all {
		if c != nil && f.Matches(c) {
			out = append(out, c)
		}
	}

	col := collate.New(language.English)
	text := func(a, b string) int { return col.CompareString(a, b) }

	switch f.Sort {
	case SortNameAsc:
		slices.SortStableFunc(out, func(a, b *domain.Contact) int { return text(a.FullName, b.FullName) })
	case SortNameDesc:
		slices.SortStableFunc(out, func(a, b *domain.Contact) int { return text(b.FullName, a.FullName) })
	case SortCompanyAsc:
		slices.SortStableFunc(out, func(a, b *domain.Contact) int { return text(a.Company, b.Company) })
	case SortCompanyDesc:
		slices.SortStableFunc(out, func(a, b *domain.Contact) int { return text(b.Company, a.Company) })
	case SortDateOldest:
		slices.SortStableFunc(out, func(a, b *domain.Contact) int { return a.ScannedAt.Compare(b.ScannedAt) })
	default:
		slices.SortStableFunc(out, func(a, b *domain.Contact) int { return b.ScannedAt.Compare(a.ScannedAt) })
	}
	return out
}

// UniqueCompanies returns the distinct non-blank companies, sorted.
func UniqueCompanies(all []*domain.Contact) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range all {
		if c == nil || strings.TrimSpace(c.Company) == "" {
			continue
		}
		if _, ok := seen[c.Company]; ok {
			continue
		}
		seen[c.Company] = struct{}{}
		out = append(out, c.Company)
	}
	slices.Sort(out)
	return out
}
