package capture

import (
	"strings"

	"github.com/Bruhadev45/Cardsnap-AI/internal/domain"
)

// IsDuplicate reports whether existing matches candidate on email (exact),
// phone (exact) or full name (case-insensitive). Empty candidate fields never
// match.
func IsDuplicate(candidate, existing *domain.Contact) bool {
	if candidate.Email != "" && existing.Email == candidate.Email {
		return true
	}
	if candidate.Phone != "" && existing.Phone == candidate.Phone {
		return true
	}
	if candidate.FullName != "" && strings.ToLower(existing.FullName) == strings.ToLower(candidate.FullName) {
		return true
	}
	return false
}

// FindDuplicates returns every contact in existing that IsDuplicate flags.
// A contact with the candidate's own ID is skipped.
func FindDuplicates(candidate *domain.Contact, existing []*domain.Contact) []*domain.Contact {
	var matches []*domain.Contact
	for _, c := range existing {
		if c == nil || (c.ID != "" && c.ID == candidate.ID) {
			continue
		}
		if IsDuplicate(candidate, c) {
			matches = append(matches, c)
		}
	}
	return matches
}
