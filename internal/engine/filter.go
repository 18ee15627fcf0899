package engine

import (
	"strings"

	"github.com/lazypower/tether/internal/model"
)

// MatchesQuery reports whether the query is a case-insensitive substring of
// the contact's name, any tag, notes, whereWeMet or howWeMet (OR semantics
// across fields). An empty query matches everything.
func MatchesQuery(c model.Contact, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(c.Name), q) {
		return true
	}
	for _, tag := range c.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(c.Notes), q) ||
		strings.Contains(strings.ToLower(c.WhereWeMet), q) ||
		strings.Contains(strings.ToLower(c.HowWeMet), q)
}

// SearchContacts returns the contacts matching the free-text query,
// preserving input order. An empty query returns the input unchanged.
func SearchContacts(contacts []model.Contact, query string) []model.Contact {
	if query == "" {
		return contacts
	}
	var out []model.Contact
	for _, c := range contacts {
		if MatchesQuery(c, query) {
			out = append(out, c)
		}
	}
	return out
}

// FilterContacts produces the visible list for the UI. A non-empty
// free-text query takes precedence and bypasses the relationship filter
// entirely; otherwise a relationship other than "" or "all" narrows the
// list to that category. Relative order is always preserved.
func FilterContacts(contacts []model.Contact, query, relationship string) []model.Contact {
	if query != "" {
		return SearchContacts(contacts, query)
	}
	if relationship == "" || relationship == "all" {
		return contacts
	}
	var out []model.Contact
	for _, c := range contacts {
		if string(c.Relationship) == relationship {
			out = append(out, c)
		}
	}
	return out
}
