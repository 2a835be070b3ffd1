// Package fieldtax maps document field paths to change categories.
//
// The mapping is an explicit, injectable table rather than a hidden
// module-level lookup so callers can extend or replace categories
// without touching the diff engine.
package fieldtax

import "strings"

// Category classifies what kind of data a field holds. The category of
// a changed field drives its base risk.
type Category string

const (
	CategoryFinancial  Category = "financial"
	CategoryIdentity   Category = "identity"
	CategorySignature  Category = "signature"
	CategoryDate       Category = "date"
	CategoryStructural Category = "structural"
	CategoryOther      Category = "other"
)

// Categories lists every category in descending default-risk order.
var Categories = []Category{
	CategoryFinancial,
	CategoryIdentity,
	CategorySignature,
	CategoryDate,
	CategoryStructural,
	CategoryOther,
}

// Table maps path substrings to categories. Substrings are matched
// case-insensitively against the full dotted path; the first matching
// category in priority order wins, so "signature_date" classifies as
// signature, not date.
type Table struct {
	// Priority is the match order. Categories not listed are never
	// matched by substring.
	Priority []Category

	// Substrings holds, per category, the path fragments that select it.
	Substrings map[Category][]string
}

// Default returns the built-in taxonomy covering common loan-document
// field names.
func Default() *Table {
	return &Table{
		Priority: []Category{
			CategorySignature,
			CategoryFinancial,
			CategoryIdentity,
			CategoryDate,
		},
		Substrings: map[Category][]string{
			CategorySignature: {"signature", "signed_by", "notary"},
			CategoryFinancial: {"amount", "rate", "income", "balance", "payment", "price", "salary", "loan"},
			CategoryIdentity:  {"ssn", "name", "address", "email", "phone", "dob", "license", "passport"},
			CategoryDate:      {"date", "timestamp", "_at"},
		},
	}
}

// Classify returns the category for a field path, or CategoryOther when
// no substring matches.
func (t *Table) Classify(path string) Category {
	lower := strings.ToLower(path)
	for _, cat := range t.Priority {
		for _, sub := range t.Substrings[cat] {
			if strings.Contains(lower, sub) {
				return cat
			}
		}
	}
	return CategoryOther
}
