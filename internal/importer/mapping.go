package importer

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Canonical field names every import must resolve from the source headers.
const (
	FieldDate     = "date"
	FieldName     = "name"
	FieldCategory = "category"
	FieldAmount   = "amount"
)

// requiredFields is the canonical order: date, name, category, amount.
var requiredFields = []string{FieldDate, FieldName, FieldCategory, FieldAmount}

// ColumnMapping binds each canonical field to a header in the uploaded CSV.
// The shape is fixed so a missing key is impossible to overlook: an empty
// field means the user has not chosen a header for it yet. A nil
// *ColumnMapping means the import is not configured at all, which is valid
// until a mapping is actually supplied.
type ColumnMapping struct {
	Date     string `json:"date"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Amount   string `json:"amount"`
}

// headerFor returns the header chosen for the canonical field.
func (m *ColumnMapping) headerFor(field string) string {
	switch field {
	case FieldDate:
		return m.Date
	case FieldName:
		return m.Name
	case FieldCategory:
		return m.Category
	case FieldAmount:
		return m.Amount
	}
	return ""
}

// setHeader binds the canonical field to header.
func (m *ColumnMapping) setHeader(field, header string) {
	switch field {
	case FieldDate:
		m.Date = header
	case FieldName:
		m.Name = header
	case FieldCategory:
		m.Category = header
	case FieldAmount:
		m.Amount = header
	}
}

// Validate checks the mapping against the parsed CSV headers. Every canonical
// field must be bound, and each bound header must actually exist in the CSV.
// Errors name the offending field (and header, when one was chosen).
func (m *ColumnMapping) Validate(csv *ParsedCSV) ValidationErrors {
	var errs ValidationErrors

	for _, field := range requiredFields {
		header := m.headerFor(field)
		if header == "" {
			errs = append(errs, ValidationError{
				Field:   "column_mappings",
				Message: fmt.Sprintf("must contain the key %s", field),
			})
		}
		if !csv.HasHeader(header) {
			errs = append(errs, ValidationError{
				Message: fmt.Sprintf("column map has key %s, but could not find %s in raw csv input", field, field),
			})
		}
	}

	return errs
}

// DefaultMapping binds canonical fields to headers by position: first header
// is the date, then name, category, amount. When the CSV has fewer than four
// headers the canonical field name itself stands in as a placeholder.
func DefaultMapping(headers []string) *ColumnMapping {
	m := &ColumnMapping{}
	for i, field := range requiredFields {
		header := field
		if i < len(headers) && headers[i] != "" {
			header = headers[i]
		}
		m.setHeader(field, header)
	}
	return m
}

// headerSynonyms lists alternate spellings commonly seen in bank exports.
var headerSynonyms = map[string][]string{
	FieldDate:     {"date", "transaction date", "posted", "posting date"},
	FieldName:     {"name", "merchant", "description", "payee", "details"},
	FieldCategory: {"category", "type", "group"},
	FieldAmount:   {"amount", "value", "debit", "total"},
}

// maxSuggestDistance is the edit-distance budget for a fuzzy header match.
const maxSuggestDistance = 3

// SuggestMapping proposes a mapping by fuzzy-matching each canonical field
// against the CSV headers: exact synonym matches win, then the header with the
// smallest edit distance within budget. Fields with no plausible header fall
// back to the positional default, so the result is always complete.
func SuggestMapping(headers []string) *ColumnMapping {
	m := DefaultMapping(headers)
	used := make(map[string]bool)

	for _, field := range requiredFields {
		if header, ok := bestHeader(field, headers, used); ok {
			m.setHeader(field, header)
			used[header] = true
		}
	}
	return m
}

// bestHeader finds the unused header closest to any synonym of field.
func bestHeader(field string, headers []string, used map[string]bool) (string, bool) {
	best := ""
	bestDist := maxSuggestDistance + 1

	for _, header := range headers {
		if used[header] {
			continue
		}
		h := strings.ToLower(strings.TrimSpace(header))
		for _, syn := range headerSynonyms[field] {
			d := levenshtein.ComputeDistance(h, syn)
			if d < bestDist {
				best = header
				bestDist = d
			}
		}
	}

	return best, best != ""
}
