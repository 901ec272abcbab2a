package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Date layouts accepted for row dates, split by year width so 2-digit years
// can be pivoted into the right century.
var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
)

// twoDigitYearPivot caps how far in the future a 2-digit year may land before
// it is pushed back a century. With pivot 20 in 2025: "46" is 1946, "24" is 2024.
var twoDigitYearPivot = 20

// ParsedRow holds the four canonical field values projected out of one source
// CSV row, before any type coercion.
type ParsedRow struct {
	Date     string `json:"date"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Amount   string `json:"amount"`
}

// Row wraps a ParsedRow for validation against the row-level rules: the date
// must parse as a calendar date, the amount as a decimal, and name and
// category must be non-blank. Rows are transient; they are re-derived from the
// import's raw CSV on every pass and never persisted.
type Row struct {
	ParsedRow
	Line int // 1-based data row number, for error messages
}

// Validate returns every rule violation on the row.
func (r Row) Validate() ValidationErrors {
	var errs ValidationErrors

	if _, err := ParseDate(r.Date); err != nil {
		errs = append(errs, ValidationError{Field: FieldDate, Message: fmt.Sprintf("%q is not a valid date", r.Date)})
	}
	if r.Name == "" {
		errs = append(errs, ValidationError{Field: FieldName, Message: "can't be blank"})
	}
	if r.Category == "" {
		errs = append(errs, ValidationError{Field: FieldCategory, Message: "can't be blank"})
	}
	if _, err := ParseAmount(r.Amount); err != nil {
		errs = append(errs, ValidationError{Field: FieldAmount, Message: fmt.Sprintf("%q is not a valid amount", r.Amount)})
	}

	return errs
}

// Valid reports whether the row passes all rules.
func (r Row) Valid() bool { return !r.Validate().Any() }

// ParseDate parses a cell into a calendar date. Unambiguous 4-digit-year
// layouts are tried first; 2-digit years are pivoted so dates never land more
// than twoDigitYearPivot years in the future.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	pivotYear := time.Now().Year() + twoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// ParseAmount parses a cell into a decimal. Currency symbols, thousands
// separators and the accounting negative form "(123.45)" are tolerated.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	for _, sym := range []string{"$", "€", "£", ","} {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.TrimSpace(s)
	if negative {
		s = "-" + s
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("unrecognized amount: %w", err)
	}
	return d, nil
}
