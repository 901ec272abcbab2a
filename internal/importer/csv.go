package importer

import (
	"encoding/csv"
	"errors"
	"strings"
)

// ErrMalformedCSV is returned by Parse when the input violates CSV quoting or
// escaping rules. Callers surface it as a field error, never raw.
var ErrMalformedCSV = errors.New("malformed csv")

// ParsedCSV is the result of parsing raw CSV text. The first input row is the
// header row; every remaining row is keyed by header with cells trimmed.
type ParsedCSV struct {
	Headers []string
	Rows    []map[string]string
}

// Parse reads raw CSV text into headers and header-keyed rows. Cells are
// whitespace-trimmed. Rows shorter than the header row leave the missing
// fields empty; extra cells beyond the headers are dropped. Empty input
// produces zero headers and zero rows without error.
func Parse(raw string) (*ParsedCSV, error) {
	r := csv.NewReader(strings.NewReader(raw))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, ErrMalformedCSV
	}

	parsed := &ParsedCSV{}
	if len(records) == 0 {
		return parsed, nil
	}

	for _, h := range records[0] {
		parsed.Headers = append(parsed.Headers, strings.TrimSpace(h))
	}

	for _, record := range records[1:] {
		row := make(map[string]string, len(parsed.Headers))
		for i, header := range parsed.Headers {
			if i < len(record) {
				row[header] = strings.TrimSpace(record[i])
			} else {
				row[header] = ""
			}
		}
		parsed.Rows = append(parsed.Rows, row)
	}

	return parsed, nil
}

// HasHeader reports whether the parsed headers contain name.
func (p *ParsedCSV) HasHeader(name string) bool {
	for _, h := range p.Headers {
		if h == name {
			return true
		}
	}
	return false
}
