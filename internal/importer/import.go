package importer

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an import.
type Status string

const (
	StatusPending   Status = "pending"
	StatusImporting Status = "importing"
	StatusComplete  Status = "complete"
	StatusFailed    Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusImporting, StatusComplete, StatusFailed:
		return true
	}
	return false
}

// Import is a user-initiated batch job that turns one CSV file into
// transactions for one account. It moves through pending → importing →
// complete or failed; once complete, its raw CSV and mapping are frozen.
type Import struct {
	ID        uuid.UUID      `json:"id"`
	AccountID uuid.UUID      `json:"account_id"`
	RawCSV    string         `json:"raw_csv"`
	Mapping   *ColumnMapping `json:"column_mappings"`
	Status    Status         `json:"status"`
	LastError string         `json:"last_error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewImport creates a pending import for the given account.
func NewImport(accountID uuid.UUID) *Import {
	now := time.Now().UTC()
	return &Import{
		ID:        uuid.New(),
		AccountID: accountID,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Complete reports whether the import finished successfully. Mutations are
// rejected once this is true.
func (im *Import) Complete() bool { return im.Status == StatusComplete }

// Loaded reports whether CSV text has been uploaded.
func (im *Import) Loaded() bool { return im.RawCSV != "" }

// Configured reports whether a column mapping has been supplied.
func (im *Import) Configured() bool { return im.Mapping != nil }

// Cleaned reports whether the import is loaded, configured, and every row
// passes validation. It is the gate before publishing.
func (im *Import) Cleaned() bool {
	return im.Loaded() && im.Configured() && im.CSVValid()
}

// CSVValid reports whether every mapped row individually validates.
func (im *Import) CSVValid() bool {
	for _, row := range im.Rows() {
		if !row.Valid() {
			return false
		}
	}
	return true
}

// guardMutation rejects any write once the import is complete.
func (im *Import) guardMutation() ValidationErrors {
	if im.Complete() {
		return ValidationErrors{{Message: "update not allowed on a completed import"}}
	}
	return nil
}

// UpdateRawCSV validates and applies new CSV text. The text must be
// non-empty, parse as CSV, and carry at least four header columns. If a
// mapping is already set it is re-checked against the new headers. On any
// error the import is left unchanged.
func (im *Import) UpdateRawCSV(raw string) ValidationErrors {
	if errs := im.guardMutation(); errs.Any() {
		return errs
	}

	if raw == "" {
		return ValidationErrors{{Field: "raw_csv", Message: "can't be empty"}}
	}

	parsed, err := Parse(raw)
	if err != nil {
		return ValidationErrors{{Field: "raw_csv", Message: "is not a valid CSV format"}}
	}
	if len(parsed.Headers) < 4 {
		return ValidationErrors{{Field: "raw_csv", Message: "must have at least 4 columns"}}
	}

	if im.Mapping != nil {
		if errs := im.Mapping.Validate(parsed); errs.Any() {
			return errs
		}
	}

	im.RawCSV = raw
	im.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateMapping validates and applies a column mapping against the currently
// loaded CSV. A nil mapping clears the configuration. On any error the import
// is left unchanged.
func (im *Import) UpdateMapping(m *ColumnMapping) ValidationErrors {
	if errs := im.guardMutation(); errs.Any() {
		return errs
	}

	if m != nil {
		parsed, err := Parse(im.RawCSV)
		if err != nil {
			return ValidationErrors{{Field: "raw_csv", Message: "is not a valid CSV format"}}
		}
		if errs := m.Validate(parsed); errs.Any() {
			return errs
		}
	}

	im.Mapping = m
	im.UpdatedAt = time.Now().UTC()
	return nil
}

// RowsMapped projects the four canonical fields out of every source row using
// the current mapping. The result is re-derived from the raw CSV on every
// call; imports are small enough that re-parsing beats caching.
func (im *Import) RowsMapped() []ParsedRow {
	if !im.Loaded() || !im.Configured() {
		return nil
	}

	parsed, err := Parse(im.RawCSV)
	if err != nil {
		return nil
	}

	rows := make([]ParsedRow, 0, len(parsed.Rows))
	for _, src := range parsed.Rows {
		rows = append(rows, ParsedRow{
			Date:     src[im.Mapping.Date],
			Name:     src[im.Mapping.Name],
			Category: src[im.Mapping.Category],
			Amount:   src[im.Mapping.Amount],
		})
	}
	return rows
}

// Rows wraps every mapped row in a validatable Row.
func (im *Import) Rows() []Row {
	mapped := im.RowsMapped()
	rows := make([]Row, len(mapped))
	for i, pr := range mapped {
		rows[i] = Row{ParsedRow: pr, Line: i + 1}
	}
	return rows
}
