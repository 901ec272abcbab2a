package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cashfolio/cashfolio/internal/domain"
	"github.com/cashfolio/cashfolio/internal/logging"
)

// ErrNotFound is returned when a referenced import or account does not exist.
// Store implementations wrap it so callers can match with errors.Is.
var ErrNotFound = errors.New("not found")

// Store is the persistence the import workflow needs. Implementations must
// provide validation-before-write semantics: TransitionImport is a
// compare-and-swap on status, and FindOrCreateCategory must be atomic per
// family so concurrent imports cannot create duplicate category names.
type Store interface {
	CreateImport(ctx context.Context, im *Import) error
	GetImport(ctx context.Context, id uuid.UUID) (*Import, error)
	UpdateImport(ctx context.Context, im *Import) error
	DeleteImport(ctx context.Context, id uuid.UUID) error

	// TransitionImport sets the status to next only when the current status
	// is from, reporting whether the swap happened.
	TransitionImport(ctx context.Context, id uuid.UUID, from, next Status) (bool, error)
	// FailImport sets the status to failed and records the error message.
	FailImport(ctx context.Context, id uuid.UUID, msg string) error

	GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	FindOrCreateCategory(ctx context.Context, familyID uuid.UUID, name string) (*domain.Category, error)
	CreateTransaction(ctx context.Context, tx *domain.Transaction) error
}

// Publisher enqueues an import id for asynchronous publishing. Delivery is
// at-least-once; Publish tolerates duplicates via its status guard.
type Publisher interface {
	PublishImport(ctx context.Context, importID uuid.UUID) error
}

// Service drives the import workflow: load CSV, configure the mapping, clean,
// and publish rows as transactions.
type Service struct {
	store Store
	queue Publisher
}

// NewService creates a Service. queue may be nil when asynchronous publishing
// is not wired (tests, one-shot tools); PublishLater then falls back to a
// synchronous publish.
func NewService(store Store, queue Publisher) *Service {
	return &Service{store: store, queue: queue}
}

// Create starts a pending import for the account.
func (s *Service) Create(ctx context.Context, accountID uuid.UUID) (*Import, error) {
	if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		return nil, fmt.Errorf("create import: %w", err)
	}

	im := NewImport(accountID)
	if err := s.store.CreateImport(ctx, im); err != nil {
		return nil, fmt.Errorf("create import: %w", err)
	}
	return im, nil
}

// Get returns the import by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Import, error) {
	return s.store.GetImport(ctx, id)
}

// UpdateCSV replaces the import's raw CSV text. Validation failures are
// returned as ValidationErrors and nothing is persisted.
func (s *Service) UpdateCSV(ctx context.Context, id uuid.UUID, raw string) (*Import, error) {
	im, err := s.store.GetImport(ctx, id)
	if err != nil {
		return nil, err
	}

	if errs := im.UpdateRawCSV(raw); errs.Any() {
		return nil, errs
	}
	if err := s.store.UpdateImport(ctx, im); err != nil {
		return nil, fmt.Errorf("update csv: %w", err)
	}
	return im, nil
}

// UpdateMappings replaces the import's column mapping. Validation failures are
// returned as ValidationErrors and nothing is persisted.
func (s *Service) UpdateMappings(ctx context.Context, id uuid.UUID, m *ColumnMapping) (*Import, error) {
	im, err := s.store.GetImport(ctx, id)
	if err != nil {
		return nil, err
	}

	if errs := im.UpdateMapping(m); errs.Any() {
		return nil, errs
	}
	if err := s.store.UpdateImport(ctx, im); err != nil {
		return nil, fmt.Errorf("update mappings: %w", err)
	}
	return im, nil
}

// Preview returns the mapped rows for UI display before commit.
func (s *Service) Preview(ctx context.Context, id uuid.UUID) ([]ParsedRow, error) {
	im, err := s.store.GetImport(ctx, id)
	if err != nil {
		return nil, err
	}
	return im.RowsMapped(), nil
}

// SuggestedMapping proposes a column mapping for the import's CSV headers.
func (s *Service) SuggestedMapping(ctx context.Context, id uuid.UUID) (*ColumnMapping, error) {
	im, err := s.store.GetImport(ctx, id)
	if err != nil {
		return nil, err
	}

	parsed, err := Parse(im.RawCSV)
	if err != nil {
		return nil, ValidationErrors{{Field: "raw_csv", Message: "is not a valid CSV format"}}
	}
	return SuggestMapping(parsed.Headers), nil
}

// Destroy deletes the import. Transactions already committed from it are kept;
// they belong to the account, not the import.
func (s *Service) Destroy(ctx context.Context, id uuid.UUID) error {
	return s.store.DeleteImport(ctx, id)
}

// PublishLater enqueues the publish for background execution.
func (s *Service) PublishLater(ctx context.Context, id uuid.UUID) error {
	if s.queue == nil {
		return s.Publish(ctx, id)
	}
	return s.queue.PublishImport(ctx, id)
}

// Publish materializes the import's rows as transactions. The status moves to
// importing immediately (a compare-and-swap, so a duplicate delivery for an
// import that already left pending is a logged no-op), then to complete on
// success or failed on the first row error. A materialization failure is
// recorded on the import and logged, never returned: the only errors Publish
// reports are infrastructure failures the queue should retry.
func (s *Service) Publish(ctx context.Context, id uuid.UUID) error {
	log := logging.ForImport(ctx, id)

	im, err := s.store.GetImport(ctx, id)
	if err != nil {
		return fmt.Errorf("publish import %s: %w", id, err)
	}

	ok, err := s.store.TransitionImport(ctx, id, StatusPending, StatusImporting)
	if err != nil {
		return fmt.Errorf("publish import %s: %w", id, err)
	}
	if !ok {
		log.Info("skipping publish, import is not pending", "status", im.Status)
		return nil
	}

	start := time.Now()
	count, err := s.materialize(ctx, im)
	if err != nil {
		log.Error("import failed", "error", err, "rows_committed", count)
		if ferr := s.store.FailImport(ctx, id, err.Error()); ferr != nil {
			log.Error("could not record import failure", "error", ferr)
		}
		return nil
	}

	if _, err := s.store.TransitionImport(ctx, id, StatusImporting, StatusComplete); err != nil {
		return fmt.Errorf("publish import %s: %w", id, err)
	}

	log.Info("import complete",
		"rows", count,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// materialize commits every row strictly in source order, halting at the first
// failure. Rows committed before the failure stay committed; the batch is not
// wrapped in one transaction.
func (s *Service) materialize(ctx context.Context, im *Import) (int, error) {
	account, err := s.store.GetAccount(ctx, im.AccountID)
	if err != nil {
		return 0, fmt.Errorf("resolve account: %w", err)
	}

	for i, row := range im.Rows() {
		if err := s.materializeRow(ctx, account, row); err != nil {
			return i, fmt.Errorf("row %d: %w", row.Line, err)
		}
	}
	return len(im.Rows()), nil
}

// materializeRow converts one validated row into a persisted transaction,
// creating the category on first reference. The CSV amount convention is
// inverted relative to the internal ledger sign, so the amount is negated.
func (s *Service) materializeRow(ctx context.Context, account *domain.Account, row Row) error {
	date, err := ParseDate(row.Date)
	if err != nil {
		return err
	}
	amount, err := ParseAmount(row.Amount)
	if err != nil {
		return err
	}

	category, err := s.store.FindOrCreateCategory(ctx, account.FamilyID, row.Category)
	if err != nil {
		return fmt.Errorf("category %q: %w", row.Category, err)
	}

	return s.store.CreateTransaction(ctx, &domain.Transaction{
		ID:         uuid.New(),
		AccountID:  account.ID,
		CategoryID: category.ID,
		Date:       date,
		Name:       row.Name,
		Amount:     amount.Neg(),
		Currency:   account.Currency,
		CreatedAt:  time.Now().UTC(),
	})
}
