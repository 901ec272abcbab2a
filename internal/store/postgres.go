package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cashfolio/cashfolio/internal/domain"
	"github.com/cashfolio/cashfolio/internal/importer"
)

// DBTX is the subset of pgx operations the store uses. Satisfied by both
// *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	db DBTX
}

// NewPostgres wraps a pool (or transaction) in a Store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{db: pool}
}

var _ Store = (*Postgres)(nil)

// --- imports ---

func (p *Postgres) CreateImport(ctx context.Context, im *importer.Import) error {
	mappings, err := marshalMapping(im.Mapping)
	if err != nil {
		return err
	}
	_, err = p.db.Exec(ctx, `
		INSERT INTO imports (id, account_id, raw_csv, column_mappings, status, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, im.ID, im.AccountID, im.RawCSV, mappings, im.Status, im.LastError, im.CreatedAt, im.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert import: %w", err)
	}
	return nil
}

func (p *Postgres) GetImport(ctx context.Context, id uuid.UUID) (*importer.Import, error) {
	row := p.db.QueryRow(ctx, `
		SELECT id, account_id, raw_csv, column_mappings, status, last_error, created_at, updated_at
		FROM imports WHERE id = $1
	`, id)

	im := &importer.Import{}
	var mappings []byte
	err := row.Scan(&im.ID, &im.AccountID, &im.RawCSV, &mappings, &im.Status, &im.LastError, &im.CreatedAt, &im.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("import %s: %w", id, importer.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get import: %w", err)
	}

	if im.Mapping, err = unmarshalMapping(mappings); err != nil {
		return nil, err
	}
	return im, nil
}

func (p *Postgres) UpdateImport(ctx context.Context, im *importer.Import) error {
	mappings, err := marshalMapping(im.Mapping)
	if err != nil {
		return err
	}
	tag, err := p.db.Exec(ctx, `
		UPDATE imports
		SET raw_csv = $2, column_mappings = $3, status = $4, last_error = $5, updated_at = $6
		WHERE id = $1
	`, im.ID, im.RawCSV, mappings, im.Status, im.LastError, im.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update import: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("import %s: %w", im.ID, importer.ErrNotFound)
	}
	return nil
}

func (p *Postgres) DeleteImport(ctx context.Context, id uuid.UUID) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM imports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete import: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("import %s: %w", id, importer.ErrNotFound)
	}
	return nil
}

func (p *Postgres) TransitionImport(ctx context.Context, id uuid.UUID, from, next importer.Status) (bool, error) {
	tag, err := p.db.Exec(ctx, `
		UPDATE imports SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
	`, id, from, next)
	if err != nil {
		return false, fmt.Errorf("transition import: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (p *Postgres) FailImport(ctx context.Context, id uuid.UUID, msg string) error {
	_, err := p.db.Exec(ctx, `
		UPDATE imports SET status = $2, last_error = $3, updated_at = now()
		WHERE id = $1
	`, id, importer.StatusFailed, msg)
	if err != nil {
		return fmt.Errorf("fail import: %w", err)
	}
	return nil
}

// --- families and accounts ---

func (p *Postgres) CreateFamily(ctx context.Context, f *domain.Family) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO families (id, name, currency, created_at) VALUES ($1, $2, $3, $4)
	`, f.ID, f.Name, f.Currency, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert family: %w", err)
	}
	return nil
}

func (p *Postgres) GetFamily(ctx context.Context, id uuid.UUID) (*domain.Family, error) {
	row := p.db.QueryRow(ctx, `SELECT id, name, currency, created_at FROM families WHERE id = $1`, id)

	f := &domain.Family{}
	err := row.Scan(&f.ID, &f.Name, &f.Currency, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("family %s: %w", id, importer.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get family: %w", err)
	}
	return f, nil
}

func (p *Postgres) CreateAccount(ctx context.Context, a *domain.Account) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO accounts (id, family_id, name, accountable_type, currency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, a.ID, a.FamilyID, a.Name, a.Accountable, a.Currency, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (p *Postgres) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	row := p.db.QueryRow(ctx, `
		SELECT id, family_id, name, accountable_type, currency, created_at
		FROM accounts WHERE id = $1
	`, id)

	a := &domain.Account{}
	err := row.Scan(&a.ID, &a.FamilyID, &a.Name, &a.Accountable, &a.Currency, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", id, importer.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (p *Postgres) ListAccounts(ctx context.Context, familyID uuid.UUID) ([]*domain.Account, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, family_id, name, accountable_type, currency, created_at
		FROM accounts WHERE family_id = $1 ORDER BY name
	`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		a := &domain.Account{}
		if err := rows.Scan(&a.ID, &a.FamilyID, &a.Name, &a.Accountable, &a.Currency, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// --- categories ---

// FindOrCreateCategory resolves a category by exact name within the family,
// creating it on first reference. The upsert rides the unique index on
// (family_id, name), so concurrent imports racing on the same name converge
// on a single row.
func (p *Postgres) FindOrCreateCategory(ctx context.Context, familyID uuid.UUID, name string) (*domain.Category, error) {
	row := p.db.QueryRow(ctx, `
		INSERT INTO categories (id, family_id, name, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (family_id, name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, family_id, name, created_at
	`, uuid.New(), familyID, name, time.Now().UTC())

	c := &domain.Category{}
	if err := row.Scan(&c.ID, &c.FamilyID, &c.Name, &c.CreatedAt); err != nil {
		return nil, fmt.Errorf("find or create category %q: %w", name, err)
	}
	return c, nil
}

// --- transactions ---

func (p *Postgres) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO transactions (id, account_id, category_id, date, name, amount, currency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, tx.ID, tx.AccountID, tx.CategoryID, tx.Date, tx.Name, tx.Amount.String(), tx.Currency, tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (p *Postgres) ListTransactions(ctx context.Context, accountID uuid.UUID) ([]*domain.Transaction, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, account_id, category_id, date, name, amount::text, currency, created_at
		FROM transactions WHERE account_id = $1 ORDER BY date, created_at
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*domain.Transaction
	for rows.Next() {
		tx := &domain.Transaction{}
		var amount string
		if err := rows.Scan(&tx.ID, &tx.AccountID, &tx.CategoryID, &tx.Date, &tx.Name, &amount, &tx.Currency, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if tx.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// --- exchange rates ---

func (p *Postgres) FindRate(ctx context.Context, base, converted string, date time.Time) (*domain.ExchangeRate, error) {
	row := p.db.QueryRow(ctx, `
		SELECT base_currency, converted_currency, date, rate::text
		FROM exchange_rates
		WHERE base_currency = $1 AND converted_currency = $2 AND date = $3
	`, base, converted, date)

	r := &domain.ExchangeRate{}
	var rate string
	err := row.Scan(&r.BaseCurrency, &r.ConvertedCurrency, &r.Date, &rate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("rate %s/%s: %w", base, converted, importer.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find rate: %w", err)
	}
	if r.Rate, err = decimal.NewFromString(rate); err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", rate, err)
	}
	return r, nil
}

func (p *Postgres) SaveRate(ctx context.Context, r *domain.ExchangeRate) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO exchange_rates (base_currency, converted_currency, date, rate)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (base_currency, converted_currency, date) DO UPDATE SET rate = EXCLUDED.rate
	`, r.BaseCurrency, r.ConvertedCurrency, r.Date, r.Rate.String())
	if err != nil {
		return fmt.Errorf("save rate: %w", err)
	}
	return nil
}

// --- helpers ---

func marshalMapping(m *importer.ColumnMapping) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal column mappings: %w", err)
	}
	return b, nil
}

func unmarshalMapping(b []byte) (*importer.ColumnMapping, error) {
	if len(b) == 0 {
		return nil, nil
	}
	m := &importer.ColumnMapping{}
	if err := json.Unmarshal(b, m); err != nil {
		return nil, fmt.Errorf("unmarshal column mappings: %w", err)
	}
	return m, nil
}
