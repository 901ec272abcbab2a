package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cashfolio/cashfolio/internal/domain"
	"github.com/cashfolio/cashfolio/internal/importer"
)

// Memory is an in-memory Store. It is safe for concurrent use and backs tests
// and single-process development; data is lost on restart.
type Memory struct {
	mu           sync.RWMutex
	families     map[uuid.UUID]*domain.Family
	accounts     map[uuid.UUID]*domain.Account
	categories   map[uuid.UUID]*domain.Category
	imports      map[uuid.UUID]*importer.Import
	transactions map[uuid.UUID]*domain.Transaction
	rates        map[string]*domain.ExchangeRate
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		families:     make(map[uuid.UUID]*domain.Family),
		accounts:     make(map[uuid.UUID]*domain.Account),
		categories:   make(map[uuid.UUID]*domain.Category),
		imports:      make(map[uuid.UUID]*importer.Import),
		transactions: make(map[uuid.UUID]*domain.Transaction),
		rates:        make(map[string]*domain.ExchangeRate),
	}
}

var _ Store = (*Memory)(nil)

// --- imports ---

func (m *Memory) CreateImport(ctx context.Context, im *importer.Import) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := copyImport(im)
	m.imports[im.ID] = cp
	return nil
}

func (m *Memory) GetImport(ctx context.Context, id uuid.UUID) (*importer.Import, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	im, ok := m.imports[id]
	if !ok {
		return nil, fmt.Errorf("import %s: %w", id, importer.ErrNotFound)
	}
	return copyImport(im), nil
}

func (m *Memory) UpdateImport(ctx context.Context, im *importer.Import) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.imports[im.ID]; !ok {
		return fmt.Errorf("import %s: %w", im.ID, importer.ErrNotFound)
	}
	m.imports[im.ID] = copyImport(im)
	return nil
}

func (m *Memory) DeleteImport(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.imports[id]; !ok {
		return fmt.Errorf("import %s: %w", id, importer.ErrNotFound)
	}
	delete(m.imports, id)
	return nil
}

func (m *Memory) TransitionImport(ctx context.Context, id uuid.UUID, from, next importer.Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	im, ok := m.imports[id]
	if !ok {
		return false, fmt.Errorf("import %s: %w", id, importer.ErrNotFound)
	}
	if im.Status != from {
		return false, nil
	}
	im.Status = next
	im.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *Memory) FailImport(ctx context.Context, id uuid.UUID, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	im, ok := m.imports[id]
	if !ok {
		return fmt.Errorf("import %s: %w", id, importer.ErrNotFound)
	}
	im.Status = importer.StatusFailed
	im.LastError = msg
	im.UpdatedAt = time.Now().UTC()
	return nil
}

// --- families and accounts ---

func (m *Memory) CreateFamily(ctx context.Context, f *domain.Family) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *f
	m.families[f.ID] = &cp
	return nil
}

func (m *Memory) GetFamily(ctx context.Context, id uuid.UUID) (*domain.Family, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.families[id]
	if !ok {
		return nil, fmt.Errorf("family %s: %w", id, importer.ErrNotFound)
	}
	cp := *f
	return &cp, nil
}

func (m *Memory) CreateAccount(ctx context.Context, a *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *a
	m.accounts[a.ID] = &cp
	return nil
}

func (m *Memory) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, importer.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (m *Memory) ListAccounts(ctx context.Context, familyID uuid.UUID) ([]*domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var accounts []*domain.Account
	for _, a := range m.accounts {
		if a.FamilyID == familyID {
			cp := *a
			accounts = append(accounts, &cp)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Name < accounts[j].Name })
	return accounts, nil
}

// --- categories ---

func (m *Memory) FindOrCreateCategory(ctx context.Context, familyID uuid.UUID, name string) (*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.categories {
		if c.FamilyID == familyID && c.Name == name {
			cp := *c
			return &cp, nil
		}
	}

	c := &domain.Category{
		ID:        uuid.New(),
		FamilyID:  familyID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	m.categories[c.ID] = c
	cp := *c
	return &cp, nil
}

// --- transactions ---

func (m *Memory) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *tx
	m.transactions[tx.ID] = &cp
	return nil
}

func (m *Memory) ListTransactions(ctx context.Context, accountID uuid.UUID) ([]*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var txs []*domain.Transaction
	for _, tx := range m.transactions {
		if tx.AccountID == accountID {
			cp := *tx
			txs = append(txs, &cp)
		}
	}
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.Before(txs[j].Date)
		}
		return txs[i].CreatedAt.Before(txs[j].CreatedAt)
	})
	return txs, nil
}

// --- exchange rates ---

func (m *Memory) FindRate(ctx context.Context, base, converted string, date time.Time) (*domain.ExchangeRate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rates[rateKey(base, converted, date)]
	if !ok {
		return nil, fmt.Errorf("rate %s/%s: %w", base, converted, importer.ErrNotFound)
	}
	cp := *r
	return &cp, nil
}

func (m *Memory) SaveRate(ctx context.Context, r *domain.ExchangeRate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *r
	m.rates[rateKey(r.BaseCurrency, r.ConvertedCurrency, r.Date)] = &cp
	return nil
}

func rateKey(base, converted string, date time.Time) string {
	return base + "/" + converted + "@" + date.Format("2006-01-02")
}

// copyImport clones an import, including its mapping, so callers cannot
// mutate stored state without going through the store.
func copyImport(im *importer.Import) *importer.Import {
	cp := *im
	if im.Mapping != nil {
		mcp := *im.Mapping
		cp.Mapping = &mcp
	}
	return &cp
}
