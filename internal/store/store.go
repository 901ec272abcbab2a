// Package store provides persistence for imports, accounts, categories,
// transactions and exchange rates, with a Postgres implementation for
// production and an in-memory implementation for tests and development.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cashfolio/cashfolio/internal/domain"
	"github.com/cashfolio/cashfolio/internal/importer"
)

// Store is the full persistence surface: everything the import pipeline needs
// plus the family, account and exchange-rate operations the web layer uses.
type Store interface {
	importer.Store

	CreateFamily(ctx context.Context, f *domain.Family) error
	GetFamily(ctx context.Context, id uuid.UUID) (*domain.Family, error)

	CreateAccount(ctx context.Context, a *domain.Account) error
	ListAccounts(ctx context.Context, familyID uuid.UUID) ([]*domain.Account, error)

	ListTransactions(ctx context.Context, accountID uuid.UUID) ([]*domain.Transaction, error)

	// FindRate returns the stored rate for the currency pair on the given day,
	// or importer.ErrNotFound when none exists.
	FindRate(ctx context.Context, base, converted string, date time.Time) (*domain.ExchangeRate, error)
	SaveRate(ctx context.Context, r *domain.ExchangeRate) error
}
