// Package domain holds the financial entities shared across the application:
// families, accounts, categories, transactions and exchange rates.
package domain

import (
	"fmt"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
)

// AccountableType identifies the kind of financial account. The set is closed:
// behavior differences between kinds are switched on this tag rather than
// modeled as open-ended subtypes.
type AccountableType string

const (
	AccountableDepository AccountableType = "depository"
	AccountableLoan       AccountableType = "loan"
	AccountableTrade      AccountableType = "trade"
)

// Valid reports whether t is one of the known account kinds.
func (t AccountableType) Valid() bool {
	switch t {
	case AccountableDepository, AccountableLoan, AccountableTrade:
		return true
	}
	return false
}

// Classification returns the ledger side the account kind sits on.
func (t AccountableType) Classification() string {
	if t == AccountableLoan {
		return "liability"
	}
	return "asset"
}

// Family is the tenant boundary. Accounts and categories are scoped to a
// family; nothing crosses it.
type Family struct {
	ID        uuid.UUID
	Name      string
	Currency  string
	CreatedAt time.Time
}

// Account is a financial account owned by one family.
type Account struct {
	ID          uuid.UUID
	FamilyID    uuid.UUID
	Name        string
	Accountable AccountableType
	Currency    string
	CreatedAt   time.Time
}

// Validate checks the fields a caller-supplied account must carry before it
// can be persisted.
func (a *Account) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("account name can't be blank")
	}
	if !a.Accountable.Valid() {
		return fmt.Errorf("unknown account type %q", a.Accountable)
	}
	if !ValidCurrency(a.Currency) {
		return fmt.Errorf("unknown currency %q", a.Currency)
	}
	return nil
}

// ValidCurrency reports whether code is a known ISO 4217 currency code.
func ValidCurrency(code string) bool {
	return money.GetCurrency(code) != nil
}
