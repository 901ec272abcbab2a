package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is a committed ledger entry on an account. Amounts follow the
// internal sign convention: outflows are positive, inflows negative. CSV
// imports carry the opposite convention and are negated on materialization.
type Transaction struct {
	ID         uuid.UUID
	AccountID  uuid.UUID
	CategoryID uuid.UUID
	Date       time.Time
	Name       string
	Amount     decimal.Decimal
	Currency   string
	CreatedAt  time.Time
}
