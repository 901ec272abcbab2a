package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate is the stored conversion rate between two currencies on one
// calendar day.
type ExchangeRate struct {
	BaseCurrency      string
	ConvertedCurrency string
	Date              time.Time
	Rate              decimal.Decimal
}
