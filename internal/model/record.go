package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record is a single income/expense entry in a user's dataset.
type Record struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
}

// Equal reports field-wise equality. Dates compare by instant, amounts by
// numeric value (so "500" and "500.00" are equal).
func (r Record) Equal(other Record) bool {
	return r.ID == other.ID &&
		r.Amount.Equal(other.Amount) &&
		r.Category == other.Category &&
		r.Description == other.Description &&
		r.Date.Equal(other.Date)
}
