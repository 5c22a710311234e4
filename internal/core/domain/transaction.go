package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType indicates whether a transaction or allocation is a debit or a credit.
type EntryType string

const (
	Debit  EntryType = "debit"
	Credit EntryType = "credit"
)

// Transaction is a master transaction: a single financial event whose signed
// amount is redistributed across allocations. Immutable within an edit session
// except for its description.
type Transaction struct {
	TransactionID       string          `json:"transactionId"` // Primary Key (UUID)
	Description         string          `json:"description"`
	Date                time.Time       `json:"date"`
	Amount              decimal.Decimal `json:"amount"` // Magnitude; sign is carried by Type
	Type                EntryType       `json:"type"`
	AccountID           string          `json:"accountId"` // The real account the event occurred on
	MasterAccountName   string          `json:"masterAccountName"`
	MasterAccountIsReal bool            `json:"masterAccountIsReal"`
	Allocations         []Allocation    `json:"allocations"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

// SignedAmount returns the transaction's economic value: positive for a
// credit, negative for a debit.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Type == Debit {
		return t.Amount.Neg()
	}
	return t.Amount
}
