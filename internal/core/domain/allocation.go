package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Allocation is one portion of a master transaction's amount assigned to a
// specific account (real or virtual). The account name and real/virtual flag
// are denormalized from the account record for display; they remain usable
// when the referenced account is unknown to the current account list.
type Allocation struct {
	AllocationID  string          `json:"allocationId"` // Primary Key (UUID)
	Type          EntryType       `json:"type"`
	Amount        decimal.Decimal `json:"amount"` // Non-negative magnitude
	Date          time.Time       `json:"date"`
	AccountID     string          `json:"accountId"`
	AccountName   string          `json:"accountName"`
	AccountIsReal bool            `json:"accountIsReal"`
	MasterID      string          `json:"masterId"` // FK -> Transaction.TransactionID
}

// CloneAllocations returns an independent copy of an allocation slice.
// Allocation holds only value types, so a shallow element copy is a full copy.
func CloneAllocations(allocs []Allocation) []Allocation {
	if allocs == nil {
		return nil
	}
	out := make([]Allocation, len(allocs))
	copy(out, allocs)
	return out
}
