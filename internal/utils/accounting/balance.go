package accounting

import (
	"fmt"

	"github.com/ploutos-app/ploutos_edit_api/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ErrorKind classifies a validation failure of an allocation set.
type ErrorKind string

const (
	KindInvalidSlave   ErrorKind = "invalid_slave"   // non-positive allocation amount
	KindMissingAccount ErrorKind = "missing_account" // allocation without an account reference
	KindBalance        ErrorKind = "balance"         // sum mismatch beyond tolerance
)

// DefaultTolerance is the default balance tolerance: anything below one cent
// counts as balanced.
var DefaultTolerance = decimal.New(1, -2)

// ValidationError describes why an allocation set may not be persisted.
// For KindBalance, Computed/Expected/Delta carry the totals involved.
type ValidationError struct {
	Kind         ErrorKind
	AllocationID string // offending allocation for invalid_slave / missing_account
	Computed     decimal.Decimal
	Expected     decimal.Decimal
	Delta        decimal.Decimal
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case KindInvalidSlave:
		return fmt.Sprintf("allocation %s must have a positive amount", e.AllocationID)
	case KindMissingAccount:
		return fmt.Sprintf("allocation %s has no account assigned", e.AllocationID)
	case KindBalance:
		return fmt.Sprintf("allocations sum to %s but the transaction requires %s (off by %s)",
			e.Computed.StringFixed(2), e.Expected.StringFixed(2), e.Delta.StringFixed(2))
	default:
		return "invalid allocations"
	}
}

// Balance computes the net value of an allocation set: the sum of debit
// amounts minus the sum of credit amounts.
func Balance(allocs []domain.Allocation) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range allocs {
		if a.Type == domain.Debit {
			sum = sum.Add(a.Amount)
		} else {
			sum = sum.Sub(a.Amount)
		}
	}
	return sum
}

// Validate checks an allocation set against its master transaction's signed
// amount. Checks run in order and short-circuit at the first failure:
//  1. every allocation amount must be strictly positive,
//  2. every allocation must reference an account,
//  3. |signed master - Balance(allocs)| must be below tolerance.
//
// Returns nil when the set is persistable. Pure; safe on an empty set.
func Validate(allocs []domain.Allocation, masterAmount decimal.Decimal, masterType domain.EntryType, tolerance decimal.Decimal) *ValidationError {
	for _, a := range allocs {
		if a.Amount.LessThanOrEqual(decimal.Zero) {
			return &ValidationError{Kind: KindInvalidSlave, AllocationID: a.AllocationID}
		}
	}
	for _, a := range allocs {
		if a.AccountID == "" {
			return &ValidationError{Kind: KindMissingAccount, AllocationID: a.AllocationID}
		}
	}

	signed := masterAmount
	if masterType == domain.Debit {
		signed = signed.Neg()
	}
	computed := Balance(allocs)
	delta := signed.Sub(computed).Abs()
	if delta.GreaterThanOrEqual(tolerance) {
		return &ValidationError{
			Kind:     KindBalance,
			Computed: computed,
			Expected: signed,
			Delta:    delta,
		}
	}
	return nil
}
