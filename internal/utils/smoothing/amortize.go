// Package smoothing implements transaction amortization ("smoothing"): the
// expansion of one lump allocation into cent-exact monthly installments, the
// reverse merge, and the detection of previously smoothed installment groups.
package smoothing

import (
	"errors"
	"fmt"
	"time"

	"github.com/ploutos-app/ploutos_edit_api/internal/apperrors"
	"github.com/ploutos-app/ploutos_edit_api/internal/core/domain"
	"github.com/shopspring/decimal"
)

const (
	// MinMonths is the smallest allowed installment count. A single-month
	// "split" is just the original allocation.
	MinMonths = 2

	// DefaultMaxMonths caps amortization at ten years.
	DefaultMaxMonths = 120
)

var (
	ErrTooFewMembers = errors.New("smoothing group needs at least two allocations")
	ErrMixedAccounts = errors.New("smoothing group members must share one account")
	ErrInvalidMonths = errors.New("months out of range")
	ErrInvalidAmount = errors.New("amount must be strictly positive")
)

// Installment is one month of an amortization schedule.
type Installment struct {
	Date   time.Time
	Amount decimal.Decimal
}

// ValidateInput checks the arguments of an amortization before expansion.
// months must lie in [MinMonths, maxMonths] and amount must be strictly
// positive. The returned error wraps apperrors.ErrValidation.
func ValidateInput(amount decimal.Decimal, months, maxMonths int) error {
	if maxMonths <= 0 {
		maxMonths = DefaultMaxMonths
	}
	if months < MinMonths || months > maxMonths {
		return fmt.Errorf("%w: %w: got %d, want %d..%d", apperrors.ErrValidation, ErrInvalidMonths, months, MinMonths, maxMonths)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: %w: got %s", apperrors.ErrValidation, ErrInvalidAmount, amount.String())
	}
	return nil
}

// Expand splits amount into exactly months installments.
//
// Every installment gets the amount truncated to whole cents
// (floor(amount/months)); the cent remainder is added entirely to the last
// installment so the schedule sums back to amount exactly. The first
// installment keeps start verbatim (time of day included); installment i is
// dated the first of the month i months after start's month, with the year
// rolling over as needed.
func Expand(amount decimal.Decimal, start time.Time, months, maxMonths int) ([]Installment, error) {
	if err := ValidateInput(amount, months, maxMonths); err != nil {
		return nil, err
	}

	monthsDec := decimal.NewFromInt(int64(months))
	base := amount.Div(monthsDec).RoundDown(2)
	remainder := amount.Sub(base.Mul(monthsDec)).Round(2)

	out := make([]Installment, months)
	for i := range out {
		out[i] = Installment{Date: installmentDate(start, i), Amount: base}
	}
	out[months-1].Amount = base.Add(remainder).Round(2)
	return out, nil
}

// installmentDate returns the first of the month i months after start's
// month; i == 0 returns start unchanged.
func installmentDate(start time.Time, i int) time.Time {
	if i == 0 {
		return start
	}
	// time.Date normalizes month overflow, so December + 1 rolls the year.
	return time.Date(start.Year(), start.Month()+time.Month(i), 1, 0, 0, 0, 0, start.Location())
}

// Merge reverses an amortization: it collapses a smoothing group into a
// single allocation carrying the earliest member's identity, date and account,
// and the summed amount of all members. Pure reduction; the caller is
// responsible for the confirmation flow (all members but the earliest get
// discarded).
func Merge(group []domain.Allocation) (domain.Allocation, error) {
	if len(group) < MinMonths {
		return domain.Allocation{}, fmt.Errorf("%w: got %d", ErrTooFewMembers, len(group))
	}

	earliest := group[0]
	total := decimal.Zero
	for _, a := range group {
		if a.AccountID != earliest.AccountID {
			return domain.Allocation{}, ErrMixedAccounts
		}
		total = total.Add(a.Amount)
		if a.Date.Before(earliest.Date) {
			earliest = a
		}
	}

	merged := earliest
	merged.Amount = total.Round(2)
	return merged, nil
}
