package smoothing

import (
	"sort"
	"time"

	"github.com/ploutos-app/ploutos_edit_api/internal/core/domain"
	"github.com/shopspring/decimal"
)

// DefaultLastTolerance is how far the final installment of a group may drift
// from the others: up to one full currency unit of rounding slack.
var DefaultLastTolerance = decimal.NewFromInt(1)

// centTolerance bounds the amount drift between non-final installments.
var centTolerance = decimal.New(1, -2)

// SlotInfo annotates one allocation that belongs to a detected smoothing
// group.
type SlotInfo struct {
	Position    int             // 1-based index by ascending date
	TotalMonths int             // size of the group
	TotalAmount decimal.Decimal // reconstructed original amount
}

// Detect inspects an unordered allocation set and reports, per allocation id,
// membership in a monthly installment group previously produced by Expand.
//
// Allocations are partitioned by account; a partition of at least two members
// matches when, sorted by date, every member carries the first member's amount
// to the cent (the last may differ by up to lastTolerance) and every member
// after the first falls on the first day of the month immediately following
// its predecessor's month. Non-matching partitions contribute nothing to the
// result.
//
// A negative lastTolerance selects DefaultLastTolerance; zero is honored and
// requires the last member to match the others exactly.
func Detect(allocs []domain.Allocation, lastTolerance decimal.Decimal) map[string]SlotInfo {
	if lastTolerance.IsNegative() {
		lastTolerance = DefaultLastTolerance
	}

	byAccount := make(map[string][]domain.Allocation)
	for _, a := range allocs {
		if a.AccountID == "" {
			continue
		}
		byAccount[a.AccountID] = append(byAccount[a.AccountID], a)
	}

	result := make(map[string]SlotInfo)
	for _, group := range byAccount {
		if len(group) < MinMonths {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].Date.Before(group[j].Date) })
		if !amountsMatch(group, lastTolerance) || !datesChain(group) {
			continue
		}

		total := decimal.Zero
		for _, a := range group {
			total = total.Add(a.Amount)
		}
		total = total.Round(2)
		for i, a := range group {
			result[a.AllocationID] = SlotInfo{
				Position:    i + 1,
				TotalMonths: len(group),
				TotalAmount: total,
			}
		}
	}
	return result
}

// amountsMatch checks the "equal except the last" rule against the first
// member's amount.
func amountsMatch(group []domain.Allocation, lastTolerance decimal.Decimal) bool {
	first := group[0].Amount
	last := len(group) - 1
	for i := 1; i <= last; i++ {
		diff := group[i].Amount.Sub(first).Abs()
		if i == last {
			if diff.GreaterThan(lastTolerance) {
				return false
			}
		} else if diff.GreaterThanOrEqual(centTolerance) {
			return false
		}
	}
	return true
}

// datesChain checks that every member after the first is dated the first
// calendar day of the month immediately following its predecessor's month.
// Only the calendar date matters; any time-of-day component is ignored.
func datesChain(group []domain.Allocation) bool {
	prev := monthIndex(group[0].Date)
	for _, a := range group[1:] {
		if a.Date.Day() != 1 {
			return false
		}
		cur := monthIndex(a.Date)
		if cur != prev+1 {
			return false
		}
		prev = cur
	}
	return true
}

// monthIndex flattens a date to a linear month count so that consecutive
// months differ by exactly one across year boundaries.
func monthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}
