package smoothing_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/ploutos-app/ploutos_edit_api/internal/core/domain"
	"github.com/ploutos-app/ploutos_edit_api/internal/utils/smoothing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func installmentAllocs(t *testing.T, amount string, start time.Time, months int, accountID string) []domain.Allocation {
	t.Helper()
	installments, err := smoothing.Expand(dec(amount), start, months, smoothing.DefaultMaxMonths)
	require.NoError(t, err)

	allocs := make([]domain.Allocation, len(installments))
	for i, inst := range installments {
		allocs[i] = domain.Allocation{
			AllocationID: fmt.Sprintf("%s-%d", accountID, i+1),
			Type:         domain.Debit,
			Amount:       inst.Amount,
			Date:         inst.Date,
			AccountID:    accountID,
		}
	}
	return allocs
}

func TestDetectOnExpandOutput(t *testing.T) {
	for _, months := range []int{2, 3, 12, 24} {
		t.Run(fmt.Sprintf("%d months", months), func(t *testing.T) {
			start := time.Date(2025, 11, 15, 0, 0, 0, 0, time.UTC)
			allocs := installmentAllocs(t, "100.00", start, months, "acc-1")

			slots := smoothing.Detect(allocs, smoothing.DefaultLastTolerance)
			require.Len(t, slots, months)
			for i, a := range allocs {
				slot, ok := slots[a.AllocationID]
				require.True(t, ok, "allocation %s missing from detection", a.AllocationID)
				assert.Equal(t, i+1, slot.Position)
				assert.Equal(t, months, slot.TotalMonths)
				assert.True(t, slot.TotalAmount.Equal(dec("100.00")))
			}
		})
	}
}

func TestDetectUnorderedInput(t *testing.T) {
	allocs := installmentAllocs(t, "90.00", time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC), 3, "acc-1")
	shuffled := []domain.Allocation{allocs[2], allocs[0], allocs[1]}

	slots := smoothing.Detect(shuffled, smoothing.DefaultLastTolerance)
	require.Len(t, slots, 3)
	assert.Equal(t, 1, slots["acc-1-1"].Position)
	assert.Equal(t, 2, slots["acc-1-2"].Position)
	assert.Equal(t, 3, slots["acc-1-3"].Position)
}

func TestDetectRejectsMonthGap(t *testing.T) {
	allocs := []domain.Allocation{
		{AllocationID: "s1", Amount: dec("50.00"), Date: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), AccountID: "acc-1"},
		{AllocationID: "s2", Amount: dec("50.00"), Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), AccountID: "acc-1"},
	}
	assert.Empty(t, smoothing.Detect(allocs, smoothing.DefaultLastTolerance))
}

func TestDetectRejectsNonFirstDay(t *testing.T) {
	allocs := []domain.Allocation{
		{AllocationID: "s1", Amount: dec("50.00"), Date: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), AccountID: "acc-1"},
		{AllocationID: "s2", Amount: dec("50.00"), Date: time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC), AccountID: "acc-1"},
	}
	assert.Empty(t, smoothing.Detect(allocs, smoothing.DefaultLastTolerance))
}

func TestDetectRejectsDuplicateMonth(t *testing.T) {
	allocs := []domain.Allocation{
		{AllocationID: "s1", Amount: dec("50.00"), Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), AccountID: "acc-1"},
		{AllocationID: "s2", Amount: dec("50.00"), Date: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), AccountID: "acc-1"},
		{AllocationID: "s3", Amount: dec("50.00"), Date: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), AccountID: "acc-1"},
	}
	assert.Empty(t, smoothing.Detect(allocs, smoothing.DefaultLastTolerance))
}

func TestDetectSingleMemberNeverMatches(t *testing.T) {
	allocs := []domain.Allocation{
		{AllocationID: "s1", Amount: dec("50.00"), Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), AccountID: "acc-1"},
	}
	assert.Empty(t, smoothing.Detect(allocs, smoothing.DefaultLastTolerance))
	assert.Empty(t, smoothing.Detect(nil, smoothing.DefaultLastTolerance))
}

func TestDetectLastMemberTolerance(t *testing.T) {
	base := []domain.Allocation{
		{AllocationID: "s1", Amount: dec("33.33"), Date: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), AccountID: "acc-1"},
		{AllocationID: "s2", Amount: dec("33.33"), Date: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), AccountID: "acc-1"},
	}

	// Last member one full unit away is still part of the group.
	within := append(base[:2:2], domain.Allocation{
		AllocationID: "s3", Amount: dec("34.33"), Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), AccountID: "acc-1",
	})
	assert.Len(t, smoothing.Detect(within, smoothing.DefaultLastTolerance), 3)

	// Beyond one unit it is a different charge, not a rounding adjustment.
	beyond := append(base[:2:2], domain.Allocation{
		AllocationID: "s3", Amount: dec("34.34"), Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), AccountID: "acc-1",
	})
	assert.Empty(t, smoothing.Detect(beyond, smoothing.DefaultLastTolerance))
}

func TestDetectZeroToleranceRequiresExactLast(t *testing.T) {
	drifting := []domain.Allocation{
		{AllocationID: "s1", Amount: dec("33.33"), Date: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), AccountID: "acc-1"},
		{AllocationID: "s2", Amount: dec("33.33"), Date: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), AccountID: "acc-1"},
		{AllocationID: "s3", Amount: dec("33.34"), Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), AccountID: "acc-1"},
	}
	// Zero is honored, not replaced with the default slack.
	assert.Empty(t, smoothing.Detect(drifting, decimal.Zero))

	exact := installmentAllocs(t, "99.99", time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), 3, "acc-1")
	assert.Len(t, smoothing.Detect(exact, decimal.Zero), 3)
}

func TestDetectRejectsMiddleAmountDrift(t *testing.T) {
	allocs := []domain.Allocation{
		{AllocationID: "s1", Amount: dec("33.33"), Date: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), AccountID: "acc-1"},
		{AllocationID: "s2", Amount: dec("33.35"), Date: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), AccountID: "acc-1"},
		{AllocationID: "s3", Amount: dec("33.33"), Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), AccountID: "acc-1"},
	}
	assert.Empty(t, smoothing.Detect(allocs, smoothing.DefaultLastTolerance))
}

func TestDetectIgnoresTimeOfDay(t *testing.T) {
	allocs := []domain.Allocation{
		{AllocationID: "s1", Amount: dec("50.00"), Date: time.Date(2025, 1, 20, 14, 30, 0, 0, time.UTC), AccountID: "acc-1"},
		{AllocationID: "s2", Amount: dec("50.00"), Date: time.Date(2025, 2, 1, 23, 59, 59, 0, time.UTC), AccountID: "acc-1"},
	}
	assert.Len(t, smoothing.Detect(allocs, smoothing.DefaultLastTolerance), 2)
}

func TestDetectPartitionsByAccount(t *testing.T) {
	good := installmentAllocs(t, "60.00", time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC), 2, "acc-good")
	bad := []domain.Allocation{
		{AllocationID: "b1", Amount: dec("10.00"), Date: time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC), AccountID: "acc-bad"},
		{AllocationID: "b2", Amount: dec("99.00"), Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), AccountID: "acc-bad"},
	}
	noAccount := []domain.Allocation{
		{AllocationID: "n1", Amount: dec("5.00"), Date: time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)},
	}

	all := append(append(good, bad...), noAccount...)
	slots := smoothing.Detect(all, smoothing.DefaultLastTolerance)
	require.Len(t, slots, 2)
	assert.Contains(t, slots, "acc-good-1")
	assert.Contains(t, slots, "acc-good-2")
}
