package accounting_test

import (
	"testing"
	"time"

	"github.com/ploutos-app/ploutos_edit_api/internal/core/domain"
	"github.com/ploutos-app/ploutos_edit_api/internal/utils/accounting"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alloc(id string, typ domain.EntryType, amount string, accountID string) domain.Allocation {
	return domain.Allocation{
		AllocationID: id,
		Type:         typ,
		Amount:       decimal.RequireFromString(amount),
		Date:         time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		AccountID:    accountID,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestValidateBalanced(t *testing.T) {
	tests := []struct {
		name         string
		allocs       []domain.Allocation
		masterAmount string
		masterType   domain.EntryType
	}{
		{
			name: "credit master fully allocated by debits",
			allocs: []domain.Allocation{
				alloc("a1", domain.Debit, "60.00", "acc-1"),
				alloc("a2", domain.Debit, "40.00", "acc-2"),
			},
			masterAmount: "100.00",
			masterType:   domain.Credit,
		},
		{
			name: "debit master fully allocated by credits",
			allocs: []domain.Allocation{
				alloc("a1", domain.Credit, "25.50", "acc-1"),
			},
			masterAmount: "25.50",
			masterType:   domain.Debit,
		},
		{
			name: "mixed types net out",
			allocs: []domain.Allocation{
				alloc("a1", domain.Debit, "120.00", "acc-1"),
				alloc("a2", domain.Credit, "20.00", "acc-2"),
			},
			masterAmount: "100.00",
			masterType:   domain.Credit,
		},
		{
			name:         "zero master with no allocations",
			allocs:       nil,
			masterAmount: "0",
			masterType:   domain.Credit,
		},
		{
			name: "sub-cent drift within tolerance",
			allocs: []domain.Allocation{
				alloc("a1", domain.Debit, "33.333", "acc-1"),
				alloc("a2", domain.Debit, "66.666", "acc-2"),
			},
			masterAmount: "100.00",
			masterType:   domain.Credit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := accounting.Validate(tt.allocs, dec(tt.masterAmount), tt.masterType, accounting.DefaultTolerance)
			assert.Nil(t, err)
		})
	}
}

func TestValidateInvalidSlave(t *testing.T) {
	allocs := []domain.Allocation{
		alloc("a1", domain.Debit, "50.00", "acc-1"),
		alloc("a2", domain.Debit, "0", "acc-2"),
	}
	err := accounting.Validate(allocs, dec("50.00"), domain.Credit, accounting.DefaultTolerance)
	require.NotNil(t, err)
	assert.Equal(t, accounting.KindInvalidSlave, err.Kind)
	assert.Equal(t, "a2", err.AllocationID)
}

func TestValidateNegativeAmount(t *testing.T) {
	allocs := []domain.Allocation{
		alloc("a1", domain.Debit, "-10.00", "acc-1"),
	}
	err := accounting.Validate(allocs, dec("10.00"), domain.Debit, accounting.DefaultTolerance)
	require.NotNil(t, err)
	assert.Equal(t, accounting.KindInvalidSlave, err.Kind)
	assert.Equal(t, "a1", err.AllocationID)
}

func TestValidateMissingAccount(t *testing.T) {
	allocs := []domain.Allocation{
		alloc("a1", domain.Debit, "50.00", "acc-1"),
		alloc("a2", domain.Debit, "50.00", ""),
	}
	err := accounting.Validate(allocs, dec("100.00"), domain.Credit, accounting.DefaultTolerance)
	require.NotNil(t, err)
	assert.Equal(t, accounting.KindMissingAccount, err.Kind)
	assert.Equal(t, "a2", err.AllocationID)
}

// The amount check runs before the account check, so an allocation that
// violates both reports invalid_slave.
func TestValidateAmountCheckedBeforeAccount(t *testing.T) {
	allocs := []domain.Allocation{
		alloc("a1", domain.Debit, "0", ""),
	}
	err := accounting.Validate(allocs, dec("0"), domain.Credit, accounting.DefaultTolerance)
	require.NotNil(t, err)
	assert.Equal(t, accounting.KindInvalidSlave, err.Kind)
}

func TestValidateBalanceMismatch(t *testing.T) {
	allocs := []domain.Allocation{
		alloc("a1", domain.Debit, "90.00", "acc-1"),
	}
	err := accounting.Validate(allocs, dec("100.00"), domain.Credit, accounting.DefaultTolerance)
	require.NotNil(t, err)
	assert.Equal(t, accounting.KindBalance, err.Kind)
	assert.True(t, err.Computed.Equal(dec("90.00")))
	assert.True(t, err.Expected.Equal(dec("100.00")))
	assert.True(t, err.Delta.Equal(dec("10.00")))
	assert.Contains(t, err.Error(), "90.00")
	assert.Contains(t, err.Error(), "100.00")
}

func TestValidateToleranceBoundary(t *testing.T) {
	// Exactly one cent off is a mismatch; strictly below one cent passes.
	oneCentOff := []domain.Allocation{alloc("a1", domain.Debit, "99.99", "acc-1")}
	err := accounting.Validate(oneCentOff, dec("100.00"), domain.Credit, accounting.DefaultTolerance)
	require.NotNil(t, err)
	assert.Equal(t, accounting.KindBalance, err.Kind)

	justUnder := []domain.Allocation{alloc("a1", domain.Debit, "99.995", "acc-1")}
	assert.Nil(t, accounting.Validate(justUnder, dec("100.00"), domain.Credit, accounting.DefaultTolerance))
}

func TestValidateEmptySetNonZeroMaster(t *testing.T) {
	err := accounting.Validate(nil, dec("42.00"), domain.Debit, accounting.DefaultTolerance)
	require.NotNil(t, err)
	assert.Equal(t, accounting.KindBalance, err.Kind)
}

func TestBalance(t *testing.T) {
	allocs := []domain.Allocation{
		alloc("a1", domain.Debit, "70.25", "acc-1"),
		alloc("a2", domain.Credit, "20.25", "acc-2"),
	}
	assert.True(t, accounting.Balance(allocs).Equal(dec("50.00")))
	assert.True(t, accounting.Balance(nil).IsZero())
}
