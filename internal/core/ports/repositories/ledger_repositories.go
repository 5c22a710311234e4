package repositories

import (
	"context"
	"time"

	"github.com/ploutos-app/ploutos_edit_api/internal/core/domain"
)

// AccountReader defines read operations against the remote account list.
type AccountReader interface {
	// ListAccounts retrieves every account known to the ledger store.
	ListAccounts(ctx context.Context) ([]domain.Account, error)
}

// TransactionReader defines read operations for master transactions.
type TransactionReader interface {
	// FindTransactionByID retrieves one master transaction with its
	// allocations.
	FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)
}

// TransactionWriter defines the single commit operation of an edit session.
type TransactionWriter interface {
	// UpdateTransaction replaces a master transaction's description, date and
	// full allocation set in one call. The store applies it atomically; there
	// is no partial commit.
	UpdateTransaction(ctx context.Context, transactionID, description string, date time.Time, allocations []domain.Allocation) error
}

// LedgerRepositoryFacade combines all ledger store operations this core
// consumes. The store itself (persistence, multi-user coordination) is a
// black box behind this interface.
type LedgerRepositoryFacade interface {
	AccountReader
	TransactionReader
	TransactionWriter
}
