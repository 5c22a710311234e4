package services

import (
	"context"

	"github.com/ploutos-app/ploutos_edit_api/internal/core/domain"
)

// AccountSvcFacade exposes the cached remote account list to the rest of the
// application. Accounts are read-only in this core.
type AccountSvcFacade interface {
	// ListAccounts returns all accounts, refreshing the cache when stale.
	ListAccounts(ctx context.Context) ([]domain.Account, error)

	// GetAccountByID returns one account, or apperrors.ErrNotFound when the
	// id is unknown to the store.
	GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// FirstVirtualAccount returns the first virtual (budget-category) account
	// in list order, used as the default for newly added allocations.
	FirstVirtualAccount(ctx context.Context) (*domain.Account, error)

	// Refresh forces a reload of the account list from the store.
	Refresh(ctx context.Context) error
}
