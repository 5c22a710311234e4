package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ploutos-app/ploutos_edit_api/internal/apperrors"
	"github.com/ploutos-app/ploutos_edit_api/internal/core/domain"
	portsrepo "github.com/ploutos-app/ploutos_edit_api/internal/core/ports/repositories"
	portssvc "github.com/ploutos-app/ploutos_edit_api/internal/core/ports/services"
	"github.com/ploutos-app/ploutos_edit_api/internal/middleware"
)

// accountService caches the remote account list. Accounts change rarely and
// are read on every session open, so the list is fetched at most once per TTL.
type accountService struct {
	repo portsrepo.AccountReader
	ttl  time.Duration

	mu        sync.RWMutex
	accounts  []domain.Account
	byID      map[string]domain.Account
	fetchedAt time.Time
}

// NewAccountService creates the account list cache backed by the ledger store.
func NewAccountService(repo portsrepo.AccountReader, ttl time.Duration) portssvc.AccountSvcFacade {
	return &accountService{repo: repo, ttl: ttl}
}

var _ portssvc.AccountSvcFacade = (*accountService)(nil)

func (s *accountService) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	if err := s.ensureFresh(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Account, len(s.accounts))
	copy(out, s.accounts)
	return out, nil
}

func (s *accountService) GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	if err := s.ensureFresh(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.byID[accountID]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", accountID, apperrors.ErrNotFound)
	}
	return &acc, nil
}

func (s *accountService) FirstVirtualAccount(ctx context.Context) (*domain.Account, error) {
	if err := s.ensureFresh(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acc := range s.accounts {
		if !acc.IsReal {
			a := acc
			return &a, nil
		}
	}
	return nil, fmt.Errorf("no virtual account available: %w", apperrors.ErrNotFound)
}

func (s *accountService) Refresh(ctx context.Context) error {
	logger := middleware.GetLoggerFromCtx(ctx)
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		logger.Error("Failed to refresh account list", slog.String("error", err.Error()))
		return err
	}

	byID := make(map[string]domain.Account, len(accounts))
	for _, acc := range accounts {
		byID[acc.AccountID] = acc
	}

	s.mu.Lock()
	s.accounts = accounts
	s.byID = byID
	s.fetchedAt = time.Now()
	s.mu.Unlock()

	logger.Info("Account list refreshed", slog.Int("count", len(accounts)))
	return nil
}

// ensureFresh refreshes the cache when it has never been loaded or is older
// than the TTL. A stale cache is still served if a concurrent refresh already
// happened.
func (s *accountService) ensureFresh(ctx context.Context) error {
	s.mu.RLock()
	fresh := !s.fetchedAt.IsZero() && (s.ttl <= 0 || time.Since(s.fetchedAt) < s.ttl)
	s.mu.RUnlock()
	if fresh {
		return nil
	}
	return s.Refresh(ctx)
}
