package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ploutos-app/ploutos_edit_api/internal/apperrors"
	"github.com/ploutos-app/ploutos_edit_api/internal/core/domain"
	portsrepo "github.com/ploutos-app/ploutos_edit_api/internal/core/ports/repositories"
	"github.com/ploutos-app/ploutos_edit_api/internal/core/services"
)

type MockAccountReader struct {
	mock.Mock
}

var _ portsrepo.AccountReader = (*MockAccountReader)(nil)

func (m *MockAccountReader) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func TestAccountServiceCachesList(t *testing.T) {
	reader := new(MockAccountReader)
	reader.On("ListAccounts", mock.Anything).Return([]domain.Account{realAccount, groceries}, nil).Once()

	svc := services.NewAccountService(reader, time.Hour)
	ctx := context.Background()

	first, err := svc.ListAccounts(ctx)
	require.NoError(t, err)
	second, err := svc.ListAccounts(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	reader.AssertNumberOfCalls(t, "ListAccounts", 1)
}

func TestAccountServiceRefreshForcesReload(t *testing.T) {
	reader := new(MockAccountReader)
	reader.On("ListAccounts", mock.Anything).Return([]domain.Account{realAccount}, nil)

	svc := services.NewAccountService(reader, time.Hour)
	ctx := context.Background()

	_, err := svc.ListAccounts(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.Refresh(ctx))
	reader.AssertNumberOfCalls(t, "ListAccounts", 2)
}

func TestAccountServiceGetByID(t *testing.T) {
	reader := new(MockAccountReader)
	reader.On("ListAccounts", mock.Anything).Return([]domain.Account{realAccount, groceries}, nil)

	svc := services.NewAccountService(reader, time.Hour)
	ctx := context.Background()

	acc, err := svc.GetAccountByID(ctx, groceries.AccountID)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", acc.Name)

	_, err = svc.GetAccountByID(ctx, "acc-unknown")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAccountServiceFirstVirtualAccount(t *testing.T) {
	reader := new(MockAccountReader)
	reader.On("ListAccounts", mock.Anything).Return([]domain.Account{realAccount, groceries, leisure}, nil)

	svc := services.NewAccountService(reader, time.Hour)
	acc, err := svc.FirstVirtualAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, groceries.AccountID, acc.AccountID)
}

func TestAccountServiceNoVirtualAccount(t *testing.T) {
	reader := new(MockAccountReader)
	reader.On("ListAccounts", mock.Anything).Return([]domain.Account{realAccount}, nil)

	svc := services.NewAccountService(reader, time.Hour)
	_, err := svc.FirstVirtualAccount(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAccountServiceStoreFailure(t *testing.T) {
	reader := new(MockAccountReader)
	reader.On("ListAccounts", mock.Anything).Return(nil, assert.AnError)

	svc := services.NewAccountService(reader, time.Hour)
	_, err := svc.ListAccounts(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}
