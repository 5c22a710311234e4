package services

import (
	"context"

	"github.com/ploutos-app/ploutos_edit_api/internal/core/domain"
	"github.com/ploutos-app/ploutos_edit_api/internal/dto"
	"github.com/ploutos-app/ploutos_edit_api/internal/utils/smoothing"
)

// EditSessionReaderSvc defines the read side of an edit session: fetching the
// session and recomputing its derived state. Derivations never mutate the
// session.
type EditSessionReaderSvc interface {
	// GetSession returns a snapshot of one open session, or
	// apperrors.ErrNotFound.
	GetSession(ctx context.Context, sessionID string) (*domain.EditSession, error)

	// Derive recomputes the dirty flag, validation state, smoothing
	// annotations and save gate for a session snapshot.
	Derive(s *domain.EditSession) dto.SessionDerived
}

// EditSessionWriterSvc defines the transitions of the edit state machine.
// Every method that takes a sessionID rejects unknown sessions with
// apperrors.ErrNotFound and sessions with a save in flight with
// apperrors.ErrSaveInFlight.
type EditSessionWriterSvc interface {
	// OpenSession clones the transaction's allocations into a fresh working
	// set and derives per-allocation UI state from the account list.
	OpenSession(ctx context.Context, transactionID string) (*domain.EditSession, error)

	// UpdateDescription replaces the working description.
	UpdateDescription(ctx context.Context, sessionID, description string) (*domain.EditSession, error)

	// UpdateAllocation patches fields on one working allocation.
	UpdateAllocation(ctx context.Context, sessionID, allocationID string, req dto.UpdateAllocationRequest) (*domain.EditSession, error)

	// AddAllocation appends a new allocation defaulted to the first virtual
	// account, zero amount, debit type and the current time.
	AddAllocation(ctx context.Context, sessionID string) (*domain.EditSession, *domain.Allocation, error)

	// RemoveAllocation deletes one working allocation and its UI state.
	RemoveAllocation(ctx context.Context, sessionID, allocationID string) (*domain.EditSession, error)

	// PreviewSmooth returns the amortization schedule for one allocation
	// without applying it.
	PreviewSmooth(ctx context.Context, sessionID, allocationID string, months int) ([]smoothing.Installment, error)

	// Smooth splices one allocation out of the working set and inserts its
	// amortization schedule in place, each installment with a fresh id and
	// the original's account and type.
	Smooth(ctx context.Context, sessionID, allocationID string, months int) (*domain.EditSession, error)

	// Unsmooth merges the identified group members into a single allocation.
	// It returns the updated session, the merged allocation and how many
	// members were deleted.
	Unsmooth(ctx context.Context, sessionID string, allocationIDs []string) (*domain.EditSession, *domain.Allocation, int, error)

	// Save commits the working set to the ledger store. It is permitted only
	// when the session is dirty and validates; on store failure the session
	// stays open with the error retained for retry.
	Save(ctx context.Context, sessionID string) error

	// CloseSession discards the working copy unconditionally. Not permitted
	// while a save is in flight.
	CloseSession(ctx context.Context, sessionID string) error
}

// EditSessionSvcFacade combines the reader and writer sides of the edit
// session controller.
type EditSessionSvcFacade interface {
	EditSessionReaderSvc
	EditSessionWriterSvc
}
