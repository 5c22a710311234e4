package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ploutos-app/ploutos_edit_api/internal/apperrors"
	"github.com/ploutos-app/ploutos_edit_api/internal/core/domain"
	portsrepo "github.com/ploutos-app/ploutos_edit_api/internal/core/ports/repositories"
	portssvc "github.com/ploutos-app/ploutos_edit_api/internal/core/ports/services"
	"github.com/ploutos-app/ploutos_edit_api/internal/dto"
	"github.com/ploutos-app/ploutos_edit_api/internal/middleware"
	"github.com/ploutos-app/ploutos_edit_api/internal/utils/accounting"
	"github.com/ploutos-app/ploutos_edit_api/internal/utils/smoothing"
)

var (
	ErrNoChanges          = errors.New("session has no changes to save")
	ErrAllocationNotFound = errors.New("allocation not found in session")
	ErrGroupMemberMissing = errors.New("smoothing group member not present in working set")
)

// EditSessionConfig carries the tunable bounds of the edit controller.
// Unset values fall back to the package defaults of the validator and
// calculator. SmoothingLastTolerance is a NullDecimal so that an explicit
// zero (exact-match detection, as for zero-decimal currencies) survives
// defaulting.
type EditSessionConfig struct {
	SmoothingMaxMonths     int
	BalanceTolerance       decimal.Decimal
	SmoothingLastTolerance decimal.NullDecimal
	SessionTTL             time.Duration // abandoned sessions older than this are pruned
}

// editSessionService is the stateful edit controller: it owns every open
// session's working copy and funnels all mutations through one lock. The
// validator, calculator and detector stay pure; this service is the only
// place state changes.
type editSessionService struct {
	ledger     portsrepo.LedgerRepositoryFacade
	accountSvc portssvc.AccountSvcFacade
	cfg        EditSessionConfig

	mu       sync.Mutex
	sessions map[string]*domain.EditSession
}

// NewEditSessionService creates the edit session controller.
func NewEditSessionService(ledger portsrepo.LedgerRepositoryFacade, accountSvc portssvc.AccountSvcFacade, cfg EditSessionConfig) portssvc.EditSessionSvcFacade {
	if cfg.SmoothingMaxMonths <= 0 {
		cfg.SmoothingMaxMonths = smoothing.DefaultMaxMonths
	}
	if cfg.BalanceTolerance.LessThanOrEqual(decimal.Zero) {
		cfg.BalanceTolerance = accounting.DefaultTolerance
	}
	if !cfg.SmoothingLastTolerance.Valid || cfg.SmoothingLastTolerance.Decimal.IsNegative() {
		cfg.SmoothingLastTolerance = decimal.NewNullDecimal(smoothing.DefaultLastTolerance)
	}
	return &editSessionService{
		ledger:     ledger,
		accountSvc: accountSvc,
		cfg:        cfg,
		sessions:   make(map[string]*domain.EditSession),
	}
}

var _ portssvc.EditSessionSvcFacade = (*editSessionService)(nil)

// OpenSession fetches the master transaction and the account list in
// parallel, then clones the allocation set twice: a working copy for edits
// and an immutable original for dirty comparison.
func (s *editSessionService) OpenSession(ctx context.Context, transactionID string) (*domain.EditSession, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	var master *domain.Transaction
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tx, err := s.ledger.FindTransactionByID(gctx, transactionID)
		if err != nil {
			return err
		}
		master = tx
		return nil
	})
	g.Go(func() error {
		_, err := s.accountSvc.ListAccounts(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Error("Failed to open edit session", slog.String("transaction_id", transactionID), slog.String("error", err.Error()))
		return nil, err
	}

	sess := &domain.EditSession{
		SessionID:           uuid.NewString(),
		State:               domain.SessionOpen,
		Master:              *master,
		Description:         master.Description,
		OriginalDescription: master.Description,
		Working:             domain.CloneAllocations(master.Allocations),
		Original:            domain.CloneAllocations(master.Allocations),
		UIState:             make(map[string]domain.AllocationUIState, len(master.Allocations)),
		OpenedAt:            time.Now(),
	}
	for _, a := range sess.Working {
		sess.UIState[a.AllocationID] = s.uiStateFor(ctx, a)
	}

	s.mu.Lock()
	s.pruneLocked()
	s.sessions[sess.SessionID] = sess
	snap := snapshotSession(sess)
	s.mu.Unlock()

	logger.Info("Edit session opened",
		slog.String("session_id", sess.SessionID),
		slog.String("transaction_id", transactionID),
		slog.Int("allocations", len(sess.Working)),
	)
	return snap, nil
}

func (s *editSessionService) GetSession(ctx context.Context, sessionID string) (*domain.EditSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, apperrors.ErrNotFound)
	}
	return snapshotSession(sess), nil
}

// Derive recomputes the session's read-only derivations. It never mutates
// the session; callers re-invoke it after every working-set change.
func (s *editSessionService) Derive(sess *domain.EditSession) dto.SessionDerived {
	derived := dto.SessionDerived{
		Dirty:      isDirty(sess),
		Validation: accounting.Validate(sess.Working, sess.Master.Amount, sess.Master.Type, s.cfg.BalanceTolerance),
		Slots:      smoothing.Detect(sess.Working, s.cfg.SmoothingLastTolerance.Decimal),
	}
	derived.CanSave = derived.Dirty && derived.Validation == nil && sess.State == domain.SessionOpen
	return derived
}

func (s *editSessionService) UpdateDescription(ctx context.Context, sessionID, description string) (*domain.EditSession, error) {
	return s.mutate(sessionID, func(sess *domain.EditSession) error {
		sess.Description = description
		return nil
	})
}

func (s *editSessionService) UpdateAllocation(ctx context.Context, sessionID, allocationID string, req dto.UpdateAllocationRequest) (*domain.EditSession, error) {
	// Resolve the new account outside the session lock; an unknown id is not
	// an error, the allocation keeps its denormalized display fields.
	var newAccount *domain.Account
	if req.AccountID != nil {
		acc, err := s.accountSvc.GetAccountByID(ctx, *req.AccountID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		newAccount = acc
	}

	return s.mutate(sessionID, func(sess *domain.EditSession) error {
		i := indexOfAllocation(sess.Working, allocationID)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrAllocationNotFound, allocationID)
		}
		a := &sess.Working[i]
		if req.Type != nil {
			a.Type = *req.Type
		}
		if req.Amount != nil {
			a.Amount = *req.Amount
		}
		if req.Date != nil {
			a.Date = *req.Date
		}
		if req.AccountID != nil {
			a.AccountID = *req.AccountID
			// UI state derives from the account resolved before the lock was
			// taken; no store lookup happens in here.
			if newAccount != nil {
				a.AccountName = newAccount.Name
				a.AccountIsReal = newAccount.IsReal
				sess.UIState[a.AllocationID] = domain.AllocationUIState{
					ShowVirtual:    !newAccount.IsReal,
					CategoryFilter: newAccount.Category,
				}
			} else {
				sess.UIState[a.AllocationID] = domain.AllocationUIState{ShowVirtual: !a.AccountIsReal}
			}
		}
		return nil
	})
}

func (s *editSessionService) AddAllocation(ctx context.Context, sessionID string) (*domain.EditSession, *domain.Allocation, error) {
	defaultAccount, err := s.accountSvc.FirstVirtualAccount(ctx)
	if err != nil {
		return nil, nil, err
	}

	var added domain.Allocation
	snap, err := s.mutate(sessionID, func(sess *domain.EditSession) error {
		added = domain.Allocation{
			AllocationID:  uuid.NewString(),
			Type:          domain.Debit,
			Amount:        decimal.Zero,
			Date:          time.Now(),
			AccountID:     defaultAccount.AccountID,
			AccountName:   defaultAccount.Name,
			AccountIsReal: defaultAccount.IsReal,
			MasterID:      sess.Master.TransactionID,
		}
		sess.Working = append(sess.Working, added)
		sess.UIState[added.AllocationID] = domain.AllocationUIState{
			ShowVirtual:    !defaultAccount.IsReal,
			CategoryFilter: defaultAccount.Category,
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return snap, &added, nil
}

func (s *editSessionService) RemoveAllocation(ctx context.Context, sessionID, allocationID string) (*domain.EditSession, error) {
	return s.mutate(sessionID, func(sess *domain.EditSession) error {
		i := indexOfAllocation(sess.Working, allocationID)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrAllocationNotFound, allocationID)
		}
		sess.Working = append(sess.Working[:i], sess.Working[i+1:]...)
		delete(sess.UIState, allocationID)
		return nil
	})
}

func (s *editSessionService) PreviewSmooth(ctx context.Context, sessionID, allocationID string, months int) ([]smoothing.Installment, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("session %s: %w", sessionID, apperrors.ErrNotFound)
	}
	i := indexOfAllocation(sess.Working, allocationID)
	if i < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAllocationNotFound, allocationID)
	}
	seed := sess.Working[i]
	s.mu.Unlock()

	return smoothing.Expand(seed.Amount, seed.Date, months, s.cfg.SmoothingMaxMonths)
}

// Smooth splices one working allocation out and inserts its amortization
// schedule in place. Every installment gets a fresh identifier and inherits
// the original's account reference and type.
func (s *editSessionService) Smooth(ctx context.Context, sessionID, allocationID string, months int) (*domain.EditSession, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	snap, err := s.mutate(sessionID, func(sess *domain.EditSession) error {
		i := indexOfAllocation(sess.Working, allocationID)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrAllocationNotFound, allocationID)
		}
		seed := sess.Working[i]

		installments, err := smoothing.Expand(seed.Amount, seed.Date, months, s.cfg.SmoothingMaxMonths)
		if err != nil {
			return err
		}

		expanded := make([]domain.Allocation, len(installments))
		ui := sess.UIState[seed.AllocationID]
		for j, inst := range installments {
			expanded[j] = domain.Allocation{
				AllocationID:  uuid.NewString(),
				Type:          seed.Type,
				Amount:        inst.Amount,
				Date:          inst.Date,
				AccountID:     seed.AccountID,
				AccountName:   seed.AccountName,
				AccountIsReal: seed.AccountIsReal,
				MasterID:      seed.MasterID,
			}
			sess.UIState[expanded[j].AllocationID] = ui
		}
		delete(sess.UIState, seed.AllocationID)

		working := make([]domain.Allocation, 0, len(sess.Working)-1+len(expanded))
		working = append(working, sess.Working[:i]...)
		working = append(working, expanded...)
		working = append(working, sess.Working[i+1:]...)
		sess.Working = working
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Allocation smoothed",
		slog.String("session_id", sessionID),
		slog.String("allocation_id", allocationID),
		slog.Int("months", months),
	)
	return snap, nil
}

// Unsmooth merges the identified installment group back into one allocation
// carrying the earliest member's date and account. Destructive: all other
// members are deleted, and the returned count lets the caller tell the user
// how many.
func (s *editSessionService) Unsmooth(ctx context.Context, sessionID string, allocationIDs []string) (*domain.EditSession, *domain.Allocation, int, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	var merged domain.Allocation
	removed := 0
	snap, err := s.mutate(sessionID, func(sess *domain.EditSession) error {
		members := make([]domain.Allocation, 0, len(allocationIDs))
		memberIDs := make(map[string]bool, len(allocationIDs))
		for _, id := range allocationIDs {
			i := indexOfAllocation(sess.Working, id)
			if i < 0 {
				return fmt.Errorf("%w: %s", ErrGroupMemberMissing, id)
			}
			members = append(members, sess.Working[i])
			memberIDs[id] = true
		}

		m, err := smoothing.Merge(members)
		if err != nil {
			return err
		}
		merged = m
		removed = len(members) - 1

		// Replace the group in place: the merged allocation takes the slot of
		// the first member encountered in working order.
		working := make([]domain.Allocation, 0, len(sess.Working)-removed)
		inserted := false
		for _, a := range sess.Working {
			if !memberIDs[a.AllocationID] {
				working = append(working, a)
				continue
			}
			if !inserted {
				working = append(working, merged)
				inserted = true
			}
			if a.AllocationID != merged.AllocationID {
				delete(sess.UIState, a.AllocationID)
			}
		}
		sess.Working = working
		return nil
	})
	if err != nil {
		return nil, nil, 0, err
	}
	logger.Info("Smoothing group merged",
		slog.String("session_id", sessionID),
		slog.String("merged_allocation_id", merged.AllocationID),
		slog.Int("removed", removed),
	)
	return snap, &merged, removed, nil
}

// Save commits the working set via the single atomic update call of the
// ledger store. Only one save may be in flight per session; a failure keeps
// the session open with its edits and the error message retained.
func (s *editSessionService) Save(ctx context.Context, sessionID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("session %s: %w", sessionID, apperrors.ErrNotFound)
	}
	if sess.State == domain.SessionSaving {
		s.mu.Unlock()
		return apperrors.ErrSaveInFlight
	}
	derived := s.Derive(sess)
	if !derived.Dirty {
		s.mu.Unlock()
		return fmt.Errorf("%w: %w", apperrors.ErrValidation, ErrNoChanges)
	}
	if derived.Validation != nil {
		s.mu.Unlock()
		return derived.Validation
	}
	sess.State = domain.SessionSaving
	sess.SaveError = ""
	transactionID := sess.Master.TransactionID
	date := sess.Master.Date
	description := sess.Description
	working := domain.CloneAllocations(sess.Working)
	s.mu.Unlock()

	err := s.ledger.UpdateTransaction(ctx, transactionID, description, date, working)

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok = s.sessions[sessionID]
	if err != nil {
		if ok {
			sess.State = domain.SessionOpen
			sess.SaveError = err.Error()
		}
		logger.Error("Save rejected by ledger store",
			slog.String("session_id", sessionID),
			slog.String("transaction_id", transactionID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: %v", apperrors.ErrSaveFailed, err)
	}
	if ok {
		sess.State = domain.SessionClosed
		delete(s.sessions, sessionID)
	}
	logger.Info("Session saved and closed",
		slog.String("session_id", sessionID),
		slog.String("transaction_id", transactionID),
		slog.Int("allocations", len(working)),
	)
	return nil
}

// CloseSession discards the working copy unconditionally. The remote record
// is untouched; there is no implicit autosave. Closing is refused while a
// save is in flight.
func (s *editSessionService) CloseSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, apperrors.ErrNotFound)
	}
	if sess.State == domain.SessionSaving {
		return apperrors.ErrSaveInFlight
	}
	sess.State = domain.SessionClosed
	delete(s.sessions, sessionID)
	return nil
}

// mutate runs fn on a session under the controller lock and returns a
// snapshot of the result. Mutations are refused while a save is in flight.
func (s *editSessionService) mutate(sessionID string, fn func(*domain.EditSession) error) (*domain.EditSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, apperrors.ErrNotFound)
	}
	if sess.State == domain.SessionSaving {
		return nil, apperrors.ErrSaveInFlight
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	return snapshotSession(sess), nil
}

// uiStateFor derives the presentation state of one allocation from the
// account list, falling back to the allocation's denormalized fields when the
// account id is unknown.
func (s *editSessionService) uiStateFor(ctx context.Context, a domain.Allocation) domain.AllocationUIState {
	acc, err := s.accountSvc.GetAccountByID(ctx, a.AccountID)
	if err != nil {
		return domain.AllocationUIState{ShowVirtual: !a.AccountIsReal}
	}
	return domain.AllocationUIState{ShowVirtual: !acc.IsReal, CategoryFilter: acc.Category}
}

// pruneLocked drops abandoned sessions past the TTL. Sessions with a save in
// flight are never pruned. Caller must hold s.mu.
func (s *editSessionService) pruneLocked() {
	if s.cfg.SessionTTL <= 0 {
		return
	}
	for id, sess := range s.sessions {
		if sess.State != domain.SessionSaving && time.Since(sess.OpenedAt) > s.cfg.SessionTTL {
			delete(s.sessions, id)
		}
	}
}

// isDirty reports whether the working set differs from the original
// snapshot: description changed, allocation count changed, or any matched
// allocation's account, amount or type changed. Structural comparison over
// the fixed record shape; no reflection.
func isDirty(sess *domain.EditSession) bool {
	if sess.Description != sess.OriginalDescription {
		return true
	}
	if len(sess.Working) != len(sess.Original) {
		return true
	}
	originals := make(map[string]domain.Allocation, len(sess.Original))
	for _, a := range sess.Original {
		originals[a.AllocationID] = a
	}
	for _, w := range sess.Working {
		o, ok := originals[w.AllocationID]
		if !ok {
			return true
		}
		if w.AccountID != o.AccountID || w.Type != o.Type || !w.Amount.Equal(o.Amount) {
			return true
		}
	}
	return false
}

// snapshotSession deep-copies a session so callers never share the
// controller's mutable state.
func snapshotSession(sess *domain.EditSession) *domain.EditSession {
	snap := *sess
	snap.Working = domain.CloneAllocations(sess.Working)
	snap.Original = domain.CloneAllocations(sess.Original)
	snap.UIState = make(map[string]domain.AllocationUIState, len(sess.UIState))
	for id, ui := range sess.UIState {
		snap.UIState[id] = ui
	}
	return &snap
}

func indexOfAllocation(allocs []domain.Allocation, allocationID string) int {
	for i, a := range allocs {
		if a.AllocationID == allocationID {
			return i
		}
	}
	return -1
}
