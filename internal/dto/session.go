package dto

import (
	"time"

	"github.com/ploutos-app/ploutos_edit_api/internal/core/domain"
	"github.com/ploutos-app/ploutos_edit_api/internal/utils/accounting"
	"github.com/ploutos-app/ploutos_edit_api/internal/utils/smoothing"
	"github.com/shopspring/decimal"
)

// OpenSessionRequest starts an edit session for one master transaction.
type OpenSessionRequest struct {
	TransactionID string `json:"transactionId" binding:"required,uuid"`
}

// UpdateDescriptionRequest edits the working copy of the master description.
type UpdateDescriptionRequest struct {
	Description string `json:"description"`
}

// UpdateAllocationRequest patches fields on one working allocation.
// Pointer fields distinguish "not provided" from zero values.
type UpdateAllocationRequest struct {
	Type      *domain.EntryType `json:"type" binding:"omitempty,entrytype"`
	Amount    *decimal.Decimal  `json:"amount"`
	Date      *time.Time        `json:"date"`
	AccountID *string           `json:"accountId"`
}

// SmoothRequest expands one working allocation into monthly installments.
// With Preview set, the schedule is returned without being applied.
type SmoothRequest struct {
	AllocationID string `json:"allocationId" binding:"required"`
	Months       int    `json:"months" binding:"required"`
	Preview      bool   `json:"preview"`
}

// UnsmoothRequest merges a detected installment group back into a single
// allocation. At least two member ids are required.
type UnsmoothRequest struct {
	AllocationIDs []string `json:"allocationIds" binding:"required,min=2"`
}

// SmoothingSlotResponse mirrors smoothing.SlotInfo for one allocation.
type SmoothingSlotResponse struct {
	Position    int             `json:"position"`
	TotalMonths int             `json:"totalMonths"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// AllocationResponse is one working allocation plus its derived UI state and,
// when it belongs to a detected smoothing group, the group annotation.
type AllocationResponse struct {
	AllocationID   string                 `json:"allocationId"`
	Type           domain.EntryType       `json:"type"`
	Amount         decimal.Decimal        `json:"amount"`
	Date           time.Time              `json:"date"`
	AccountID      string                 `json:"accountId"`
	AccountName    string                 `json:"accountName"`
	AccountIsReal  bool                   `json:"accountIsReal"`
	MasterID       string                 `json:"masterId"`
	ShowVirtual    bool                   `json:"showVirtual"`
	CategoryFilter string                 `json:"categoryFilter"`
	Slot           *SmoothingSlotResponse `json:"slot,omitempty"`
}

// ValidationErrorResponse surfaces a blocking validation condition. Balance
// totals are rendered to two decimal places.
type ValidationErrorResponse struct {
	Kind         string `json:"kind"`
	AllocationID string `json:"allocationId,omitempty"`
	Computed     string `json:"computed,omitempty"`
	Expected     string `json:"expected,omitempty"`
	Delta        string `json:"delta,omitempty"`
	Message      string `json:"message"`
}

// TransactionResponse is the read-only master snapshot of a session.
type TransactionResponse struct {
	TransactionID       string           `json:"transactionId"`
	Description         string           `json:"description"`
	Date                time.Time        `json:"date"`
	Amount              decimal.Decimal  `json:"amount"`
	Type                domain.EntryType `json:"type"`
	AccountID           string           `json:"accountId"`
	MasterAccountName   string           `json:"masterAccountName"`
	MasterAccountIsReal bool             `json:"masterAccountIsReal"`
}

// SessionResponse is the full view of an edit session: the master snapshot,
// the working set with derived annotations, and the save gate state.
type SessionResponse struct {
	SessionID   string                   `json:"sessionId"`
	State       domain.SessionState      `json:"state"`
	Transaction TransactionResponse      `json:"transaction"`
	Description string                   `json:"description"`
	Allocations []AllocationResponse     `json:"allocations"`
	Dirty       bool                     `json:"dirty"`
	CanSave     bool                     `json:"canSave"`
	Validation  *ValidationErrorResponse `json:"validation,omitempty"`
	SaveError   string                   `json:"saveError,omitempty"`
}

// InstallmentResponse is one month of an amortization preview.
type InstallmentResponse struct {
	Date   time.Time       `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// SmoothPreviewResponse returns an expansion without applying it.
type SmoothPreviewResponse struct {
	Installments []InstallmentResponse `json:"installments"`
}

// UnsmoothResponse reports the merge outcome; Removed is how many
// allocations were deleted by the merge.
type UnsmoothResponse struct {
	Merged  AllocationResponse `json:"merged"`
	Removed int                `json:"removed"`
}

// SessionDerived bundles the read-only derivations recomputed on every view
// of a session: dirty flag, validation state, smoothing annotations and the
// resulting save gate.
type SessionDerived struct {
	Dirty      bool
	Validation *accounting.ValidationError
	Slots      map[string]smoothing.SlotInfo
	CanSave    bool
}

// ToValidationErrorResponse converts a validator error for transport.
func ToValidationErrorResponse(ve *accounting.ValidationError) *ValidationErrorResponse {
	if ve == nil {
		return nil
	}
	resp := &ValidationErrorResponse{
		Kind:         string(ve.Kind),
		AllocationID: ve.AllocationID,
		Message:      ve.Error(),
	}
	if ve.Kind == accounting.KindBalance {
		resp.Computed = ve.Computed.StringFixed(2)
		resp.Expected = ve.Expected.StringFixed(2)
		resp.Delta = ve.Delta.StringFixed(2)
	}
	return resp
}

// ToInstallmentResponses converts an expansion schedule for transport.
func ToInstallmentResponses(installments []smoothing.Installment) []InstallmentResponse {
	res := make([]InstallmentResponse, len(installments))
	for i, inst := range installments {
		res[i] = InstallmentResponse{Date: inst.Date, Amount: inst.Amount}
	}
	return res
}

// ToAllocationResponse converts one working allocation, attaching UI state
// and the smoothing slot when present.
func ToAllocationResponse(a domain.Allocation, ui domain.AllocationUIState, slot *smoothing.SlotInfo) AllocationResponse {
	resp := AllocationResponse{
		AllocationID:   a.AllocationID,
		Type:           a.Type,
		Amount:         a.Amount,
		Date:           a.Date,
		AccountID:      a.AccountID,
		AccountName:    a.AccountName,
		AccountIsReal:  a.AccountIsReal,
		MasterID:       a.MasterID,
		ShowVirtual:    ui.ShowVirtual,
		CategoryFilter: ui.CategoryFilter,
	}
	if slot != nil {
		resp.Slot = &SmoothingSlotResponse{
			Position:    slot.Position,
			TotalMonths: slot.TotalMonths,
			TotalAmount: slot.TotalAmount,
		}
	}
	return resp
}

// ToSessionResponse assembles the full session view from the session and its
// derived state.
func ToSessionResponse(s *domain.EditSession, derived SessionDerived) SessionResponse {
	allocs := make([]AllocationResponse, len(s.Working))
	for i, a := range s.Working {
		var slot *smoothing.SlotInfo
		if info, ok := derived.Slots[a.AllocationID]; ok {
			slot = &info
		}
		allocs[i] = ToAllocationResponse(a, s.UIState[a.AllocationID], slot)
	}

	return SessionResponse{
		SessionID: s.SessionID,
		State:     s.State,
		Transaction: TransactionResponse{
			TransactionID:       s.Master.TransactionID,
			Description:         s.Master.Description,
			Date:                s.Master.Date,
			Amount:              s.Master.Amount,
			Type:                s.Master.Type,
			AccountID:           s.Master.AccountID,
			MasterAccountName:   s.Master.MasterAccountName,
			MasterAccountIsReal: s.Master.MasterAccountIsReal,
		},
		Description: s.Description,
		Allocations: allocs,
		Dirty:       derived.Dirty,
		CanSave:     derived.CanSave,
		Validation:  ToValidationErrorResponse(derived.Validation),
		SaveError:   s.SaveError,
	}
}
