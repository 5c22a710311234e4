package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ploutos-app/ploutos_edit_api/internal/apperrors"
	"github.com/ploutos-app/ploutos_edit_api/internal/core/domain"
	portssvc "github.com/ploutos-app/ploutos_edit_api/internal/core/ports/services"
	"github.com/ploutos-app/ploutos_edit_api/internal/dto"
	"github.com/ploutos-app/ploutos_edit_api/internal/middleware"
	"github.com/ploutos-app/ploutos_edit_api/internal/utils/accounting"
)

// sessionHandler exposes the edit session controller to the front end.
type sessionHandler struct {
	sessionService portssvc.EditSessionSvcFacade
}

func newSessionHandler(es portssvc.EditSessionSvcFacade) *sessionHandler {
	return &sessionHandler{sessionService: es}
}

// RegisterSessionRoutes registers routes related to transaction edit sessions.
func RegisterSessionRoutes(rg *gin.RouterGroup, sessionService portssvc.EditSessionSvcFacade) {
	h := newSessionHandler(sessionService)

	sessions := rg.Group("/sessions")
	{
		sessions.POST("", h.openSession)
		sessions.GET("/:sessionID", h.getSession)
		sessions.DELETE("/:sessionID", h.closeSession)
		sessions.PUT("/:sessionID/description", h.updateDescription)
		sessions.POST("/:sessionID/allocations", h.addAllocation)
		sessions.PATCH("/:sessionID/allocations/:allocationID", h.updateAllocation)
		sessions.DELETE("/:sessionID/allocations/:allocationID", h.removeAllocation)
		sessions.POST("/:sessionID/smooth", h.smooth)
		sessions.POST("/:sessionID/unsmooth", h.unsmooth)
		sessions.POST("/:sessionID/save", h.save)
	}
}

// respondSession renders the session with its derived state.
func (h *sessionHandler) respondSession(c *gin.Context, status int, sess *domain.EditSession) {
	c.JSON(status, dto.ToSessionResponse(sess, h.sessionService.Derive(sess)))
}

// respondError maps service errors onto HTTP statuses. Validation failures
// carry their structured payload so the front end can highlight the
// offending allocation.
func respondError(c *gin.Context, err error) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var ve *accounting.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": ve.Error(), "validation": dto.ToValidationErrorResponse(ve)})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrSaveInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": "A save is already in flight for this session"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrSaveFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		logger.Error("Unhandled service error", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// openSession godoc
// @Summary Open an edit session for a transaction
// @Description Clones the transaction's allocations into a working set for editing
// @Tags sessions
// @Accept json
// @Produce json
// @Param session body dto.OpenSessionRequest true "Transaction to edit"
// @Success 201 {object} dto.SessionResponse
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 404 {object} map[string]string "Transaction not found"
// @Router /sessions [post]
func (h *sessionHandler) openSession(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for openSession", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	sess, err := h.sessionService.OpenSession(c.Request.Context(), req.TransactionID)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondSession(c, http.StatusCreated, sess)
}

// getSession godoc
// @Summary Get the current state of an edit session
// @Description Returns the working set with dirty flag, validation state and smoothing annotations
// @Tags sessions
// @Produce json
// @Param sessionID path string true "Session ID"
// @Success 200 {object} dto.SessionResponse
// @Failure 404 {object} map[string]string "Session not found"
// @Router /sessions/{sessionID} [get]
func (h *sessionHandler) getSession(c *gin.Context) {
	sess, err := h.sessionService.GetSession(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondSession(c, http.StatusOK, sess)
}

// closeSession godoc
// @Summary Cancel an edit session
// @Description Discards the working copy unconditionally; the remote record is untouched
// @Tags sessions
// @Produce json
// @Param sessionID path string true "Session ID"
// @Success 204
// @Failure 404 {object} map[string]string "Session not found"
// @Failure 409 {object} map[string]string "Save in flight"
// @Router /sessions/{sessionID} [delete]
func (h *sessionHandler) closeSession(c *gin.Context) {
	if err := h.sessionService.CloseSession(c.Request.Context(), c.Param("sessionID")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// updateDescription godoc
// @Summary Edit the working description
// @Tags sessions
// @Accept json
// @Produce json
// @Param sessionID path string true "Session ID"
// @Param description body dto.UpdateDescriptionRequest true "New description"
// @Success 200 {object} dto.SessionResponse
// @Failure 404 {object} map[string]string "Session not found"
// @Router /sessions/{sessionID}/description [put]
func (h *sessionHandler) updateDescription(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.UpdateDescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for updateDescription", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	sess, err := h.sessionService.UpdateDescription(c.Request.Context(), c.Param("sessionID"), req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondSession(c, http.StatusOK, sess)
}

// addAllocation godoc
// @Summary Add a new allocation to the working set
// @Description The new allocation defaults to the first virtual account, zero amount and debit type
// @Tags sessions
// @Produce json
// @Param sessionID path string true "Session ID"
// @Success 200 {object} dto.SessionResponse
// @Failure 404 {object} map[string]string "Session not found"
// @Router /sessions/{sessionID}/allocations [post]
func (h *sessionHandler) addAllocation(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	sess, added, err := h.sessionService.AddAllocation(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		respondError(c, err)
		return
	}
	logger.Info("Allocation added", slog.String("allocation_id", added.AllocationID))
	h.respondSession(c, http.StatusOK, sess)
}

// updateAllocation godoc
// @Summary Patch fields on one working allocation
// @Tags sessions
// @Accept json
// @Produce json
// @Param sessionID path string true "Session ID"
// @Param allocationID path string true "Allocation ID"
// @Param allocation body dto.UpdateAllocationRequest true "Fields to change"
// @Success 200 {object} dto.SessionResponse
// @Failure 404 {object} map[string]string "Session or allocation not found"
// @Router /sessions/{sessionID}/allocations/{allocationID} [patch]
func (h *sessionHandler) updateAllocation(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.UpdateAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for updateAllocation", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	sess, err := h.sessionService.UpdateAllocation(c.Request.Context(), c.Param("sessionID"), c.Param("allocationID"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondSession(c, http.StatusOK, sess)
}

// removeAllocation godoc
// @Summary Delete one working allocation
// @Tags sessions
// @Produce json
// @Param sessionID path string true "Session ID"
// @Param allocationID path string true "Allocation ID"
// @Success 200 {object} dto.SessionResponse
// @Failure 404 {object} map[string]string "Session or allocation not found"
// @Router /sessions/{sessionID}/allocations/{allocationID} [delete]
func (h *sessionHandler) removeAllocation(c *gin.Context) {
	sess, err := h.sessionService.RemoveAllocation(c.Request.Context(), c.Param("sessionID"), c.Param("allocationID"))
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondSession(c, http.StatusOK, sess)
}

// smooth godoc
// @Summary Amortize one allocation over N months
// @Description Replaces the allocation with N monthly installments; with preview=true the schedule is returned without being applied
// @Tags sessions
// @Accept json
// @Produce json
// @Param sessionID path string true "Session ID"
// @Param smooth body dto.SmoothRequest true "Allocation and month count"
// @Success 200 {object} dto.SessionResponse
// @Failure 400 {object} map[string]string "Months or amount out of range"
// @Failure 404 {object} map[string]string "Session or allocation not found"
// @Router /sessions/{sessionID}/smooth [post]
func (h *sessionHandler) smooth(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.SmoothRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for smooth", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	if req.Preview {
		installments, err := h.sessionService.PreviewSmooth(c.Request.Context(), c.Param("sessionID"), req.AllocationID, req.Months)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.SmoothPreviewResponse{Installments: dto.ToInstallmentResponses(installments)})
		return
	}

	sess, err := h.sessionService.Smooth(c.Request.Context(), c.Param("sessionID"), req.AllocationID, req.Months)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondSession(c, http.StatusOK, sess)
}

// unsmooth godoc
// @Summary Merge an installment group back into one allocation
// @Description Destructive: all members but the earliest are deleted and their amounts summed into it
// @Tags sessions
// @Accept json
// @Produce json
// @Param sessionID path string true "Session ID"
// @Param unsmooth body dto.UnsmoothRequest true "Group member ids"
// @Success 200 {object} dto.UnsmoothResponse
// @Failure 404 {object} map[string]string "Session or group member not found"
// @Router /sessions/{sessionID}/unsmooth [post]
func (h *sessionHandler) unsmooth(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.UnsmoothRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for unsmooth", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	sess, merged, removed, err := h.sessionService.Unsmooth(c.Request.Context(), c.Param("sessionID"), req.AllocationIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.UnsmoothResponse{
		Merged:  dto.ToAllocationResponse(*merged, sess.UIState[merged.AllocationID], nil),
		Removed: removed,
	})
}

// save godoc
// @Summary Commit the working set to the ledger store
// @Description Permitted only when the session is dirty and validates; failure keeps the session open with the error retained
// @Tags sessions
// @Produce json
// @Param sessionID path string true "Session ID"
// @Success 204
// @Failure 404 {object} map[string]string "Session not found"
// @Failure 409 {object} map[string]string "Save already in flight"
// @Failure 422 {object} map[string]string "Allocations do not validate"
// @Failure 502 {object} map[string]string "Ledger store rejected the update"
// @Router /sessions/{sessionID}/save [post]
func (h *sessionHandler) save(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	if err := h.sessionService.Save(c.Request.Context(), c.Param("sessionID")); err != nil {
		respondError(c, err)
		return
	}
	logger.Info("Session saved", slog.String("session_id", c.Param("sessionID")))
	c.Status(http.StatusNoContent)
}
