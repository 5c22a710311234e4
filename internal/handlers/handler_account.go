package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/ploutos-app/ploutos_edit_api/internal/core/ports/services"
	"github.com/ploutos-app/ploutos_edit_api/internal/dto"
	"github.com/ploutos-app/ploutos_edit_api/internal/middleware"
	"github.com/gin-gonic/gin"
)

// accountHandler handles HTTP requests related to accounts.
type accountHandler struct {
	accountService portssvc.AccountSvcFacade
}

func newAccountHandler(as portssvc.AccountSvcFacade) *accountHandler {
	return &accountHandler{accountService: as}
}

// RegisterAccountRoutes registers routes related to accounts.
func RegisterAccountRoutes(rg *gin.RouterGroup, accountService portssvc.AccountSvcFacade) {
	h := newAccountHandler(accountService)

	accounts := rg.Group("/accounts")
	{
		accounts.GET("", h.listAccounts)
		accounts.POST("/refresh", h.refreshAccounts)
	}
}

// listAccounts godoc
// @Summary List all accounts
// @Description Returns the cached remote account list (real and virtual accounts)
// @Tags accounts
// @Produce json
// @Success 200 {array} dto.AccountResponse
// @Failure 502 {object} map[string]string "Ledger store unreachable"
// @Router /accounts [get]
func (h *accountHandler) listAccounts(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	accounts, err := h.accountService.ListAccounts(c.Request.Context())
	if err != nil {
		logger.Error("Failed to list accounts", slog.String("error", err.Error()))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to retrieve accounts from ledger store"})
		return
	}
	c.JSON(http.StatusOK, dto.ToListAccountResponse(accounts))
}

// refreshAccounts godoc
// @Summary Force-refresh the account cache
// @Tags accounts
// @Produce json
// @Success 204
// @Failure 502 {object} map[string]string "Ledger store unreachable"
// @Router /accounts/refresh [post]
func (h *accountHandler) refreshAccounts(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	if err := h.accountService.Refresh(c.Request.Context()); err != nil {
		logger.Error("Failed to refresh accounts", slog.String("error", err.Error()))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to refresh accounts from ledger store"})
		return
	}
	c.Status(http.StatusNoContent)
}
