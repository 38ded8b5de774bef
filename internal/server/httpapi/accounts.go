package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/godex/internal/logging"
	"github.com/dmitrijs2005/godex/internal/server/services"
)

type AccountHandler struct {
	accounts AccountService
	logger   logging.Logger
}

func NewAccountHandler(accounts AccountService, logger logging.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger}
}

type createAccountRequest struct {
	AccountName string `json:"account_name" binding:"required"`
	IsMain      bool   `json:"is_main"`
}

type updateAccountRequest struct {
	AccountName *string `json:"account_name"`
	IsMain      *bool   `json:"is_main"`
}

func (h *AccountHandler) List(c *gin.Context) {
	list, err := h.accounts.ListAccountsWithStats(c.Request.Context(), GetUserID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *AccountHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	acc, err := h.accounts.GetAccount(c.Request.Context(), GetUserID(c), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

func (h *AccountHandler) Stats(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	st, err := h.accounts.ComputeStats(c.Request.Context(), GetUserID(c), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *AccountHandler) Create(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	acc, err := h.accounts.CreateAccount(c.Request.Context(), GetUserID(c), req.AccountName, req.IsMain)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, acc)
}

func (h *AccountHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	acc, err := h.accounts.UpdateAccount(c.Request.Context(), GetUserID(c), id, services.AccountUpdate{
		Name:   req.AccountName,
		IsMain: req.IsMain,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

func (h *AccountHandler) SetPrimary(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.accounts.SetPrimary(c.Request.Context(), GetUserID(c), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Primary account updated"})
}

func (h *AccountHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.accounts.DeleteAccount(c.Request.Context(), GetUserID(c), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted successfully"})
}

func (h *AccountHandler) DeleteAll(c *gin.Context) {
	n, err := h.accounts.DeleteAllAccounts(c.Request.Context(), GetUserID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All accounts deleted successfully", "deleted": n})
}
