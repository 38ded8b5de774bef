package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/godex/internal/logging"
	"github.com/dmitrijs2005/godex/internal/server/models"
	"github.com/dmitrijs2005/godex/internal/server/services"
)

type CaptureHandler struct {
	captures CaptureService
	logger   logging.Logger
}

func NewCaptureHandler(captures CaptureService, logger logging.Logger) *CaptureHandler {
	return &CaptureHandler{captures: captures, logger: logger}
}

type createCaptureRequest struct {
	Name      string     `json:"name" binding:"required"`
	Nickname  *string    `json:"nickname"`
	IsShiny   bool       `json:"is_shiny"`
	IV        *int       `json:"iv" binding:"required"`
	Date      *time.Time `json:"date"`
	Location  string     `json:"location" binding:"required"`
	AccountID *int64     `json:"account_id"`
}

// updateCaptureRequest distinguishes an absent account_id from an explicit
// null through ClearAccount.
type updateCaptureRequest struct {
	Name         *string    `json:"name"`
	Nickname     *string    `json:"nickname"`
	IsShiny      *bool      `json:"is_shiny"`
	IV           *int       `json:"iv"`
	Date         *time.Time `json:"date"`
	Location     *string    `json:"location"`
	AccountID    *int64     `json:"account_id"`
	ClearAccount bool       `json:"clear_account"`
}

// parseQuery reads the listing filter from the query string:
// ?q=pika&shiny=true&min_iv=90&sort=iv&order=desc
func parseQuery(c *gin.Context) (models.CaptureFilter, bool) {
	var f models.CaptureFilter

	sort, err := models.ParseSortField(c.Query("sort"))
	if err != nil {
		badRequest(c, err.Error())
		return f, false
	}
	f.Sort = sort
	f.Species = c.Query("q")
	f.Desc = c.Query("order") == "desc"

	if v := c.Query("shiny"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(c, "invalid shiny")
			return f, false
		}
		f.ShinyOnly = b
	}
	if v := c.Query("min_iv"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			badRequest(c, "invalid min_iv")
			return f, false
		}
		f.MinIV = &n
	}
	return f, true
}

func (h *CaptureHandler) List(c *gin.Context) {
	f, ok := parseQuery(c)
	if !ok {
		return
	}
	list, err := h.captures.ListCaptures(c.Request.Context(), GetUserID(c), services.CaptureQuery{Filter: f})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *CaptureHandler) ListByAccount(c *gin.Context) {
	accountID, ok := pathID(c, "accountId")
	if !ok {
		return
	}
	f, ok := parseQuery(c)
	if !ok {
		return
	}
	list, err := h.captures.ListCaptures(c.Request.Context(), GetUserID(c), services.CaptureQuery{AccountID: &accountID, Filter: f})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *CaptureHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	capture, err := h.captures.GetCapture(c.Request.Context(), GetUserID(c), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, capture)
}

func (h *CaptureHandler) Create(c *gin.Context) {
	var req createCaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	capture, err := h.captures.CreateCapture(c.Request.Context(), GetUserID(c), services.CaptureInput{
		AccountID:  req.AccountID,
		Species:    req.Name,
		Nickname:   req.Nickname,
		IsShiny:    req.IsShiny,
		IV:         *req.IV,
		CapturedAt: req.Date,
		Location:   req.Location,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, capture)
}

func (h *CaptureHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateCaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	capture, err := h.captures.UpdateCapture(c.Request.Context(), GetUserID(c), id, services.CaptureUpdate{
		AccountID:    req.AccountID,
		ClearAccount: req.ClearAccount,
		Species:      req.Name,
		Nickname:     req.Nickname,
		IsShiny:      req.IsShiny,
		IV:           req.IV,
		CapturedAt:   req.Date,
		Location:     req.Location,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, capture)
}

func (h *CaptureHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.captures.DeleteCapture(c.Request.Context(), GetUserID(c), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Capture deleted successfully"})
}

func (h *CaptureHandler) DeleteAll(c *gin.Context) {
	n, err := h.captures.DeleteAllCaptures(c.Request.Context(), GetUserID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All captures deleted successfully", "deleted": n})
}
