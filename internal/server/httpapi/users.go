package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/godex/internal/geo"
	"github.com/dmitrijs2005/godex/internal/logging"
	"github.com/dmitrijs2005/godex/internal/server/models"
)

type UserHandler struct {
	users  UserService
	home   HomeService
	logger logging.Logger
}

func NewUserHandler(users UserService, home HomeService, logger logging.Logger) *UserHandler {
	return &UserHandler{users: users, home: home, logger: logger}
}

type credentialsRequest struct {
	Username string  `json:"username" binding:"required"`
	Password string  `json:"password" binding:"required"`
	Home     *string `json:"home"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type homeRequest struct {
	Home string `json:"home" binding:"required"`
}

// userResponse never carries the password hash.
type userResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Home      *string   `json:"home"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *models.User) userResponse {
	r := userResponse{ID: u.ID, Username: u.UserName, CreatedAt: u.CreatedAt.UTC()}
	if u.Home != nil {
		h := geo.FormatPoint(*u.Home)
		r.Home = &h
	}
	return r
}

func (h *UserHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	u, err := h.users.Register(c.Request.Context(), req.Username, req.Password, req.Home)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(u))
}

func (h *UserHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	pair, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": pair.AccessToken, "refreshToken": pair.RefreshToken})
}

func (h *UserHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	pair, err := h.users.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": pair.AccessToken, "refreshToken": pair.RefreshToken})
}

func (h *UserHandler) Profile(c *gin.Context) {
	u, err := h.users.GetProfile(c.Request.Context(), GetUserID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(u)})
}

func (h *UserHandler) UpdateHome(c *gin.Context) {
	var req homeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.home.UpdateHome(c.Request.Context(), GetUserID(c), req.Home)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "Home location updated and distances recalculated successfully!",
		"home":       geo.FormatPoint(res.Home),
		"recomputed": res.Recomputed,
	})
}
