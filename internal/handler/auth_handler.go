package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mesopotato/enrich-justice/internal/service"
	"github.com/mesopotato/enrich-justice/pkg/log"
)

// AuthHandler issues admin tokens.
type AuthHandler struct {
	userService service.UserService
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(userService service.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "username and password are required")
		return
	}
	access, refresh, err := h.userService.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			fail(c, http.StatusUnauthorized, "invalid credentials")
			return
		}
		log.Error("[AuthHandler] login failed", err)
		fail(c, http.StatusInternalServerError, "internal error")
		return
	}
	success(c, gin.H{"token": access, "refreshToken": refresh})
}

// RefreshToken handles POST /auth/refreshToken.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "refreshToken is required")
		return
	}
	access, err := h.userService.RefreshToken(req.RefreshToken)
	if err != nil {
		log.Warnf("[AuthHandler] refresh rejected: %v", err)
		fail(c, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	success(c, gin.H{"token": access})
}
