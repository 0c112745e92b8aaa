package auth

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lumen-tutoring/booking-backend/pkg/response"
	"github.com/lumen-tutoring/booking-backend/pkg/utils"
)

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Account is the configured back-office login.
type Account struct {
	Email        string
	PasswordHash string // bcrypt
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	account Account
	jwt     *JWTService
	logger  *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(account Account, jwt *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{account: account, jwt: jwt, logger: logger}
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	if h.account.PasswordHash == "" {
		h.logger.Warn("login attempted but ADMIN_PASSWORD_HASH is not configured")
		response.Unauthorized(c, "invalid email or password")
		return
	}
	emailOK := subtle.ConstantTimeCompare([]byte(strings.ToLower(req.Email)), []byte(strings.ToLower(h.account.Email))) == 1
	if !utils.CheckPassword(req.Password, h.account.PasswordHash) || !emailOK {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(h.account.Email, RoleAdmin)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.OK(c, TokenResponse{Token: token, Email: h.account.Email, Role: RoleAdmin})
}
