package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-tutoring/booking-backend/pkg/utils"
)

func TestJWT_RoundTrip(t *testing.T) {
	svc := NewJWTService("secret", 1)
	tok, err := svc.Generate("ops@example.com", RoleAdmin)
	require.NoError(t, err)

	claims, err := svc.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Email)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestJWT_RejectsForeignSecretAndExpiry(t *testing.T) {
	tok, err := NewJWTService("other", 1).Generate("ops@example.com", RoleAdmin)
	require.NoError(t, err)
	_, err = NewJWTService("secret", 1).Validate(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewJWTService("secret", 1)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	tok, err = expired.Generate("ops@example.com", RoleAdmin)
	require.NoError(t, err)
	_, err = expired.Validate(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWT_RejectsNoneAlgorithm(t *testing.T) {
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Email: "x", Role: RoleAdmin})
	tok, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = NewJWTService("secret", 1).Validate(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func login(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/login", h.Login)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestLogin(t *testing.T) {
	hash, err := utils.HashPassword("s3cret!")
	require.NoError(t, err)
	svc := NewJWTService("secret", 1)
	h := NewHandler(Account{Email: "ops@example.com", PasswordHash: hash}, svc, nil)

	w := login(t, h, `{"email":"OPS@example.com","password":"s3cret!"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Success bool          `json:"success"`
		Data    TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	claims, err := svc.Validate(body.Data.Token)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, claims.Role)

	assert.Equal(t, http.StatusUnauthorized, login(t, h, `{"email":"ops@example.com","password":"nope"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, login(t, h, `{"email":"other@example.com","password":"s3cret!"}`).Code)
	assert.Equal(t, http.StatusBadRequest, login(t, h, `{"email":"not-an-email"}`).Code)
}

func TestLogin_UnconfiguredHashRejects(t *testing.T) {
	h := NewHandler(Account{Email: "ops@example.com"}, NewJWTService("secret", 1), nil)
	assert.Equal(t, http.StatusUnauthorized, login(t, h, `{"email":"ops@example.com","password":"x"}`).Code)
}
