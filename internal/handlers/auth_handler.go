package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/insurance-api/internal/middleware"
	"github.com/sjperalta/insurance-api/internal/services"
)

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// @Summary Health Check
// @Description Reports that the API is up
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *HealthHandler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "insurance-api"})
}

// AuthHandler serves the session endpoints and hands its service to the
// router as the token verifier for protected routes
type AuthHandler struct {
	sessions *services.AuthService
}

func NewAuthHandler(sessions *services.AuthService) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// Verifier is what middleware.Auth checks access tokens against
func (h *AuthHandler) Verifier() middleware.TokenVerifier {
	return h.sessions
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type SessionRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func bindSession(c *gin.Context) (string, bool) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, errorBody{Message: "refresh_token is required", MessageKey: "auth.refresh_required"})
		return "", false
	}
	return req.RefreshToken, true
}

// @Summary Login
// @Description Opens a staff session. legacy_token is returned when older clients are still supported.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} services.Session
// @Failure 401 {object} errorBody
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, errorBody{Message: "email and password are required", MessageKey: "auth.credentials_required"})
		return
	}

	session, err := h.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// @Summary Refresh Session
// @Description Trades a single-use refresh token for a new session
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body SessionRequest true "Refresh token"
// @Success 200 {object} services.Session
// @Failure 401 {object} errorBody
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	token, ok := bindSession(c)
	if !ok {
		return
	}

	session, err := h.sessions.Refresh(c.Request.Context(), token)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// @Summary Logout
// @Description Revokes one refresh token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body SessionRequest true "Refresh token"
// @Success 200 {object} map[string]string
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	token, ok := bindSession(c)
	if !ok {
		return
	}

	if err := h.sessions.Logout(c.Request.Context(), token); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out", "messageKey": "auth.logged_out"})
}

// @Summary Logout Everywhere
// @Description Revokes every refresh token of the calling user
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Router /auth/logout_all [post]
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	if err := h.sessions.LogoutEverywhere(c.Request.Context(), middleware.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "all sessions revoked", "messageKey": "auth.logged_out_everywhere"})
}
