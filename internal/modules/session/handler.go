package session

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"huddle/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const refreshCookieName = "refresh_token"

// Handler manages all HTTP interactions for authentication and sessions.
type Handler struct {
	service        *Service
	cookieSecure   bool
	cookieSameSite string
	cookiePath     string
	cookieMaxAge   int
}

func NewHandler(service *Service, cookieSecure bool, cookieSameSite, cookiePath string, refreshTTL time.Duration) *Handler {
	return &Handler{
		service:        service,
		cookieSecure:   cookieSecure,
		cookieSameSite: cookieSameSite,
		cookiePath:     cookiePath,
		cookieMaxAge:   int(refreshTTL.Seconds()),
	}
}

func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup) {
	v1.POST("/signup", h.Signup)
	v1.POST("/login", h.Login)
	v1.POST("/refresh", h.Refresh)
	v1.POST("/logout", h.Logout)
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	protected.POST("/me", h.Me)
}

func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	result, err := h.service.Signup(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrIdentifierTaken):
			response.Error(c, http.StatusConflict, "IDENTIFIER_TAKEN", "Username or email is already registered")
		case errors.Is(err, ErrDatabaseUnavailable):
			response.Error(c, http.StatusInternalServerError, "DATABASE_UNAVAILABLE", "Temporary storage failure, retry later")
		default:
			response.Error(c, http.StatusInternalServerError, "SIGNUP_FAILED", "Failed to sign up")
		}
		return
	}

	h.setRefreshCookie(c, result.Tokens.RefreshToken)

	response.Success(c, http.StatusOK, gin.H{
		"account": AccountPublic{
			ID:       result.Account.ID,
			Username: result.Account.Username,
			Email:    result.Account.Email,
		},
		"access_token": result.Tokens.AccessToken,
	})
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	result, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Identifier or password is incorrect")
		case errors.Is(err, ErrDatabaseUnavailable):
			response.Error(c, http.StatusInternalServerError, "DATABASE_UNAVAILABLE", "Temporary storage failure, retry later")
		default:
			response.Error(c, http.StatusInternalServerError, "LOGIN_FAILED", "Failed to login")
		}
		return
	}

	h.setRefreshCookie(c, result.Tokens.RefreshToken)

	response.Success(c, http.StatusOK, gin.H{
		"account": AccountPublic{
			ID:       result.Account.ID,
			Username: result.Account.Username,
			Email:    result.Account.Email,
		},
		"access_token": result.Tokens.AccessToken,
	})
}

func (h *Handler) Refresh(c *gin.Context) {
	raw, err := c.Cookie(refreshCookieName)
	if err != nil || strings.TrimSpace(raw) == "" {
		response.Error(c, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "Refresh token is missing or invalid")
		return
	}

	tokens, err := h.service.Refresh(c.Request.Context(), raw)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRefreshToken):
			response.Error(c, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "Refresh token is invalid or expired")
		case errors.Is(err, ErrDatabaseUnavailable):
			response.Error(c, http.StatusInternalServerError, "DATABASE_UNAVAILABLE", "Temporary storage failure, retry later")
		default:
			response.Error(c, http.StatusInternalServerError, "REFRESH_FAILED", "Failed to refresh session")
		}
		return
	}

	h.setRefreshCookie(c, tokens.RefreshToken)

	response.Success(c, http.StatusOK, gin.H{
		"access_token": tokens.AccessToken,
	})
}

// Logout always clears the cookie; a present-but-invalid token is still 401
// so clients notice a dead session, but an absent cookie succeeds trivially.
func (h *Handler) Logout(c *gin.Context) {
	raw, err := c.Cookie(refreshCookieName)

	h.clearRefreshCookie(c)

	if err != nil || strings.TrimSpace(raw) == "" {
		response.Success(c, http.StatusOK, gin.H{"status": "logged_out"})
		return
	}

	if err := h.service.Logout(c.Request.Context(), raw); err != nil {
		switch {
		case errors.Is(err, ErrInvalidRefreshToken):
			response.Error(c, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "Refresh token is invalid or expired")
		case errors.Is(err, ErrDatabaseUnavailable):
			response.Error(c, http.StatusInternalServerError, "DATABASE_UNAVAILABLE", "Temporary storage failure, retry later")
		default:
			response.Error(c, http.StatusInternalServerError, "LOGOUT_FAILED", "Failed to logout")
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "logged_out"})
}

func (h *Handler) Me(c *gin.Context) {
	accountID := c.GetInt64("user_id")
	if accountID == 0 {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req MeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	account, err := h.service.GetCurrentAccount(c.Request.Context(), accountID)
	if err != nil {
		switch {
		case errors.Is(err, ErrAccountNotFound):
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Account no longer exists")
		case errors.Is(err, ErrDatabaseUnavailable):
			response.Error(c, http.StatusInternalServerError, "DATABASE_UNAVAILABLE", "Temporary storage failure, retry later")
		default:
			response.Error(c, http.StatusInternalServerError, "ME_FAILED", "Failed to load account")
		}
		return
	}

	if req.Email != "" && !strings.EqualFold(strings.TrimSpace(req.Email), account.Email) {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Email does not match the authenticated account")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"account": AccountPublic{
			ID:       account.ID,
			Username: account.Username,
			Email:    account.Email,
		},
	})
}

func (h *Handler) setRefreshCookie(c *gin.Context, raw string) {
	c.SetSameSite(parseSameSite(h.cookieSameSite))
	c.SetCookie(refreshCookieName, raw, h.cookieMaxAge, h.cookiePath, "", h.cookieSecure, true)
}

func (h *Handler) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(parseSameSite(h.cookieSameSite))
	c.SetCookie(refreshCookieName, "", -1, h.cookiePath, "", h.cookieSecure, true)
}

func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
