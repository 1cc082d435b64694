package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/magickw/ShopSmartly-sub000/internal/auth"
	apierrors "github.com/magickw/ShopSmartly-sub000/internal/errors"
	"github.com/magickw/ShopSmartly-sub000/internal/logger"
	"github.com/magickw/ShopSmartly-sub000/internal/util"
)

// AuthHandlers contains authentication HTTP handlers
type AuthHandlers struct {
	authService *auth.Service
}

// NewAuthHandlers creates a new auth handlers instance
func NewAuthHandlers(authService *auth.Service) *AuthHandlers {
	return &AuthHandlers{authService: authService}
}

// Register handles native email/password registration
// POST /api/v1/auth/register
func (h *AuthHandlers) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	authResp, err := h.authService.RegisterNativeUser(req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			util.RespondWithAPIError(c, apierrors.AlreadyExists("account with this email"))
		case errors.Is(err, auth.ErrUsernameExists):
			util.RespondWithAPIError(c, apierrors.AlreadyExists("username"))
		default:
			logger.ErrorWithFields("Registration failed", err)
			util.RespondInternalError(c, "registration failed")
		}
		return
	}

	c.JSON(http.StatusCreated, authResp)
}

// Login handles native email/password login
// POST /api/v1/auth/login
func (h *AuthHandlers) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	authResp, err := h.authService.LoginNativeUser(req)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) || errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		logger.ErrorWithFields("Login failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, authResp)
}

// Me returns the authenticated user
// GET /api/v1/auth/me
func (h *AuthHandlers) Me(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// GoogleLogin starts the Google OAuth flow
// GET /api/v1/auth/google
func (h *AuthHandlers) GoogleLogin(c *gin.Context) {
	state := uuid.New().String()
	if err := h.authService.StoreState(c.Request.Context(), state); err != nil {
		logger.ErrorWithFields("Failed to store OAuth state", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start oauth flow"})
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, h.authService.GetGoogleOAuthURL(state))
}

// GoogleCallback completes the Google OAuth flow
// GET /api/v1/auth/google/callback
func (h *AuthHandlers) GoogleCallback(c *gin.Context) {
	h.handleOAuthCallback(c, "google")
}

// AppleLogin starts the Sign in with Apple flow
// GET /api/v1/auth/apple
func (h *AuthHandlers) AppleLogin(c *gin.Context) {
	state := uuid.New().String()
	if err := h.authService.StoreState(c.Request.Context(), state); err != nil {
		logger.ErrorWithFields("Failed to store OAuth state", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start oauth flow"})
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, h.authService.GetAppleOAuthURL(state))
}

// AppleCallback completes the Sign in with Apple flow. Apple posts the
// form back, so code/state may arrive in the body instead of the query.
// POST /api/v1/auth/apple/callback
func (h *AuthHandlers) AppleCallback(c *gin.Context) {
	h.handleOAuthCallback(c, "apple")
}

func (h *AuthHandlers) handleOAuthCallback(c *gin.Context, provider string) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" {
		code = c.PostForm("code")
		state = c.PostForm("state")
	}
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing authorization code"})
		return
	}

	if err := h.authService.ConsumeState(c.Request.Context(), state); err != nil {
		if errors.Is(err, auth.ErrInvalidState) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired oauth state"})
			return
		}
		logger.ErrorWithFields("OAuth state check failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "oauth flow failed"})
		return
	}

	var (
		authResp *auth.AuthResponse
		err      error
	)
	if provider == "apple" {
		authResp, err = h.authService.HandleAppleCallback(c.Request.Context(), code)
	} else {
		authResp, err = h.authService.HandleGoogleCallback(c.Request.Context(), code)
	}
	if err != nil {
		logger.ErrorWithFields("OAuth callback failed", err, logger.WithSource(provider))
		c.JSON(http.StatusBadGateway, gin.H{"error": "oauth provider error"})
		return
	}

	c.JSON(http.StatusOK, authResp)
}

// AuthMiddleware validates the Bearer token and loads the user into the
// request context
func (h *AuthHandlers) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		if tokenString == header || tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		user, err := h.authService.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Next()
	}
}

// OptionalAuthMiddleware loads the user when a valid Bearer token is
// present but lets anonymous requests through. Used on public routes
// that attribute activity to a user when one is known.
func (h *AuthHandlers) OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString := strings.TrimPrefix(header, "Bearer ")
		if tokenString != "" && tokenString != header {
			if user, err := h.authService.ValidateToken(tokenString); err == nil {
				c.Set("user", user)
				c.Set("user_id", user.ID)
			}
		}
		c.Next()
	}
}
