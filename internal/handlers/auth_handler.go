package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "pftsystem/internal/errors"
	"pftsystem/internal/middleware"
	"pftsystem/internal/models"
	"pftsystem/internal/services"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	userService     services.UserServicer
	settingsService services.SettingsServicer
	auditService    services.AuditServicer
	defaultTTL      time.Duration
}

// NewAuthHandler creates a new AuthHandler. Tokens live for the system
// settings' JWT expiration, or defaultTTL when that is unset.
func NewAuthHandler(
	userService services.UserServicer,
	settingsService services.SettingsServicer,
	auditService services.AuditServicer,
	defaultTTL time.Duration,
) *AuthHandler {
	return &AuthHandler{
		userService:     userService,
		settingsService: settingsService,
		auditService:    auditService,
		defaultTTL:      defaultTTL,
	}
}

// RegisterRequest represents the registration request payload
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=255"`
	Password  string `json:"password" binding:"required,min=8,max=128"`
	FirstName string `json:"first_name" binding:"max=100"`
	LastName  string `json:"last_name" binding:"max=100"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateUserSettingsRequest represents the payload for changing user preferences.
type UpdateUserSettingsRequest struct {
	Currency             *string `json:"currency" binding:"omitempty,iso4217"`
	NotificationsEnabled *bool   `json:"notifications_enabled"`
}

// UserResponse represents the user data in the response
type UserResponse struct {
	ID        string              `json:"id"`
	Email     string              `json:"email"`
	FirstName string              `json:"first_name"`
	LastName  string              `json:"last_name"`
	Role      models.Role         `json:"role"`
	Settings  models.UserSettings `json:"settings"`
}

// AuthResponse represents the authentication response with token
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

func toUserResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
		Settings:  user.Settings,
	}
}

// tokenTTL reads the token lifetime from the system settings.
func (h *AuthHandler) tokenTTL() time.Duration {
	settings, err := h.settingsService.GetSettings()
	if err != nil || settings.JWTExpirationSeconds <= 0 {
		return h.defaultTTL
	}
	return time.Duration(settings.JWTExpirationSeconds) * time.Second
}

func (h *AuthHandler) issueToken(c *gin.Context, status int, user *models.User) {
	token, expiresAt, err := middleware.GenerateAccessToken(user, h.tokenTTL())
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	c.JSON(status, AuthResponse{Token: token, ExpiresAt: expiresAt, User: toUserResponse(user)})
}

// Register handles user registration
// @Summary     Register a new user
// @Description Register a new user with email and password
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body RegisterRequest true "User registration data"
// @Success     201 {object} AuthResponse "User registered and token generated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Email already registered"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, badRequest(err))
		return
	}

	user, err := h.userService.CreateUser(req.Email, req.Password, req.FirstName, req.LastName, models.RoleUser)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(user.ID, "REGISTER", "user", user.ID, c.ClientIP(), nil)
	h.issueToken(c, http.StatusCreated, user)
}

// Login handles user login
// @Summary     Login user
// @Description Authenticate a user and get a token
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body LoginRequest true "User login credentials"
// @Success     200 {object} AuthResponse "User authenticated and token generated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid credentials"
// @Failure     423 {object} ErrorResponse "Account locked"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, badRequest(err))
		return
	}

	user, err := h.userService.AttemptLogin(req.Email, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(user.ID, "LOGIN", "user", user.ID, c.ClientIP(), nil)
	h.issueToken(c, http.StatusOK, user)
}

// Logout revokes the token used for the request
// @Summary     Logout user
// @Description Revoke the bearer token of the current session
// @Tags        auth
// @Produce     json
// @Security    BearerAuth
// @Success     204 "Token revoked"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	tokenHash := c.GetString(middleware.ContextTokenHash)
	if tokenHash == "" {
		respondWithError(c, apperrors.ErrUnauthorized)
		return
	}
	expiresAt := c.GetTime(middleware.ContextTokenExpiresAt)
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(h.defaultTTL)
	}

	if err := h.userService.RevokeToken(tokenHash, expiresAt); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "LOGOUT", "user", userID, c.ClientIP(), nil)
	c.Status(http.StatusNoContent)
}

// GetProfile returns the user's profile
// @Summary     Get user profile
// @Description Get the authenticated user's profile information
// @Tags        user
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} UserResponse "User profile"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "User not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /profile [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.GetUserByID(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}

// GetUserSettings returns the caller's preferences
// @Summary     Get user settings
// @Tags        user
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.UserSettings "User settings"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /profile/settings [get]
func (h *AuthHandler) GetUserSettings(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	settings, err := h.userService.GetSettings(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// UpdateUserSettings changes the caller's preferences
// @Summary     Update user settings
// @Description Change the default currency or toggle notifications
// @Tags        user
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body UpdateUserSettingsRequest true "Settings to change"
// @Success     200 {object} models.UserSettings "Updated settings"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /profile/settings [put]
func (h *AuthHandler) UpdateUserSettings(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateUserSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, badRequest(err))
		return
	}

	settings, err := h.userService.UpdateSettings(userID, req.Currency, req.NotificationsEnabled)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_USER_SETTINGS", "user", userID, c.ClientIP(),
		map[string]interface{}{"currency": req.Currency, "notifications_enabled": req.NotificationsEnabled})

	c.JSON(http.StatusOK, gin.H{"settings": settings})
}
