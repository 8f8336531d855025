package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pftsystem/internal/pagination"
	"pftsystem/internal/services"
)

// AdminHandler handles administrator-only requests.
type AdminHandler struct {
	settingsService services.SettingsServicer
	userService     services.UserServicer
	auditService    services.AuditServicer
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(settingsService services.SettingsServicer, userService services.UserServicer, auditService services.AuditServicer) *AdminHandler {
	return &AdminHandler{settingsService: settingsService, userService: userService, auditService: auditService}
}

// UpdateSystemSettingsRequest represents the payload for changing system settings.
type UpdateSystemSettingsRequest struct {
	TotalTransactionsLimit     *int     `json:"total_transactions_limit" binding:"omitempty,min=1"`
	RecurringTransactionsLimit *int     `json:"recurring_transactions_limit" binding:"omitempty,min=0"`
	Categories                 []string `json:"categories" binding:"omitempty,dive,required,max=100"`
	JWTExpirationSeconds       *int     `json:"jwt_expiration_seconds" binding:"omitempty,min=60"`
}

// GetSystemSettings returns the system settings.
// @Summary     Get system settings
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.SystemSettings "System settings"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not an administrator"
// @Router      /admin/settings [get]
func (h *AdminHandler) GetSystemSettings(c *gin.Context) {
	settings, err := h.settingsService.GetSettings()
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// UpdateSystemSettings changes the system settings.
// @Summary     Update system settings
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body UpdateSystemSettingsRequest true "Settings to change"
// @Success     200 {object} models.SystemSettings "Updated settings"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not an administrator"
// @Router      /admin/settings [put]
func (h *AdminHandler) UpdateSystemSettings(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateSystemSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, badRequest(err))
		return
	}

	settings, err := h.settingsService.UpdateSettings(services.SettingsUpdate{
		TotalTransactionsLimit:     req.TotalTransactionsLimit,
		RecurringTransactionsLimit: req.RecurringTransactionsLimit,
		Categories:                 req.Categories,
		JWTExpirationSeconds:       req.JWTExpirationSeconds,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_SYSTEM_SETTINGS", "system_settings", settings.ID, c.ClientIP(),
		map[string]interface{}{
			"total_transactions_limit":     req.TotalTransactionsLimit,
			"recurring_transactions_limit": req.RecurringTransactionsLimit,
			"categories":                   req.Categories,
			"jwt_expiration_seconds":       req.JWTExpirationSeconds,
		})

	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// ListUsers returns a page of registered users.
// @Summary     List users
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.User] "Paginated users"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not an administrator"
// @Router      /admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, badRequest(err))
		return
	}

	result, err := h.userService.ListUsers(page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
