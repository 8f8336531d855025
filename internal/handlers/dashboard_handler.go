package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pftsystem/internal/services"
)

// DashboardHandler serves the landing page data.
type DashboardHandler struct {
	dashboardService services.DashboardServicer
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService services.DashboardServicer) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// GetUserDashboard returns this month's totals, the budget and ongoing goals.
// @Summary     Get user dashboard
// @Tags        dashboard
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.UserDashboard "Dashboard"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /dashboard [get]
func (h *DashboardHandler) GetUserDashboard(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	dashboard, err := h.dashboardService.GetUserDashboard(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, dashboard)
}

// GetAdminDashboard returns system-wide counts.
// @Summary     Get admin dashboard
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.AdminDashboard "Dashboard"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not an administrator"
// @Router      /admin/dashboard [get]
func (h *DashboardHandler) GetAdminDashboard(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	dashboard, err := h.dashboardService.GetAdminDashboard(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, dashboard)
}
