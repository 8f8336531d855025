package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pftsystem/internal/services"
)

// NotificationHandler serves notifications projected from current state.
type NotificationHandler struct {
	notificationService services.NotificationServicer
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notificationService services.NotificationServicer) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// GetNotifications returns every notification for the caller.
// @Summary     Get all notifications
// @Description Budget, recurring transaction and goal notifications. Empty when the user disabled notifications.
// @Tags        notifications
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.Notifications "Notifications"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /notifications [get]
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	notifications, err := h.notificationService.GetAll(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, notifications)
}

// GetBudgetNotifications returns budget warnings for the caller.
// @Summary     Get budget notifications
// @Tags        notifications
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array}  services.BudgetNotification "Budget notifications"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /notifications/budget [get]
func (h *NotificationHandler) GetBudgetNotifications(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	notifications, err := h.notificationService.GetBudgetNotifications(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// GetRecurringNotifications returns upcoming recurring transactions.
// @Summary     Get recurring transaction notifications
// @Tags        notifications
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array}  services.RecurringNotification "Recurring notifications"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /notifications/recurring [get]
func (h *NotificationHandler) GetRecurringNotifications(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	notifications, err := h.notificationService.GetRecurringNotifications(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// GetGoalNotifications returns goal reminders.
// @Summary     Get goal notifications
// @Tags        notifications
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array}  services.GoalNotification "Goal notifications"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /notifications/goals [get]
func (h *NotificationHandler) GetGoalNotifications(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	notifications, err := h.notificationService.GetGoalNotifications(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// GetNotificationCount returns how many notifications of each kind the
// caller has.
// @Summary     Count notifications
// @Tags        notifications
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.NotificationCount "Counts per kind and total"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /notifications/count [get]
func (h *NotificationHandler) GetNotificationCount(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	notifications, err := h.notificationService.GetAll(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, notifications.Count())
}
