package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "pftsystem/internal/errors"
	"pftsystem/internal/services"
)

type mockNotificationService struct {
	budget    []services.BudgetNotification
	recurring []services.RecurringNotification
	goals     []services.GoalNotification
	err       error
}

func (m *mockNotificationService) GetBudgetNotifications(string) ([]services.BudgetNotification, error) {
	return m.budget, m.err
}

func (m *mockNotificationService) GetRecurringNotifications(string) ([]services.RecurringNotification, error) {
	return m.recurring, m.err
}

func (m *mockNotificationService) GetGoalNotifications(context.Context, string) ([]services.GoalNotification, error) {
	return m.goals, m.err
}

func (m *mockNotificationService) GetAll(context.Context, string) (*services.Notifications, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &services.Notifications{Budget: m.budget, Recurring: m.recurring, Goals: m.goals}, nil
}

var _ services.NotificationServicer = (*mockNotificationService)(nil)

func setupNotificationRouter(handler *NotificationHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.GET("/notifications", handler.GetNotifications)
	auth.GET("/notifications/count", handler.GetNotificationCount)
	auth.GET("/notifications/budget", handler.GetBudgetNotifications)
	auth.GET("/notifications/recurring", handler.GetRecurringNotifications)
	auth.GET("/notifications/goals", handler.GetGoalNotifications)
	return r
}

func TestNotificationHandler(t *testing.T) {
	svc := &mockNotificationService{
		budget: []services.BudgetNotification{{Message: "You have used 85.0% of your monthly budget."}},
		recurring: []services.RecurringNotification{
			{TransactionID: testTransactionID, DaysUntil: 1},
			{TransactionID: testTransactionID, DaysUntil: 3},
		},
		goals: []services.GoalNotification{{GoalID: testGoalID, Kind: services.GoalNearTarget}},
	}
	r := setupNotificationRouter(NewNotificationHandler(svc))

	t.Run("all", func(t *testing.T) {
		rec := doRequest(r, "GET", "/notifications", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		if len(result["budget"].([]interface{})) != 1 ||
			len(result["recurring"].([]interface{})) != 2 ||
			len(result["goals"].([]interface{})) != 1 {
			t.Errorf("unexpected notifications %v", result)
		}
	})

	t.Run("by_kind", func(t *testing.T) {
		tests := []struct {
			path string
			want int
		}{
			{"/notifications/budget", 1},
			{"/notifications/recurring", 2},
			{"/notifications/goals", 1},
		}
		for _, tt := range tests {
			rec := doRequest(r, "GET", tt.path, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("%s: expected 200, got %d", tt.path, rec.Code)
			}
			items := parseJSON(t, rec)["notifications"].([]interface{})
			if len(items) != tt.want {
				t.Errorf("%s: expected %d items, got %d", tt.path, tt.want, len(items))
			}
		}
	})

	t.Run("count", func(t *testing.T) {
		rec := doRequest(r, "GET", "/notifications/count", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		if result["budget"] != float64(1) || result["recurring"] != float64(2) ||
			result["goals"] != float64(1) || result["total"] != float64(4) {
			t.Errorf("unexpected counts %v", result)
		}
	})

	t.Run("service_error", func(t *testing.T) {
		r := setupNotificationRouter(NewNotificationHandler(&mockNotificationService{err: apperrors.ErrUserNotFound}))
		rec := doRequest(r, "GET", "/notifications", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}
