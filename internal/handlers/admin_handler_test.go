package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "pftsystem/internal/errors"
	"pftsystem/internal/middleware"
	"pftsystem/internal/models"
	"pftsystem/internal/pagination"
	"pftsystem/internal/services"
)

type mockDashboardService struct {
	user  *services.UserDashboard
	admin *services.AdminDashboard
	err   error
}

func (m *mockDashboardService) GetUserDashboard(string) (*services.UserDashboard, error) {
	return m.user, m.err
}

func (m *mockDashboardService) GetAdminDashboard(string) (*services.AdminDashboard, error) {
	return m.admin, m.err
}

func setupAdminRouter(admin *AdminHandler, dashboard *DashboardHandler, role models.Role) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUser(testUserID, role))
	auth.GET("/dashboard", dashboard.GetUserDashboard)
	group := auth.Group("/admin", middleware.AdminOnly())
	group.GET("/dashboard", dashboard.GetAdminDashboard)
	group.GET("/settings", admin.GetSystemSettings)
	group.PUT("/settings", admin.UpdateSystemSettings)
	group.GET("/users", admin.ListUsers)
	return r
}

func TestAdminHandler_SystemSettings(t *testing.T) {
	t.Run("admin updates settings", func(t *testing.T) {
		var got services.SettingsUpdate
		settingsSvc := &mockSettingsService{
			updateSettingsFn: func(in services.SettingsUpdate) (*models.SystemSettings, error) {
				got = in
				return &models.SystemSettings{Base: models.Base{ID: models.SystemSettingsID}, Categories: in.Categories}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupAdminRouter(NewAdminHandler(settingsSvc, &mockUserService{}, audit),
			NewDashboardHandler(&mockDashboardService{}), models.RoleAdmin)

		rec := doRequest(r, "PUT", "/admin/settings", `{"total_transactions_limit":500,"categories":["Food","Rent"]}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.TotalTransactionsLimit == nil || *got.TotalTransactionsLimit != 500 || len(got.Categories) != 2 {
			t.Errorf("unexpected update %+v", got)
		}
		if got.JWTExpirationSeconds != nil {
			t.Error("expected absent fields to stay nil")
		}
		if len(audit.actions) != 1 || audit.actions[0] != "UPDATE_SYSTEM_SETTINGS" {
			t.Errorf("expected an audit entry, got %v", audit.actions)
		}
	})

	t.Run("rejects a too short token lifetime", func(t *testing.T) {
		r := setupAdminRouter(NewAdminHandler(&mockSettingsService{}, &mockUserService{}, &mockAuditService{}),
			NewDashboardHandler(&mockDashboardService{}), models.RoleAdmin)

		rec := doRequest(r, "PUT", "/admin/settings", `{"jwt_expiration_seconds":5}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("regular user forbidden", func(t *testing.T) {
		r := setupAdminRouter(NewAdminHandler(&mockSettingsService{}, &mockUserService{}, &mockAuditService{}),
			NewDashboardHandler(&mockDashboardService{}), models.RoleUser)

		rec := doRequest(r, "GET", "/admin/settings", "")

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "FORBIDDEN")
	})
}

func TestAdminHandler_ListUsers(t *testing.T) {
	userSvc := &mockUserService{
		listUsersFn: func(page pagination.PageRequest) (*pagination.PageResponse[models.User], error) {
			if page.PageSize != 2 {
				t.Errorf("expected page_size 2, got %d", page.PageSize)
			}
			resp := pagination.NewPageResponse([]models.User{*newTestUser()}, 1, 2, 3)
			return &resp, nil
		},
	}
	r := setupAdminRouter(NewAdminHandler(&mockSettingsService{}, userSvc, &mockAuditService{}),
		NewDashboardHandler(&mockDashboardService{}), models.RoleAdmin)

	rec := doRequest(r, "GET", "/admin/users?page_size=2", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	if result["total_pages"].(float64) != 2 {
		t.Errorf("expected 2 pages, got %v", result["total_pages"])
	}
	user := result["data"].([]interface{})[0].(map[string]interface{})
	if _, leaked := user["password"]; leaked {
		t.Error("password hash must not be serialized")
	}
}

func TestDashboardHandler(t *testing.T) {
	dashboards := &mockDashboardService{
		user:  &services.UserDashboard{Username: "Jane Doe", OngoingGoals: []models.Goal{}},
		admin: &services.AdminDashboard{TotalUsers: 7, SystemUsage: 42},
	}

	t.Run("user_dashboard", func(t *testing.T) {
		r := setupAdminRouter(NewAdminHandler(&mockSettingsService{}, &mockUserService{}, &mockAuditService{}),
			NewDashboardHandler(dashboards), models.RoleUser)

		rec := doRequest(r, "GET", "/dashboard", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if parseJSON(t, rec)["username"] != "Jane Doe" {
			t.Error("expected the username")
		}
	})

	t.Run("admin_dashboard", func(t *testing.T) {
		r := setupAdminRouter(NewAdminHandler(&mockSettingsService{}, &mockUserService{}, &mockAuditService{}),
			NewDashboardHandler(dashboards), models.RoleAdmin)

		rec := doRequest(r, "GET", "/admin/dashboard", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		if result["total_users"].(float64) != 7 || result["system_usage"].(float64) != 42 {
			t.Errorf("unexpected dashboard %v", result)
		}
	})

	t.Run("service_forbidden", func(t *testing.T) {
		r := setupAdminRouter(NewAdminHandler(&mockSettingsService{}, &mockUserService{}, &mockAuditService{}),
			NewDashboardHandler(&mockDashboardService{err: apperrors.ErrForbidden}), models.RoleAdmin)

		rec := doRequest(r, "GET", "/admin/dashboard", "")

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})
}
