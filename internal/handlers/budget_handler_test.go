package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "pftsystem/internal/errors"
	"pftsystem/internal/models"
	"pftsystem/internal/pagination"
	"pftsystem/internal/services"
)

// --- mock budget service ---

type mockBudgetService struct {
	createBudgetFn      func(userID string, in services.BudgetInput) (*models.Budget, error)
	getUserBudgetFn     func(userID string) (*models.Budget, error)
	getBudgetByIDFn     func(userID, budgetID string) (*models.Budget, error)
	getBudgetFn         func(budgetID string) (*models.Budget, error)
	listBudgetsFn       func(page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error)
	updateBudgetFn      func(actor services.Actor, budgetID string, in services.BudgetUpdate) (*models.Budget, error)
	deleteBudgetFn      func(userID, budgetID string) error
	getBudgetProgressFn func(userID string) (*services.BudgetProgress, error)
}

func (m *mockBudgetService) CreateBudget(_ context.Context, userID string, in services.BudgetInput) (*models.Budget, error) {
	if m.createBudgetFn != nil {
		return m.createBudgetFn(userID, in)
	}
	return &models.Budget{}, nil
}

func (m *mockBudgetService) GetUserBudget(userID string) (*models.Budget, error) {
	if m.getUserBudgetFn != nil {
		return m.getUserBudgetFn(userID)
	}
	return &models.Budget{}, nil
}

func (m *mockBudgetService) GetBudgetByID(userID, budgetID string) (*models.Budget, error) {
	if m.getBudgetByIDFn != nil {
		return m.getBudgetByIDFn(userID, budgetID)
	}
	return &models.Budget{}, nil
}

func (m *mockBudgetService) GetBudget(budgetID string) (*models.Budget, error) {
	if m.getBudgetFn != nil {
		return m.getBudgetFn(budgetID)
	}
	return &models.Budget{}, nil
}

func (m *mockBudgetService) ListBudgets(page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error) {
	if m.listBudgetsFn != nil {
		return m.listBudgetsFn(page)
	}
	resp := pagination.NewPageResponse([]models.Budget{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockBudgetService) UpdateBudget(_ context.Context, actor services.Actor, budgetID string, in services.BudgetUpdate) (*models.Budget, error) {
	if m.updateBudgetFn != nil {
		return m.updateBudgetFn(actor, budgetID, in)
	}
	return &models.Budget{}, nil
}

func (m *mockBudgetService) DeleteBudget(userID, budgetID string) error {
	if m.deleteBudgetFn != nil {
		return m.deleteBudgetFn(userID, budgetID)
	}
	return nil
}

func (m *mockBudgetService) GetBudgetProgress(userID string) (*services.BudgetProgress, error) {
	if m.getBudgetProgressFn != nil {
		return m.getBudgetProgressFn(userID)
	}
	return &services.BudgetProgress{}, nil
}

func (m *mockBudgetService) RecomputeForUser(context.Context, string) error { return nil }

func (m *mockBudgetService) RecomputeAll(context.Context) (services.BatchResult, error) {
	return services.BatchResult{}, nil
}

var _ services.BudgetServicer = (*mockBudgetService)(nil)

const testBudgetID = "0190a1b2-0000-7000-8000-0000000000bb"

func setupBudgetRouter(handler *BudgetHandler, role models.Role) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUser(testUserID, role))
	auth.POST("/budgets", handler.CreateBudget)
	auth.GET("/budgets", handler.GetMyBudget)
	auth.GET("/budgets/progress", handler.GetBudgetProgress)
	auth.GET("/budgets/:id", handler.GetBudget)
	auth.PUT("/budgets/:id", handler.UpdateBudget)
	auth.DELETE("/budgets/:id", handler.DeleteBudget)
	return r
}

func TestBudgetHandler_CreateBudget(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		var got services.BudgetInput
		svc := &mockBudgetService{
			createBudgetFn: func(userID string, in services.BudgetInput) (*models.Budget, error) {
				got = in
				return &models.Budget{
					Base:         models.Base{ID: testBudgetID},
					UserID:       userID,
					MonthlyLimit: in.MonthlyLimit,
					Currency:     "USD",
				}, nil
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}), models.RoleUser)

		rec := doRequest(r, "POST", "/budgets",
			`{"monthly_limit":"500","category_limits_on":true,"category_limits":[{"category":"Food","limit_amount":"200"}]}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !got.CategoryLimitsOn || len(got.CategoryLimits) != 1 || got.CategoryLimits[0].Category != "Food" {
			t.Errorf("unexpected category limits %+v", got)
		}
		budget := parseJSON(t, rec)["budget"].(map[string]interface{})
		if budget["monthly_limit"] != "500" {
			t.Errorf("expected monthly_limit 500, got %v", budget["monthly_limit"])
		}
	})

	t.Run("returns 409 when a budget exists", func(t *testing.T) {
		svc := &mockBudgetService{
			createBudgetFn: func(string, services.BudgetInput) (*models.Budget, error) {
				return nil, apperrors.ErrBudgetExists
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}), models.RoleUser)

		rec := doRequest(r, "POST", "/budgets", `{"monthly_limit":"500"}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "BUDGET_EXISTS")
	})

	t.Run("returns 400 on unknown currency", func(t *testing.T) {
		r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, &mockAuditService{}), models.RoleUser)

		rec := doRequest(r, "POST", "/budgets", `{"monthly_limit":"500","currency":"ZZZ"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on category limit without category", func(t *testing.T) {
		r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, &mockAuditService{}), models.RoleUser)

		rec := doRequest(r, "POST", "/budgets",
			`{"monthly_limit":"500","category_limits_on":true,"category_limits":[{"limit_amount":"200"}]}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestBudgetHandler_GetMyBudget(t *testing.T) {
	svc := &mockBudgetService{
		getUserBudgetFn: func(string) (*models.Budget, error) { return nil, apperrors.ErrBudgetNotFound },
	}
	r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}), models.RoleUser)

	rec := doRequest(r, "GET", "/budgets", "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	assertErrorCode(t, parseJSON(t, rec), "BUDGET_NOT_FOUND")
}

func TestBudgetHandler_UpdateBudget(t *testing.T) {
	t.Run("passes the admin actor", func(t *testing.T) {
		var gotActor services.Actor
		svc := &mockBudgetService{
			updateBudgetFn: func(actor services.Actor, budgetID string, in services.BudgetUpdate) (*models.Budget, error) {
				gotActor = actor
				if in.MonthlyLimit == nil || in.MonthlyLimit.String() != "750" {
					t.Errorf("unexpected monthly limit %v", in.MonthlyLimit)
				}
				if in.CategoryLimits != nil {
					t.Error("expected category limits to be left untouched")
				}
				return &models.Budget{Base: models.Base{ID: budgetID}, UserID: testOtherID}, nil
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}), models.RoleAdmin)

		rec := doRequest(r, "PUT", "/budgets/"+testBudgetID, `{"monthly_limit":"750"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotActor.UserID != testUserID || !gotActor.IsAdmin() {
			t.Errorf("unexpected actor %+v", gotActor)
		}
	})

	t.Run("returns 403 for another user's budget", func(t *testing.T) {
		svc := &mockBudgetService{
			updateBudgetFn: func(services.Actor, string, services.BudgetUpdate) (*models.Budget, error) {
				return nil, apperrors.ErrForbidden
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}), models.RoleUser)

		rec := doRequest(r, "PUT", "/budgets/"+testBudgetID, `{"monthly_limit":"750"}`)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})
}

func TestBudgetHandler_DeleteBudget(t *testing.T) {
	var gotID string
	svc := &mockBudgetService{
		deleteBudgetFn: func(_, budgetID string) error {
			gotID = budgetID
			return nil
		},
	}
	r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}), models.RoleUser)

	rec := doRequest(r, "DELETE", "/budgets/"+testBudgetID, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotID != testBudgetID {
		t.Errorf("expected %s, got %s", testBudgetID, gotID)
	}
}

func TestBudgetHandler_GetBudgetProgress(t *testing.T) {
	svc := &mockBudgetService{
		getBudgetProgressFn: func(string) (*services.BudgetProgress, error) {
			return &services.BudgetProgress{BudgetID: testBudgetID, Percentage: 85, Warning: true}, nil
		},
	}
	r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}), models.RoleUser)

	rec := doRequest(r, "GET", "/budgets/progress", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	progress := parseJSON(t, rec)["progress"].(map[string]interface{})
	if progress["warning"] != true || progress["percentage"].(float64) != 85 {
		t.Errorf("unexpected progress %v", progress)
	}
}

func TestBudgetHandler_AdminListing(t *testing.T) {
	svc := &mockBudgetService{
		listBudgetsFn: func(page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error) {
			budgets := []models.Budget{
				{Base: models.Base{ID: testBudgetID}, UserID: testUserID},
				{Base: models.Base{ID: testBudgetID}, UserID: "0190a1b2-0000-7000-8000-000000000002"},
			}
			resp := pagination.NewPageResponse(budgets, page.Page, page.PageSize, 2)
			return &resp, nil
		},
		getBudgetFn: func(budgetID string) (*models.Budget, error) {
			if budgetID != testBudgetID {
				return nil, apperrors.ErrBudgetNotFound
			}
			return &models.Budget{Base: models.Base{ID: budgetID}, UserID: "0190a1b2-0000-7000-8000-000000000002"}, nil
		},
	}
	r := gin.New()
	admin := r.Group("/admin", injectUser(testUserID, models.RoleAdmin))
	h := NewBudgetHandler(svc, &mockAuditService{})
	admin.GET("/budgets", h.ListBudgets)
	admin.GET("/budgets/:id", h.GetAnyBudget)

	t.Run("lists_every_budget", func(t *testing.T) {
		rec := doRequest(r, "GET", "/admin/budgets?page=1&page_size=10", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if len(result["data"].([]interface{})) != 2 || result["page_size"] != float64(10) {
			t.Errorf("unexpected page %v", result)
		}
	})

	t.Run("reads_another_users_budget", func(t *testing.T) {
		rec := doRequest(r, "GET", "/admin/budgets/"+testBudgetID, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		budget := parseJSON(t, rec)["budget"].(map[string]interface{})
		if budget["user_id"] != "0190a1b2-0000-7000-8000-000000000002" {
			t.Errorf("unexpected budget %v", budget)
		}
	})

	t.Run("unknown_budget", func(t *testing.T) {
		rec := doRequest(r, "GET", "/admin/budgets/0190a1b2-0000-7000-8000-0000000000ff", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "BUDGET_NOT_FOUND")
	})

	t.Run("invalid_id", func(t *testing.T) {
		rec := doRequest(r, "GET", "/admin/budgets/not-a-uuid", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
