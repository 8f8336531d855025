package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "pftsystem/internal/errors"
	"pftsystem/internal/middleware"
	"pftsystem/internal/models"
	"pftsystem/internal/pagination"
	"pftsystem/internal/services"
	"pftsystem/internal/validator"
)

const (
	testUserID  = "0190a1b2-0000-7000-8000-000000000001"
	testOtherID = "0190a1b2-0000-7000-8000-000000000002"
)

// --- mock services ---

type mockUserService struct {
	createUserFn     func(email, password, firstName, lastName string, role models.Role) (*models.User, error)
	getUserByIDFn    func(id string) (*models.User, error)
	attemptLoginFn   func(email, password string) (*models.User, error)
	getSettingsFn    func(userID string) (*models.UserSettings, error)
	updateSettingsFn func(userID string, currency *string, notificationsEnabled *bool) (*models.UserSettings, error)
	listUsersFn      func(page pagination.PageRequest) (*pagination.PageResponse[models.User], error)
	revokeTokenFn    func(tokenHash string, expiresAt time.Time) error
}

func (m *mockUserService) CreateUser(email, password, firstName, lastName string, role models.Role) (*models.User, error) {
	if m.createUserFn != nil {
		return m.createUserFn(email, password, firstName, lastName, role)
	}
	return &models.User{}, nil
}

func (m *mockUserService) GetUserByEmail(string) (*models.User, error) {
	return &models.User{}, nil
}

func (m *mockUserService) GetUserByID(id string) (*models.User, error) {
	if m.getUserByIDFn != nil {
		return m.getUserByIDFn(id)
	}
	return &models.User{}, nil
}

func (m *mockUserService) VerifyPassword(*models.User, string) bool { return true }

func (m *mockUserService) AttemptLogin(email, password string) (*models.User, error) {
	if m.attemptLoginFn != nil {
		return m.attemptLoginFn(email, password)
	}
	return &models.User{}, nil
}

func (m *mockUserService) GetSettings(userID string) (*models.UserSettings, error) {
	if m.getSettingsFn != nil {
		return m.getSettingsFn(userID)
	}
	return &models.UserSettings{}, nil
}

func (m *mockUserService) UpdateSettings(userID string, currency *string, notificationsEnabled *bool) (*models.UserSettings, error) {
	if m.updateSettingsFn != nil {
		return m.updateSettingsFn(userID, currency, notificationsEnabled)
	}
	return &models.UserSettings{}, nil
}

func (m *mockUserService) ListUsers(page pagination.PageRequest) (*pagination.PageResponse[models.User], error) {
	if m.listUsersFn != nil {
		return m.listUsersFn(page)
	}
	resp := pagination.NewPageResponse([]models.User{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockUserService) RevokeToken(tokenHash string, expiresAt time.Time) error {
	if m.revokeTokenFn != nil {
		return m.revokeTokenFn(tokenHash, expiresAt)
	}
	return nil
}

func (m *mockUserService) IsTokenRevoked(string) (bool, error) { return false, nil }

func (m *mockUserService) PromoteToAdmin(string) (*models.User, error) {
	return nil, apperrors.ErrUserNotFound
}

var _ services.UserServicer = (*mockUserService)(nil)

type mockSettingsService struct {
	getSettingsFn    func() (*models.SystemSettings, error)
	updateSettingsFn func(in services.SettingsUpdate) (*models.SystemSettings, error)
}

func (m *mockSettingsService) GetSettings() (*models.SystemSettings, error) {
	if m.getSettingsFn != nil {
		return m.getSettingsFn()
	}
	return &models.SystemSettings{JWTExpirationSeconds: 3600}, nil
}

func (m *mockSettingsService) UpdateSettings(in services.SettingsUpdate) (*models.SystemSettings, error) {
	if m.updateSettingsFn != nil {
		return m.updateSettingsFn(in)
	}
	return &models.SystemSettings{}, nil
}

var _ services.SettingsServicer = (*mockSettingsService)(nil)

type mockAuditService struct {
	actions []string
}

func (m *mockAuditService) Log(_, action, _, _, _ string, _ map[string]any) {
	m.actions = append(m.actions, action)
}

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

func injectUser(uid string, role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, uid)
		c.Set(middleware.ContextRole, role)
		c.Next()
	}
}

func injectUserID(uid string) gin.HandlerFunc {
	return injectUser(uid, models.RoleUser)
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}

func setupAuthRouter(handler *AuthHandler) *gin.Engine {
	r := gin.New()
	r.POST("/auth/register", handler.Register)
	r.POST("/auth/login", handler.Login)
	auth := r.Group("", injectUserID(testUserID))
	auth.GET("/profile", handler.GetProfile)
	auth.GET("/profile/settings", handler.GetUserSettings)
	auth.PUT("/profile/settings", handler.UpdateUserSettings)
	return r
}

func newTestUser() *models.User {
	return &models.User{
		Base:      models.Base{ID: testUserID},
		Email:     "jane@example.com",
		FirstName: "Jane",
		LastName:  "Doe",
		Role:      models.RoleUser,
		Settings:  models.UserSettings{Currency: "LKR", NotificationsEnabled: true},
	}
}

// --- tests ---

func TestAuthHandler_Register(t *testing.T) {
	t.Run("returns 201 with a token", func(t *testing.T) {
		var gotRole models.Role
		userSvc := &mockUserService{
			createUserFn: func(email, _, firstName, lastName string, role models.Role) (*models.User, error) {
				gotRole = role
				u := newTestUser()
				u.Email, u.FirstName, u.LastName = email, firstName, lastName
				return u, nil
			},
		}
		audit := &mockAuditService{}
		r := setupAuthRouter(NewAuthHandler(userSvc, &mockSettingsService{}, audit, time.Hour))

		rec := doRequest(r, "POST", "/auth/register",
			`{"email":"new@example.com","password":"password123","first_name":"New","last_name":"User"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotRole != models.RoleUser {
			t.Errorf("expected self-registration to create a regular user, got %q", gotRole)
		}
		result := parseJSON(t, rec)
		if result["token"] == "" || result["token"] == nil {
			t.Error("expected a token")
		}
		user := result["user"].(map[string]interface{})
		if user["email"] != "new@example.com" {
			t.Errorf("expected new@example.com, got %v", user["email"])
		}
		if len(audit.actions) != 1 || audit.actions[0] != "REGISTER" {
			t.Errorf("expected a REGISTER audit entry, got %v", audit.actions)
		}
	})

	t.Run("returns 400 on short password", func(t *testing.T) {
		r := setupAuthRouter(NewAuthHandler(&mockUserService{}, &mockSettingsService{}, &mockAuditService{}, time.Hour))

		rec := doRequest(r, "POST", "/auth/register", `{"email":"new@example.com","password":"short"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 409 on duplicate email", func(t *testing.T) {
		userSvc := &mockUserService{
			createUserFn: func(string, string, string, string, models.Role) (*models.User, error) {
				return nil, apperrors.ErrDuplicateEmail
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc, &mockSettingsService{}, &mockAuditService{}, time.Hour))

		rec := doRequest(r, "POST", "/auth/register", `{"email":"jane@example.com","password":"password123"}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "DUPLICATE_EMAIL")
	})
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("token lifetime follows system settings", func(t *testing.T) {
		userSvc := &mockUserService{
			attemptLoginFn: func(string, string) (*models.User, error) { return newTestUser(), nil },
		}
		settingsSvc := &mockSettingsService{
			getSettingsFn: func() (*models.SystemSettings, error) {
				return &models.SystemSettings{JWTExpirationSeconds: 600}, nil
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc, settingsSvc, &mockAuditService{}, 24*time.Hour))

		before := time.Now()
		rec := doRequest(r, "POST", "/auth/login", `{"email":"jane@example.com","password":"password123"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp AuthResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		ttl := resp.ExpiresAt.Sub(before)
		if ttl < 9*time.Minute || ttl > 11*time.Minute {
			t.Errorf("expected a 10 minute token, got %v", ttl)
		}
		claims, err := middleware.ParseAccessToken(resp.Token)
		if err != nil {
			t.Fatalf("issued token does not parse: %v", err)
		}
		if claims.UserID != testUserID {
			t.Errorf("expected subject %s, got %s", testUserID, claims.UserID)
		}
	})

	t.Run("returns 401 on invalid credentials", func(t *testing.T) {
		userSvc := &mockUserService{
			attemptLoginFn: func(string, string) (*models.User, error) { return nil, apperrors.ErrInvalidCredentials },
		}
		r := setupAuthRouter(NewAuthHandler(userSvc, &mockSettingsService{}, &mockAuditService{}, time.Hour))

		rec := doRequest(r, "POST", "/auth/login", `{"email":"jane@example.com","password":"wrong"}`)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_CREDENTIALS")
	})

	t.Run("returns 423 when locked", func(t *testing.T) {
		userSvc := &mockUserService{
			attemptLoginFn: func(string, string) (*models.User, error) { return nil, apperrors.ErrAccountLocked },
		}
		r := setupAuthRouter(NewAuthHandler(userSvc, &mockSettingsService{}, &mockAuditService{}, time.Hour))

		rec := doRequest(r, "POST", "/auth/login", `{"email":"jane@example.com","password":"password123"}`)

		if rec.Code != http.StatusLocked {
			t.Fatalf("expected 423, got %d", rec.Code)
		}
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	expiry := time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)

	t.Run("revokes the current token", func(t *testing.T) {
		var gotHash string
		var gotExpiry time.Time
		userSvc := &mockUserService{
			revokeTokenFn: func(hash string, expiresAt time.Time) error {
				gotHash, gotExpiry = hash, expiresAt
				return nil
			},
		}
		handler := NewAuthHandler(userSvc, &mockSettingsService{}, &mockAuditService{}, time.Hour)
		r := gin.New()
		r.POST("/auth/logout", injectUserID(testUserID), func(c *gin.Context) {
			c.Set(middleware.ContextTokenHash, "abc123")
			c.Set(middleware.ContextTokenExpiresAt, expiry)
			c.Next()
		}, handler.Logout)

		rec := doRequest(r, "POST", "/auth/logout", "")

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotHash != "abc123" || !gotExpiry.Equal(expiry) {
			t.Errorf("unexpected revocation %s/%v", gotHash, gotExpiry)
		}
	})

	t.Run("returns 401 without a token", func(t *testing.T) {
		handler := NewAuthHandler(&mockUserService{}, &mockSettingsService{}, &mockAuditService{}, time.Hour)
		r := gin.New()
		r.POST("/auth/logout", injectUserID(testUserID), handler.Logout)

		rec := doRequest(r, "POST", "/auth/logout", "")

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestAuthHandler_Profile(t *testing.T) {
	t.Run("returns the profile", func(t *testing.T) {
		userSvc := &mockUserService{
			getUserByIDFn: func(id string) (*models.User, error) {
				if id != testUserID {
					t.Errorf("expected %s, got %s", testUserID, id)
				}
				return newTestUser(), nil
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc, &mockSettingsService{}, &mockAuditService{}, time.Hour))

		rec := doRequest(r, "GET", "/profile", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		user := parseJSON(t, rec)["user"].(map[string]interface{})
		if user["first_name"] != "Jane" {
			t.Errorf("expected Jane, got %v", user["first_name"])
		}
	})

	t.Run("returns 401 without auth", func(t *testing.T) {
		handler := NewAuthHandler(&mockUserService{}, &mockSettingsService{}, &mockAuditService{}, time.Hour)
		r := gin.New()
		r.GET("/profile", handler.GetProfile)

		rec := doRequest(r, "GET", "/profile", "")

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestAuthHandler_UpdateUserSettings(t *testing.T) {
	t.Run("updates currency", func(t *testing.T) {
		var gotCurrency *string
		userSvc := &mockUserService{
			updateSettingsFn: func(_ string, currency *string, _ *bool) (*models.UserSettings, error) {
				gotCurrency = currency
				return &models.UserSettings{Currency: "EUR"}, nil
			},
		}
		r := setupAuthRouter(NewAuthHandler(userSvc, &mockSettingsService{}, &mockAuditService{}, time.Hour))

		rec := doRequest(r, "PUT", "/profile/settings", `{"currency":"EUR"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotCurrency == nil || *gotCurrency != "EUR" {
			t.Errorf("expected EUR to be passed, got %v", gotCurrency)
		}
	})

	t.Run("returns 400 on unknown currency", func(t *testing.T) {
		r := setupAuthRouter(NewAuthHandler(&mockUserService{}, &mockSettingsService{}, &mockAuditService{}, time.Hour))

		rec := doRequest(r, "PUT", "/profile/settings", `{"currency":"ABC"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
