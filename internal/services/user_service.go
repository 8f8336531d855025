package services

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pftsystem/internal/clock"
	apperrors "pftsystem/internal/errors"
	"pftsystem/internal/models"
	"pftsystem/internal/pagination"
)

const (
	maxFailedLogins = 5
	lockoutDuration = 15 * time.Minute
)

// userService handles user-related business logic.
type userService struct {
	db              *gorm.DB
	clock           clock.Clock
	defaultCurrency string
}

// NewUserService creates a new UserServicer. New users get defaultCurrency
// as their preferred currency.
func NewUserService(db *gorm.DB, clk clock.Clock, defaultCurrency string) UserServicer {
	return &userService{db: db, clock: clk, defaultCurrency: defaultCurrency}
}

// CreateUser registers a new user
func (s *userService) CreateUser(email, password, firstName, lastName string, role models.Role) (*models.User, error) {
	if email == "" || password == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "email and password are required")
	}
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "role must be 'user' or 'admin'")
	}

	email = strings.ToLower(email)

	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.ErrDuplicateEmail
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	user := &models.User{
		Email:     email,
		Password:  string(hashedPassword),
		FirstName: firstName,
		LastName:  lastName,
		Role:      role,
		IsActive:  true,
		Settings: models.UserSettings{
			Currency:             s.defaultCurrency,
			NotificationsEnabled: true,
		},
	}

	if err := s.db.Create(user).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return user, nil
}

// GetUserByEmail retrieves an active user by email
func (s *userService) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ? AND is_active = ?", strings.ToLower(email), true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(id string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// PromoteToAdmin grants the admin role to the account registered under
// email. Promoting an existing admin is a no-op.
func (s *userService) PromoteToAdmin(email string) (*models.User, error) {
	user, err := s.GetUserByEmail(email)
	if err != nil {
		return nil, err
	}
	if user.Role == models.RoleAdmin {
		return user, nil
	}

	if err := s.db.Model(user).Update("role", models.RoleAdmin).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	user.Role = models.RoleAdmin
	return user, nil
}

// VerifyPassword checks if the provided password matches the stored hash
func (s *userService) VerifyPassword(user *models.User, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password))
	return err == nil
}

// AttemptLogin verifies credentials and tracks failures. After
// maxFailedLogins consecutive failures the account is locked for
// lockoutDuration.
func (s *userService) AttemptLogin(email, password string) (*models.User, error) {
	user, err := s.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	now := s.clock.Now()
	if user.LockedUntil != nil && user.LockedUntil.After(now) {
		return nil, apperrors.ErrAccountLocked
	}

	if !s.VerifyPassword(user, password) {
		updates := map[string]interface{}{"failed_login_attempts": user.FailedLoginAttempts + 1}
		if user.FailedLoginAttempts+1 >= maxFailedLogins {
			updates["locked_until"] = now.Add(lockoutDuration)
		}
		if err := s.db.Model(user).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil, apperrors.ErrInvalidCredentials
	}

	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now
	if err := s.db.Model(user).Updates(map[string]interface{}{
		"failed_login_attempts": 0,
		"locked_until":          nil,
		"last_login_at":         now,
	}).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return user, nil
}

// GetSettings returns the user's preferences.
func (s *userService) GetSettings(userID string) (*models.UserSettings, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	return &user.Settings, nil
}

// UpdateSettings changes the user's preferred currency and notification switch.
func (s *userService) UpdateSettings(userID string, currency *string, notificationsEnabled *bool) (*models.UserSettings, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if currency != nil {
		c := strings.ToUpper(*currency)
		updates["settings_currency"] = c
		user.Settings.Currency = c
	}
	if notificationsEnabled != nil {
		updates["settings_notifications_enabled"] = *notificationsEnabled
		user.Settings.NotificationsEnabled = *notificationsEnabled
	}

	if len(updates) > 0 {
		if err := s.db.Model(user).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return &user.Settings, nil
}

// ListUsers returns a page of all users.
func (s *userService) ListUsers(page pagination.PageRequest) (*pagination.PageResponse[models.User], error) {
	result, err := pagination.Find[models.User](s.db.Model(&models.User{}), page, "created_at ASC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// RevokeToken blocks a token until expiresAt. Expired entries are pruned on
// the way in.
func (s *userService) RevokeToken(tokenHash string, expiresAt time.Time) error {
	if err := s.db.Where("expires_at < ?", storedTime(s.clock.Now())).Delete(&models.RevokedToken{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	entry := &models.RevokedToken{TokenHash: tokenHash, ExpiresAt: storedTime(expiresAt)}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(entry).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// IsTokenRevoked reports whether tokenHash was revoked and has not expired yet.
func (s *userService) IsTokenRevoked(tokenHash string) (bool, error) {
	var count int64
	err := s.db.Model(&models.RevokedToken{}).
		Where("token_hash = ? AND expires_at >= ?", tokenHash, storedTime(s.clock.Now())).
		Count(&count).Error
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count > 0, nil
}
