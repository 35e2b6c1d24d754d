package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrUserNotFound indicates no account matches the given id.
	ErrUserNotFound = errors.New("users: user not found")
	// ErrInvalidEmail indicates an empty or malformed email address.
	ErrInvalidEmail = errors.New("users: invalid email")

	errMissingDatabase   = errors.New("users: database handle is required")
	errMissingIDProvider = errors.New("users: id provider is required")
	errMissingAdminEmail = errors.New("users: admin email is required")
)

// IDProvider issues identifiers for new user rows.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies of the user service.
type ServiceConfig struct {
	Database   *gorm.DB
	IDProvider IDProvider
	AdminEmail string
}

// Service manages accounts. There is exactly one flat roster of users per
// deployment; the configured admin email is promoted on first login.
type Service struct {
	db         *gorm.DB
	idProvider IDProvider
	adminEmail string
}

// NewService constructs the user service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	if cfg.IDProvider == nil {
		return nil, errMissingIDProvider
	}
	adminEmail := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if adminEmail == "" {
		return nil, errMissingAdminEmail
	}
	return &Service{db: cfg.Database, idProvider: cfg.IDProvider, adminEmail: adminEmail}, nil
}

// GetOrCreateByEmail returns the account for the address, creating it with
// the viewer role (or admin, when the address matches the configured admin).
func (s *Service) GetOrCreateByEmail(ctx context.Context, email string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return User{}, ErrInvalidEmail
	}

	var user User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, fmt.Errorf("users: load user: %w", err)
	}

	return s.createByEmail(ctx, email)
}

// createByEmail inserts the account for a normalized address. A concurrent
// first login can win the insert between the caller's read and ours; the
// unique index on email turns that into a violation, and the existing row is
// returned instead of an error.
func (s *Service) createByEmail(ctx context.Context, email string) (User, error) {
	id, err := s.idProvider.NewID()
	if err != nil {
		return User{}, err
	}
	role := RoleViewer
	if email == s.adminEmail {
		role = RoleAdmin
	}
	user := User{ID: id, Email: email, Role: role}
	createErr := s.db.WithContext(ctx).Create(&user).Error
	if createErr == nil {
		return user, nil
	}
	if isUniqueViolation(createErr) {
		var existing User
		if err := s.db.WithContext(ctx).Where("email = ?", email).Take(&existing).Error; err == nil {
			return existing, nil
		}
	}
	return User{}, fmt.Errorf("users: create user: %w", createErr)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}

// GetByID loads an account by id.
func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("id = ?", userID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("users: load user: %w", err)
	}
	return user, nil
}
