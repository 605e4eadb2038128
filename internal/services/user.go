package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/diewo77/sheet-invoices/internal/models"
	"github.com/diewo77/sheet-invoices/validation"
)

// UserInput is the admin "add user" form.
type UserInput struct {
	Username string `schema:"username"`
	Password string `schema:"password"`
	Role     string `schema:"role"`
}

type UserService struct {
	db   *gorm.DB
	cost int
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db, cost: bcrypt.DefaultCost}
}

// HashPassword hashes a plaintext password with the service's bcrypt cost.
func (s *UserService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Create adds an active user. Duplicate usernames yield ErrUsernameTaken.
func (s *UserService) Create(ctx context.Context, in UserInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	v := validation.Violations{}
	validation.Required("username", in.Username, v)
	validation.MaxLen("username", in.Username, 150, v)
	validation.Required("password", in.Password, v)
	if !v.Empty() {
		return nil, v
	}
	role, err := models.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", in.Username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}
	hash, err := s.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{Username: in.Username, Password: hash, Role: role, IsActive: true}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create user %s: %w", in.Username, err)
	}
	log.Infof("User %s created with role %s", user.Username, user.Role)
	return &user, nil
}

// Delete removes user id on behalf of actorID. Invoices authored by the user
// are kept with their author cleared.
func (s *UserService) Delete(ctx context.Context, actorID, id uint) error {
	if actorID == id {
		return ErrSelfDelete
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Model(&models.Invoice{}).Where("created_by_id = ?", id).
			Update("created_by_id", nil).Error; err != nil {
			return fmt.Errorf("detach invoices: %w", err)
		}
		if err := tx.Delete(&user).Error; err != nil {
			return err
		}
		log.Infof("User %s deleted by %d", user.Username, actorID)
		return nil
	})
}

// SetRole changes user id's role on behalf of actorID. Admins cannot change
// their own role, so the last director cannot lock everybody out by accident.
func (s *UserService) SetRole(ctx context.Context, actorID, id uint, role string) (*models.User, error) {
	if actorID == id {
		return nil, ErrSelfRoleChange
	}
	r, err := models.ParseRole(role)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if user.Role == r {
		return &user, nil
	}
	if err := s.db.WithContext(ctx).Model(&user).UpdateColumn("role", r).Error; err != nil {
		return nil, fmt.Errorf("set role of %s: %w", user.Username, err)
	}
	user.Role = r
	log.Infof("User %s role changed to %s by %d", user.Username, r, actorID)
	return &user, nil
}

// Authenticate checks credentials. Inactive accounts are rejected only after
// the password matches.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return &user, nil
}

// Get loads a user by id.
func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// List returns all users ordered by username.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Order("username ASC").Find(&users).Error
	return users, err
}

// Active reports whether id refers to an existing active user.
func (s *UserService) Active(ctx context.Context, id uint) bool {
	var count int64
	s.db.WithContext(ctx).Model(&models.User{}).Where("id = ? AND is_active = ?", id, true).Count(&count)
	return count > 0
}
