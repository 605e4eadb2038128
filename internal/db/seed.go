package db

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/diewo77/sheet-invoices/internal/config"
	"github.com/diewo77/sheet-invoices/internal/models"
)

// Seed creates the bootstrap director when the user table is empty.
// It is idempotent and does nothing when no bootstrap password is configured.
func Seed(db *gorm.DB, boot config.BootstrapConfig) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}
	if boot.Password == "" {
		log.Warnf("No users exist and ADMIN_PASSWORD is unset; skipping bootstrap account")
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(boot.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash bootstrap password: %w", err)
	}
	user := models.User{
		Username: boot.Username,
		Password: string(hash),
		Role:     models.RoleDirector,
		IsActive: true,
	}
	if err := db.Create(&user).Error; err != nil {
		return fmt.Errorf("create bootstrap user: %w", err)
	}
	log.Infof("Created bootstrap director %q", user.Username)
	return nil
}
