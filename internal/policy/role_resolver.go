package policy

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/diewo77/sheet-invoices/gate"
	"github.com/diewo77/sheet-invoices/internal/models"
)

// Resources guarded by permission checks.
const (
	ResourceInvoice = "invoice"
	ResourceCompany = "company"
	ResourceHistory = "history"
)

// generalPermissions is what a general user may do: compose invoices and
// export their companies' history.
var generalPermissions = []gate.Permission{
	gate.NewPermission(ResourceInvoice, gate.ActionCreate),
	gate.NewPermission(ResourceInvoice, gate.ActionView),
	gate.NewPermission(ResourceCompany, gate.ActionView),
	gate.NewPermission(ResourceHistory, gate.ActionExport),
}

// ProfileForRole builds the permission profile of a role.
func ProfileForRole(role models.Role) gate.Profile {
	switch role {
	case models.RoleManager, models.RoleDirector:
		return gate.NewStaticProfile(string(role), role.Level(), gate.PermissionSuperAdmin)
	case models.RoleGeneral:
		return gate.NewStaticProfile(string(role), role.Level(), generalPermissions...)
	default:
		return nil
	}
}

// RoleResolver derives a user's profile from their stored role.
// It implements gate.ProfileResolver for uint user IDs.
type RoleResolver struct {
	DB *gorm.DB
}

func NewRoleResolver(db *gorm.DB) *RoleResolver {
	return &RoleResolver{DB: db}
}

// Resolve returns nil for unknown or inactive users.
func (r *RoleResolver) Resolve(ctx context.Context, userID uint) (gate.Profile, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Select("id", "role", "is_active").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, nil
	}
	return ProfileForRole(user.Role), nil
}
