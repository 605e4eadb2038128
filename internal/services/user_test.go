package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diewo77/sheet-invoices/internal/models"
)

func TestUserService_CreateAndAuthenticate(t *testing.T) {
	svc := newUserService(setupTestDB(t))
	ctx := context.Background()

	u, err := svc.Create(ctx, UserInput{Username: " tanaka ", Password: "pw", Role: "manager"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.Username != "tanaka" || u.Role != models.RoleManager || !u.IsActive || u.Password == "pw" {
		t.Fatalf("unexpected user %+v", u)
	}
	if _, err := svc.Create(ctx, UserInput{Username: "tanaka", Password: "x"}); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if _, err := svc.Create(ctx, UserInput{Username: "sato", Password: "x", Role: "root"}); !errors.Is(err, models.ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}

	if _, err := svc.Authenticate(ctx, "tanaka", "pw"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "tanaka", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}

	svc.db.Model(u).Update("is_active", false)
	if _, err := svc.Authenticate(ctx, "tanaka", "pw"); !errors.Is(err, ErrInactiveUser) {
		t.Fatalf("expected ErrInactiveUser, got %v", err)
	}
	if svc.Active(ctx, u.ID) {
		t.Fatal("inactive user reported active")
	}
}

func TestUserService_DeleteRejectsSelf(t *testing.T) {
	svc := newUserService(setupTestDB(t))
	ctx := context.Background()
	u, err := svc.Create(ctx, UserInput{Username: "boss", Password: "pw", Role: "director"})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, u.ID, u.ID); !errors.Is(err, ErrSelfDelete) {
		t.Fatalf("expected ErrSelfDelete, got %v", err)
	}
	if _, err := svc.Get(ctx, u.ID); err != nil {
		t.Fatalf("user must survive a rejected self-delete: %v", err)
	}
}

func TestUserService_DeleteNullsInvoiceAuthor(t *testing.T) {
	db := setupTestDB(t)
	svc := newUserService(db)
	ctx := context.Background()
	admin, _ := svc.Create(ctx, UserInput{Username: "admin", Password: "pw", Role: "director"})
	author, _ := svc.Create(ctx, UserInput{Username: "op", Password: "pw"})

	company := mustCompany(t, db, "0001", "Acme")
	inv := mustInvoice(t, db, company, "0001_2025_01_01", time.Now(), "A")
	db.Model(&inv).Update("created_by_id", author.ID)

	if err := svc.Delete(ctx, admin.ID, author.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	var reloaded models.Invoice
	if err := db.First(&reloaded, inv.ID).Error; err != nil {
		t.Fatalf("invoice must survive author deletion: %v", err)
	}
	if reloaded.CreatedByID != nil {
		t.Fatalf("created_by_id = %v, want NULL", *reloaded.CreatedByID)
	}
	if err := svc.Delete(ctx, admin.ID, author.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserService_SetRole(t *testing.T) {
	svc := newUserService(setupTestDB(t))
	ctx := context.Background()
	boss, _ := svc.Create(ctx, UserInput{Username: "boss", Password: "pw", Role: "director"})
	clerk, _ := svc.Create(ctx, UserInput{Username: "clerk", Password: "pw"})

	tests := []struct {
		name    string
		actor   uint
		id      uint
		role    string
		wantErr error
		want    models.Role
	}{
		{"promote", boss.ID, clerk.ID, "manager", nil, models.RoleManager},
		{"unchanged", boss.ID, clerk.ID, "manager", nil, models.RoleManager},
		{"self", boss.ID, boss.ID, "general", ErrSelfRoleChange, models.RoleDirector},
		{"bad role", boss.ID, clerk.ID, "root", models.ErrInvalidRole, models.RoleManager},
		{"missing", boss.ID, 999, "general", ErrNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SetRole(ctx, tt.actor, tt.id, tt.role)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SetRole err = %v, want %v", err, tt.wantErr)
			}
			if tt.want == "" {
				return
			}
			u, err := svc.Get(ctx, tt.id)
			if err != nil {
				t.Fatal(err)
			}
			if u.Role != tt.want {
				t.Errorf("stored role = %s, want %s", u.Role, tt.want)
			}
		})
	}
}
