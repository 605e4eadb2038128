package policy

import (
	"context"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/sheet-invoices/auth"
	"github.com/diewo77/sheet-invoices/gate"
	"github.com/diewo77/sheet-invoices/httpx"
	"github.com/diewo77/sheet-invoices/i18n"
	"github.com/diewo77/sheet-invoices/internal/models"
)

// Flasher queues a translated flash message for the next page.
type Flasher interface {
	Code(w http.ResponseWriter, r *http.Request, kind, code string, args ...any)
}

// AuthGate is the central authorization point: role profiles behind a TTL cache.
type AuthGate struct {
	CacheResolver *gate.CachedResolver[uint]
	flash         Flasher
}

// NewAuthGate creates a gate resolving roles from db, caching profiles for cacheTTL.
func NewAuthGate(db *gorm.DB, cacheTTL time.Duration, flash Flasher) *AuthGate {
	return NewAuthGateWithResolver(NewRoleResolver(db), cacheTTL, flash)
}

// adminCacheTTL bounds how long a manager or director profile is trusted
// without looking at the user row again.
const adminCacheTTL = time.Minute

// NewAuthGateWithResolver wraps any resolver, mostly for tests.
func NewAuthGateWithResolver(resolver gate.ProfileResolver[uint], cacheTTL time.Duration, flash Flasher) *AuthGate {
	return &AuthGate{
		CacheResolver: gate.NewCachedResolver[uint](resolver, cacheTTL).
			WithPrivilegedTTL(models.LevelManager, adminCacheTTL),
		flash:         flash,
	}
}

// Profile returns the current user's profile, or nil.
func (ag *AuthGate) Profile(ctx context.Context) gate.Profile {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return nil
	}
	profile, err := ag.CacheResolver.Resolve(ctx, userID)
	if err != nil {
		log.Errorf("resolve profile for user %d: %v", userID, err)
		return nil
	}
	return profile
}

// Can reports whether the current user holds resource:action.
func (ag *AuthGate) Can(ctx context.Context, resourceType string, action gate.Action) bool {
	p := ag.Profile(ctx)
	return p != nil && p.HasPermission(gate.NewPermission(resourceType, action))
}

// IsAdmin reports whether the current user is a manager or director.
func (ag *AuthGate) IsAdmin(r *http.Request) bool {
	return gate.AtLeast(ag.Profile(r.Context()), models.LevelManager)
}

// InvalidateUser clears the cache for a specific user.
// Call this when a user is deleted or their role changes.
func (ag *AuthGate) InvalidateUser(userID uint) {
	ag.CacheResolver.Invalidate(userID)
}

// RequirePermission returns middleware that checks a profile permission.
func (ag *AuthGate) RequirePermission(resourceType string, action gate.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !ag.authenticated(w, r) {
				return
			}
			if !ag.Can(r.Context(), resourceType, action) {
				ag.deny(w, r, "permission_denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin returns middleware that only lets managers and directors through.
// JSON and POST requests get a 403; screens redirect to the invoice composer
// with a flash.
func (ag *AuthGate) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !ag.authenticated(w, r) {
				return
			}
			if !ag.IsAdmin(r) {
				ag.deny(w, r, "admin_denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (ag *AuthGate) authenticated(w http.ResponseWriter, r *http.Request) bool {
	if _, ok := auth.UserIDFromContext(r.Context()); ok {
		return true
	}
	if httpx.WantsJSON(r) {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
	} else {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
	return false
}

func (ag *AuthGate) deny(w http.ResponseWriter, r *http.Request, code string) {
	uid, _ := auth.UserIDFromContext(r.Context())
	log.Debugf("Denied %s %s for user %d", r.Method, r.URL.Path, uid)
	if httpx.WantsJSON(r) || r.Method != http.MethodGet {
		httpx.Fail(w, http.StatusForbidden, i18n.T(i18n.LangFromContext(r.Context()), "permission_denied"))
		return
	}
	if ag.flash != nil {
		ag.flash.Code(w, r, "error", code)
	}
	http.Redirect(w, r, "/create-invoice", http.StatusSeeOther)
}
