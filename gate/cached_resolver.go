package gate

import (
	"context"
	"sync"
	"time"
)

// CachedResolver keeps resolved profiles per user for a TTL so that role
// checks do not query the user table on every request.
//
// Profiles at or above a privileged level may be given a shorter TTL: a
// demoted or deactivated admin then loses admin screens sooner than a general
// user would lose the composer.
type CachedResolver[U comparable] struct {
	inner ProfileResolver[U]

	mu      sync.RWMutex
	entries map[U]cachedProfile

	ttl       time.Duration
	privLevel int
	privTTL   time.Duration
	now       func() time.Time
}

type cachedProfile struct {
	profile Profile
	until   time.Time
}

// NewCachedResolver caches profiles from inner for ttl.
func NewCachedResolver[U comparable](inner ProfileResolver[U], ttl time.Duration) *CachedResolver[U] {
	return &CachedResolver[U]{
		inner:   inner,
		entries: make(map[U]cachedProfile),
		ttl:     ttl,
		now:     time.Now,
	}
}

// WithPrivilegedTTL caps the TTL of profiles whose level is at least level.
// A ttl that is not shorter than the base TTL has no effect.
func (r *CachedResolver[U]) WithPrivilegedTTL(level int, ttl time.Duration) *CachedResolver[U] {
	r.privLevel = level
	r.privTTL = ttl
	return r
}

func (r *CachedResolver[U]) ttlFor(p Profile) time.Duration {
	if r.privTTL > 0 && r.privTTL < r.ttl && AtLeast(p, r.privLevel) {
		return r.privTTL
	}
	return r.ttl
}

// Resolve returns the cached profile for user or asks the inner resolver.
// Errors are never cached; a nil profile is, so unknown users do not hit the
// database on every request either.
func (r *CachedResolver[U]) Resolve(ctx context.Context, user U) (Profile, error) {
	r.mu.RLock()
	e, ok := r.entries[user]
	r.mu.RUnlock()
	if ok && r.now().Before(e.until) {
		return e.profile, nil
	}

	profile, err := r.inner.Resolve(ctx, user)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.entries[user] = cachedProfile{profile: profile, until: r.now().Add(r.ttlFor(profile))}
	r.mu.Unlock()
	return profile, nil
}

// Invalidate drops user's cached profile. Call it after the user's role or
// active flag changes, or after the user is deleted.
func (r *CachedResolver[U]) Invalidate(user U) {
	r.mu.Lock()
	delete(r.entries, user)
	r.mu.Unlock()
}
