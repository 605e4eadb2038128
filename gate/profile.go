package gate

import "context"

// Profile is the set of permissions a user holds, together with the
// privilege level it was derived from.
type Profile interface {
	Name() string
	Level() int
	HasPermission(permission Permission) bool
	Permissions() []Permission
}

// ProfileResolver resolves a user to their profile.
// A nil profile with a nil error means the user holds no permissions.
type ProfileResolver[U any] interface {
	Resolve(ctx context.Context, user U) (Profile, error)
}

// StaticProfile is a simple in-memory profile implementation.
type StaticProfile struct {
	name        string
	level       int
	permissions []Permission
}

// NewStaticProfile creates a profile with the given level and permissions.
func NewStaticProfile(name string, level int, permissions ...Permission) *StaticProfile {
	return &StaticProfile{name: name, level: level, permissions: permissions}
}

func (p *StaticProfile) Name() string { return p.name }
func (p *StaticProfile) Level() int   { return p.level }

// Permissions returns a copy of the granted permissions.
func (p *StaticProfile) Permissions() []Permission {
	out := make([]Permission, len(p.permissions))
	copy(out, p.permissions)
	return out
}

// HasPermission reports whether any granted permission matches requested,
// honouring wildcards.
func (p *StaticProfile) HasPermission(requested Permission) bool {
	for _, perm := range p.permissions {
		if perm.Matches(requested) {
			return true
		}
	}
	return false
}

// AtLeast reports whether profile is non-nil and its level is >= min.
func AtLeast(profile Profile, min int) bool {
	return profile != nil && profile.Level() >= min
}

// StaticResolver is a simple in-memory resolver, mostly for tests.
type StaticResolver[U comparable] struct {
	profiles map[U]Profile
}

// NewStaticResolver creates a resolver with no mappings.
func NewStaticResolver[U comparable]() *StaticResolver[U] {
	return &StaticResolver[U]{profiles: make(map[U]Profile)}
}

// Set assigns a profile to a user.
func (r *StaticResolver[U]) Set(user U, profile Profile) {
	r.profiles[user] = profile
}

// Resolve returns the profile for the given user.
func (r *StaticResolver[U]) Resolve(_ context.Context, user U) (Profile, error) {
	return r.profiles[user], nil
}
