// Package directory defines the identity directory collaborator used to
// resolve role memberships and validate assignees.  The engine depends only
// on the interface; the static implementation is a convenience for tests
// and in-process deployments.
package directory

import "context"

// User is a directory entry.
type User struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// HasRole reports role membership.
func (u *User) HasRole(role string) bool {
	for _, candidate := range u.Roles {
		if candidate == role {
			return true
		}
	}
	return false
}

// Directory resolves users and role memberships.
type Directory interface {
	// UserIDsByRole returns the ids of all users holding the role.
	UserIDsByRole(ctx context.Context, role string) ([]string, error)

	// UsersByRole returns all users holding the role.
	UsersByRole(ctx context.Context, role string) ([]*User, error)

	// Lookup returns a user by id, or nil when unknown.
	Lookup(ctx context.Context, userID string) (*User, error)

	// Validate reports whether the user id is known.
	Validate(ctx context.Context, userID string) (bool, error)
}
