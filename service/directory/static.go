package directory

import (
	"context"
	"sort"
	"sync"
)

// Static is an in-memory Directory backed by a fixed user catalog.
type Static struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewStatic creates a directory seeded with the supplied users.  Without
// arguments it carries the default catalog.
func NewStatic(users ...*User) *Static {
	if len(users) == 0 {
		users = defaultCatalog()
	}
	ret := &Static{users: make(map[string]*User, len(users))}
	for _, user := range users {
		ret.users[user.ID] = user
	}
	return ret
}

// Add registers or replaces a user.
func (s *Static) Add(user *User) {
	if user == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

// UserIDsByRole returns the ids of all users holding the role.
func (s *Static) UserIDsByRole(_ context.Context, role string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ret []string
	for _, user := range s.users {
		if user.HasRole(role) {
			ret = append(ret, user.ID)
		}
	}
	sort.Strings(ret)
	return ret, nil
}

// UsersByRole returns all users holding the role.
func (s *Static) UsersByRole(_ context.Context, role string) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ret []*User
	for _, user := range s.users {
		if user.HasRole(role) {
			ret = append(ret, user)
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].ID < ret[j].ID })
	return ret, nil
}

// Lookup returns a user by id, or nil when unknown.
func (s *Static) Lookup(_ context.Context, userID string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[userID], nil
}

// Validate reports whether the user id is known.
func (s *Static) Validate(ctx context.Context, userID string) (bool, error) {
	user, err := s.Lookup(ctx, userID)
	return user != nil, err
}

func defaultCatalog() []*User {
	return []*User{
		{ID: "U1000", Name: "Alan Belan", Email: "alan.belan@example.com", Roles: []string{"INITIATOR"}},
		{ID: "U1001", Name: "Martin Sanchez", Email: "martin.sanchez@example.com", Roles: []string{"SPONSOR"}},
		{ID: "U1002", Name: "Norman Cooper", Email: "norman.cooper@example.com", Roles: []string{"OWNER"}},
		{ID: "U1003", Name: "Magic Patterson", Email: "magic.patterson@example.com", Roles: []string{"MANAGER"}},
		{ID: "U1004", Name: "Andrew Ambrose", Email: "andrew.ambrose@example.com", Roles: []string{"FINANCE_APPROVER"}},
		{ID: "U1005", Name: "Malcom Marshal", Email: "malcom.marshal@example.com", Roles: []string{"INITIATOR", "SPONSOR"}},
		{ID: "U1006", Name: "John Nottingam", Email: "john.nottingam@example.com", Roles: []string{"SPONSOR", "OWNER"}},
		{ID: "U1007", Name: "Melaine Lara", Email: "melaine.lara@example.com", Roles: []string{"MANAGER"}},
		{ID: "U1008", Name: "Graham Lavis", Email: "graham.lavis@example.com", Roles: []string{"ANALYST"}},
		{ID: "U1009", Name: "Ben Master", Email: "ben.master@example.com", Roles: []string{"OWNER"}},
		{ID: "U1010", Name: "Adam Doe", Email: "adam.doe@example.com", Roles: []string{"FINANCE_APPROVER"}},
	}
}
