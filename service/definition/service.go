// Package definition implements the versioned workflow definition store.
// Versions of a workflow name are independent records; at most one version
// per name is active at any time.
package definition

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/trackflow/trackflow/internal/clock"
	"github.com/trackflow/trackflow/internal/idgen"
	"github.com/trackflow/trackflow/model"
	"github.com/trackflow/trackflow/service/dao"
	"github.com/trackflow/trackflow/service/dao/store"
)

// ErrNoActiveWorkflow is returned when a workflow name has no active version.
var ErrNoActiveWorkflow = errors.New("definition: no active workflow version")

// Service is an in-memory definition store.  The service mutex serializes
// activation against readers: stored records are mutated in place during an
// activation switch, and the single-active-version invariant must hold for
// every observer.
type Service struct {
	mu    sync.Mutex
	store *store.MemoryStore[string, model.Definition]
}

// New creates a definition store.
func New() *Service {
	ret := &Service{}
	ret.store = store.NewMemoryStore[string, model.Definition](func(d *model.Definition) string {
		return d.Key()
	}).WithMatcher(func(d *model.Definition, parameters []*dao.Parameter) bool {
		for _, parameter := range parameters {
			if parameter.Name == "Name" {
				if name, ok := parameter.Value.(string); ok && d.Name != name {
					return false
				}
			}
		}
		return true
	})
	return ret
}

// Create stores a new definition version.  The stored version is inactive
// regardless of the supplied Active flag; activation is a separate step.
func (s *Service) Create(ctx context.Context, definition *model.Definition) error {
	if definition == nil {
		return dao.ErrNilEntity
	}
	if issues := definition.Validate(); len(issues) > 0 {
		return issues[0]
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, _ := s.store.Load(ctx, definition.Key())
	if existing != nil {
		return fmt.Errorf("definition %v version %v already existed", definition.Name, definition.Version)
	}
	stored := definition.Clone()
	if stored.ID == "" {
		stored.ID = idgen.New()
	}
	stored.Active = false
	stored.ActivatedAt = nil
	stored.ActivatedBy = ""
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = clock.Now()
	}
	return s.store.Save(ctx, stored)
}

// Get returns a specific version.
func (s *Service) Get(ctx context.Context, name, version string) (*model.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.store.Load(ctx, model.Key(name, version))
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("definition %v version %v: %w", name, version, dao.ErrNotFound)
	}
	return stored.Clone(), nil
}

// Active returns the active version of the named workflow.
func (s *Service) Active(ctx context.Context, name string) (*model.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions, err := s.versions(ctx, name)
	if err != nil {
		return nil, err
	}
	for _, candidate := range versions {
		if candidate.Active {
			return candidate.Clone(), nil
		}
	}
	return nil, fmt.Errorf("workflow %v: %w", name, ErrNoActiveWorkflow)
}

// NewVersion clones the metadata of an existing version into a fresh
// inactive version.
func (s *Service) NewVersion(ctx context.Context, name, baseVersion, newVersion, createdBy string) (*model.Definition, error) {
	base, err := s.Get(ctx, name, baseVersion)
	if err != nil {
		return nil, err
	}
	cloned := base.CloneMeta(newVersion, createdBy)
	if err = s.Create(ctx, cloned); err != nil {
		return nil, err
	}
	return s.Get(ctx, name, newVersion)
}

// Activate atomically deactivates the currently active version (if any) and
// activates the target version, recording who switched.
func (s *Service) Activate(ctx context.Context, name, version, activatedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, err := s.store.Load(ctx, model.Key(name, version))
	if err != nil {
		return err
	}
	if target == nil {
		return fmt.Errorf("definition %v version %v: %w", name, version, dao.ErrNotFound)
	}
	versions, err := s.versions(ctx, name)
	if err != nil {
		return err
	}
	for _, candidate := range versions {
		if candidate.Active && candidate.Version != version {
			candidate.Active = false
			candidate.ActivatedAt = nil
			candidate.ActivatedBy = ""
			if err = s.store.Save(ctx, candidate); err != nil {
				return err
			}
		}
	}
	now := clock.Now()
	target.Active = true
	target.ActivatedAt = &now
	target.ActivatedBy = activatedBy
	return s.store.Save(ctx, target)
}

// Deactivate deactivates the active version of the named workflow.  It is a
// no-op when none is active.
func (s *Service) Deactivate(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions, err := s.versions(ctx, name)
	if err != nil {
		return err
	}
	for _, candidate := range versions {
		if candidate.Active {
			candidate.Active = false
			candidate.ActivatedAt = nil
			candidate.ActivatedBy = ""
			if err = s.store.Save(ctx, candidate); err != nil {
				return err
			}
		}
	}
	return nil
}

// Versions returns all versions of the named workflow ordered by creation
// time.
func (s *Service) Versions(ctx context.Context, name string) ([]*model.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions, err := s.versions(ctx, name)
	if err != nil {
		return nil, err
	}
	ret := make([]*model.Definition, len(versions))
	for i, candidate := range versions {
		ret[i] = candidate.Clone()
	}
	return ret, nil
}

// List returns all stored definitions.
func (s *Service) List(ctx context.Context) ([]*model.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	ret := make([]*model.Definition, len(stored))
	for i, candidate := range stored {
		ret[i] = candidate.Clone()
	}
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].Name != ret[j].Name {
			return ret[i].Name < ret[j].Name
		}
		return ret[i].CreatedAt.Before(ret[j].CreatedAt)
	})
	return ret, nil
}

func (s *Service) versions(ctx context.Context, name string) ([]*model.Definition, error) {
	stored, err := s.store.List(ctx, dao.NewParameter("Name", name))
	if err != nil {
		return nil, err
	}
	sort.Slice(stored, func(i, j int) bool {
		if !stored[i].CreatedAt.Equal(stored[j].CreatedAt) {
			return stored[i].CreatedAt.Before(stored[j].CreatedAt)
		}
		return stored[i].Version < stored[j].Version
	})
	return stored, nil
}
