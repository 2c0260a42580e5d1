// Package history keeps the append-only audit trail of process instances.
// Entries survive instance eviction and are the source for reconstructing
// the status of terminated instances.
package history

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/trackflow/trackflow/internal/clock"
	"github.com/trackflow/trackflow/runtime/instance"
	"github.com/trackflow/trackflow/service/dao"
	"github.com/trackflow/trackflow/service/dao/criteria"
	"github.com/trackflow/trackflow/service/dao/store"
)

// Service records and lists history entries.  Entry ids are monotonic so
// chronological order is stable even when timestamps collide.
type Service struct {
	mu    sync.Mutex
	seq   int
	store *store.MemoryStore[string, instance.HistoryEntry]
}

// New creates a history service.
func New() *Service {
	ret := &Service{}
	ret.store = store.NewMemoryStore[string, instance.HistoryEntry](func(e *instance.HistoryEntry) string {
		return e.ID
	}).WithMatcher(func(e *instance.HistoryEntry, parameters []*dao.Parameter) bool {
		return criteria.Matches(map[string]string{
			"InstanceID": e.InstanceID,
			"Event":      e.Event,
			"UserID":     e.UserID,
		}, parameters)
	})
	return ret
}

// Record appends an entry, assigning its id and timestamp.
func (s *Service) Record(ctx context.Context, entry *instance.HistoryEntry) error {
	if entry == nil {
		return dao.ErrNilEntity
	}
	stored := entry.Clone()
	s.mu.Lock()
	s.seq++
	stored.ID = fmt.Sprintf("h-%08d", s.seq)
	s.mu.Unlock()
	if stored.At.IsZero() {
		stored.At = clock.Now()
	}
	entry.ID = stored.ID
	entry.At = stored.At
	return s.store.Save(ctx, stored)
}

// List returns the entries of an instance in chronological order.
func (s *Service) List(ctx context.Context, instanceID string) ([]*instance.HistoryEntry, error) {
	stored, err := s.store.List(ctx, dao.NewParameter("InstanceID", instanceID))
	if err != nil {
		return nil, err
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].ID < stored[j].ID })
	ret := make([]*instance.HistoryEntry, len(stored))
	for i, entry := range stored {
		ret[i] = entry.Clone()
	}
	return ret, nil
}

// Last returns the most recent entry of an instance, or nil when it has
// none.
func (s *Service) Last(ctx context.Context, instanceID string) (*instance.HistoryEntry, error) {
	entries, err := s.List(ctx, instanceID)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return entries[len(entries)-1], nil
}
