package history

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/trackflow/trackflow/runtime/instance"
	"github.com/trackflow/trackflow/service/dao"
)

func TestService_RecordAndList(t *testing.T) {
	ctx := context.Background()
	service := New()

	assert.True(t, dao.ErrNilEntity == service.Record(ctx, nil))

	first := &instance.HistoryEntry{InstanceID: "p-1", Event: "PROCESS_STARTED", ToState: "A", UserID: "U1000"}
	assert.NoError(t, service.Record(ctx, first))
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.At.IsZero())

	assert.NoError(t, service.Record(ctx, &instance.HistoryEntry{InstanceID: "p-1", Event: "SUBMIT", FromState: "A", ToState: "B", UserID: "U1001"}))
	assert.NoError(t, service.Record(ctx, &instance.HistoryEntry{InstanceID: "p-2", Event: "PROCESS_STARTED", ToState: "A", UserID: "U1002"}))

	entries, err := service.List(ctx, "p-1")
	assert.NoError(t, err)
	assert.EqualValues(t, 2, len(entries))
	assert.EqualValues(t, "PROCESS_STARTED", entries[0].Event)
	assert.EqualValues(t, "SUBMIT", entries[1].Event)

	last, err := service.Last(ctx, "p-1")
	assert.NoError(t, err)
	assert.EqualValues(t, "B", last.ToState)

	last, err = service.Last(ctx, "p-9")
	assert.NoError(t, err)
	assert.Nil(t, last)
}

func TestService_ListReturnsCopies(t *testing.T) {
	ctx := context.Background()
	service := New()
	assert.NoError(t, service.Record(ctx, &instance.HistoryEntry{
		InstanceID: "p-1",
		Event:      "PROCESS_STARTED",
		ToState:    "A",
		Context:    map[string]interface{}{"amount": 100},
	}))
	entries, _ := service.List(ctx, "p-1")
	entries[0].Context["amount"] = 999
	entries, _ = service.List(ctx, "p-1")
	assert.EqualValues(t, 100, entries[0].Context["amount"])
}

func TestService_ConcurrentRecordKeepsOrderUnique(t *testing.T) {
	ctx := context.Background()
	service := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = service.Record(ctx, &instance.HistoryEntry{InstanceID: "p-1", Event: "SUBMIT", ToState: "B"})
		}()
	}
	wg.Wait()
	entries, err := service.List(ctx, "p-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 16 {
		t.Fatalf("expected 16 entries, had %d", len(entries))
	}
	seen := map[string]bool{}
	for _, entry := range entries {
		if seen[entry.ID] {
			t.Fatalf("duplicate id %v", entry.ID)
		}
		seen[entry.ID] = true
	}
}
