package definition

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/trackflow/trackflow/model"
	"github.com/trackflow/trackflow/service/dao"
)

func newTestDefinition(version string) *model.Definition {
	return model.NewDefinition("expense-approval", version).
		WithState(&model.State{Name: "DRAFT", Kind: model.StateInitial, Order: 1}).
		WithState(&model.State{Name: "REVIEW", Kind: model.StateNormal, Order: 2}).
		WithState(&model.State{Name: "DONE", Kind: model.StateEnd, Order: 3}).
		WithTransition(&model.Transition{FromState: "DRAFT", ToState: "REVIEW", Event: "SUBMIT"}).
		WithTransition(&model.Transition{FromState: "REVIEW", ToState: "DONE", Event: "APPROVE"})
}

func TestService_CreateAndActivate(t *testing.T) {
	ctx := context.Background()
	srv := New()

	err := srv.Create(ctx, newTestDefinition("1.0.0"))
	assert.NoError(t, err)

	// duplicate version is rejected
	err = srv.Create(ctx, newTestDefinition("1.0.0"))
	assert.Error(t, err)

	// nothing active yet
	_, err = srv.Active(ctx, "expense-approval")
	assert.True(t, errors.Is(err, ErrNoActiveWorkflow))

	err = srv.Activate(ctx, "expense-approval", "1.0.0", "U1000")
	assert.NoError(t, err)

	active, err := srv.Active(ctx, "expense-approval")
	assert.NoError(t, err)
	assert.EqualValues(t, "1.0.0", active.Version)
	assert.EqualValues(t, "U1000", active.ActivatedBy)
	if active.ActivatedAt == nil {
		t.Fatalf("expected activatedAt to be stamped")
	}
}

func TestService_ActivateSwitchesVersion(t *testing.T) {
	ctx := context.Background()
	srv := New()
	assert.NoError(t, srv.Create(ctx, newTestDefinition("1.0.0")))
	assert.NoError(t, srv.Activate(ctx, "expense-approval", "1.0.0", "U1000"))

	cloned, err := srv.NewVersion(ctx, "expense-approval", "1.0.0", "2.0.0", "U1000")
	assert.NoError(t, err)
	assert.EqualValues(t, "Cloned from version 1.0.0", cloned.Description)
	assert.False(t, cloned.Active)
	assert.EqualValues(t, len(newTestDefinition("").States), len(cloned.States))

	assert.NoError(t, srv.Activate(ctx, "expense-approval", "2.0.0", "U1001"))

	versions, err := srv.Versions(ctx, "expense-approval")
	assert.NoError(t, err)
	activeCount := 0
	for _, version := range versions {
		if version.Active {
			activeCount++
			assert.EqualValues(t, "2.0.0", version.Version)
			assert.EqualValues(t, "U1001", version.ActivatedBy)
		} else {
			assert.Empty(t, version.ActivatedBy)
		}
	}
	assert.EqualValues(t, 1, activeCount)
}

func TestService_NewVersionMissingBase(t *testing.T) {
	ctx := context.Background()
	srv := New()
	_, err := srv.NewVersion(ctx, "expense-approval", "0.9.0", "1.0.0", "U1000")
	assert.True(t, errors.Is(err, dao.ErrNotFound))
}

func TestService_ActivateMissingTarget(t *testing.T) {
	ctx := context.Background()
	srv := New()
	assert.NoError(t, srv.Create(ctx, newTestDefinition("1.0.0")))
	err := srv.Activate(ctx, "expense-approval", "9.9.9", "U1000")
	assert.True(t, errors.Is(err, dao.ErrNotFound))
}

func TestService_DeactivateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	srv := New()
	assert.NoError(t, srv.Create(ctx, newTestDefinition("1.0.0")))
	assert.NoError(t, srv.Deactivate(ctx, "expense-approval"))
	assert.NoError(t, srv.Activate(ctx, "expense-approval", "1.0.0", "U1000"))
	assert.NoError(t, srv.Deactivate(ctx, "expense-approval"))
	assert.NoError(t, srv.Deactivate(ctx, "expense-approval"))
	_, err := srv.Active(ctx, "expense-approval")
	assert.True(t, errors.Is(err, ErrNoActiveWorkflow))
}

func TestService_ConcurrentActivation(t *testing.T) {
	ctx := context.Background()
	srv := New()
	versions := []string{"1.0.0", "1.1.0", "1.2.0", "1.3.0"}
	for _, version := range versions {
		if err := srv.Create(ctx, newTestDefinition(version)); err != nil {
			t.Fatal(err)
		}
	}

	if err := srv.Activate(ctx, "expense-approval", versions[0], "U1000"); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		version := versions[i%len(versions)]
		go func() {
			defer wg.Done()
			_ = srv.Activate(ctx, "expense-approval", version, "U1000")
		}()
		// readers never observe a window without an active version
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := srv.Active(ctx, "expense-approval"); err != nil {
				t.Errorf("active version lookup failed mid switch: %v", err)
			}
		}()
	}
	wg.Wait()

	stored, err := srv.Versions(ctx, "expense-approval")
	if err != nil {
		t.Fatal(err)
	}
	activeCount := 0
	for _, candidate := range stored {
		if candidate.Active {
			activeCount++
		}
	}
	if activeCount != 1 {
		t.Fatalf("expected exactly one active version, had %d", activeCount)
	}
}

func TestService_CreateRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	srv := New()
	invalid := model.NewDefinition("broken", "1.0.0").
		WithState(&model.State{Name: "A", Kind: model.StateNormal})
	err := srv.Create(ctx, invalid)
	assert.Error(t, err)
}
