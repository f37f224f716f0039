package respool

import (
	"context"
	"errors"
	"testing"

	"jobctl/internal/apperrors"
	"jobctl/internal/job"
)

// fakeGateway scripts lookup and create responses.
type fakeGateway struct {
	lookupErr error
	lookupID  string
	createErr error
	createID  string

	lookups int
	creates int
}

func (f *fakeGateway) Invoke(ctx context.Context, op job.Operation, req, resp any) error {
	switch op {
	case job.OpLookupResourcePool:
		f.lookups++
		if f.lookupErr != nil {
			return f.lookupErr
		}
		resp.(*LookupResponse).RespoolID = f.lookupID
		return nil
	case job.OpCreateResourcePool:
		f.creates++
		if f.createErr != nil {
			return f.createErr
		}
		resp.(*CreateResponse).RespoolID = f.createID
		return nil
	default:
		return errors.New("unexpected operation")
	}
}

func TestSpecPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		spec Spec
		want string
	}{
		{"root parent", Spec{Name: "integration", Parent: "/"}, "/integration"},
		{"no parent", Spec{Name: "integration"}, "/integration"},
		{"nested", Spec{Name: "batch", Parent: "/prod"}, "/prod/batch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.spec.Path(); got != tt.want {
				t.Errorf("Path() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEnsureExists_AlreadyThere(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{lookupID: "pool-1"}
	pool := New(gw, &Spec{Name: "integration"})

	id, err := pool.EnsureExists(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if id != "pool-1" {
		t.Errorf("Expected pool-1, got %s", id)
	}
	if gw.creates != 0 {
		t.Errorf("Expected no create call, got %d", gw.creates)
	}
}

func TestEnsureExists_CreatesOnNotFound(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{
		lookupErr: apperrors.NotFound("respool", "/integration"),
		createID:  "pool-2",
	}
	pool := New(gw, &Spec{Name: "integration"})

	id, err := pool.EnsureExists(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if id != "pool-2" {
		t.Errorf("Expected pool-2, got %s", id)
	}
	if gw.lookups != 1 || gw.creates != 1 {
		t.Errorf("Expected 1 lookup and 1 create, got %d/%d", gw.lookups, gw.creates)
	}
}

func TestEnsureExists_PropagatesOtherErrors(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{lookupErr: apperrors.Unavailable("LookupResourcePool", errors.New("down"))}
	pool := New(gw, &Spec{Name: "integration"})

	_, err := pool.EnsureExists(context.Background())
	if !errors.Is(err, apperrors.ErrUnavailable) {
		t.Errorf("Expected unavailable error, got %v", err)
	}
	if gw.creates != 0 {
		t.Error("Create must not be attempted on a transient lookup failure")
	}
}
