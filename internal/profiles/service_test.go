package profiles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"bodycoach/internal/documents"
)

type repoStub struct {
	addFn         func(ctx context.Context, collection string, data map[string]any) (documents.Document, error)
	findByFieldFn func(ctx context.Context, collection, field, value string) ([]documents.Document, error)
}

func (r *repoStub) Add(ctx context.Context, collection string, data map[string]any) (documents.Document, error) {
	if r.addFn != nil {
		return r.addFn(ctx, collection, data)
	}
	return documents.Document{ID: uuid.New(), Collection: collection, Data: data}, nil
}

func (r *repoStub) Get(context.Context, string, uuid.UUID) (documents.Document, error) {
	return documents.Document{}, documents.ErrNotFound
}

func (r *repoStub) FindByField(ctx context.Context, collection, field, value string) ([]documents.Document, error) {
	if r.findByFieldFn != nil {
		return r.findByFieldFn(ctx, collection, field, value)
	}
	return nil, nil
}

func TestBootstrapCreatesProfile(t *testing.T) {
	repo := documents.NewInMemoryRepository()
	svc := NewService(repo)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	name := "Taro"
	profile, created, err := svc.Bootstrap(context.Background(), Identity{UID: "uid-1", Email: "test@example.com"}, Request{Email: "test@example.com", Name: &name})
	if err != nil {
		t.Fatalf("Bootstrap returned error: %v", err)
	}
	if !created {
		t.Fatal("expected profile to be created")
	}
	if profile.FirebaseUID != "uid-1" || profile.Email != "test@example.com" || profile.Name == nil || *profile.Name != "Taro" {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if !profile.CreatedAt.Equal(fixed) || !profile.UpdatedAt.Equal(fixed) {
		t.Fatalf("unexpected timestamps %v/%v", profile.CreatedAt, profile.UpdatedAt)
	}

	stored, err := repo.Get(context.Background(), documents.CollectionUsers, profile.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if stored.Data[FieldFirebaseUID] != "uid-1" {
		t.Fatalf("unexpected stored data %v", stored.Data)
	}
}

func TestBootstrapIsIdempotentPerUID(t *testing.T) {
	repo := documents.NewInMemoryRepository()
	svc := NewService(repo)
	id := Identity{UID: "uid-1", Email: "test@example.com"}

	first, created, err := svc.Bootstrap(context.Background(), id, Request{})
	if err != nil || !created {
		t.Fatalf("first Bootstrap: created=%v err=%v", created, err)
	}
	second, created, err := svc.Bootstrap(context.Background(), id, Request{})
	if err != nil {
		t.Fatalf("second Bootstrap returned error: %v", err)
	}
	if created || second.ID != first.ID {
		t.Fatalf("expected existing profile %s, got %s (created=%v)", first.ID, second.ID, created)
	}
	if first.Name != nil {
		t.Fatalf("expected null name, got %q", *first.Name)
	}
}

func TestBootstrapRejectsEmailMismatch(t *testing.T) {
	repo := &repoStub{
		addFn: func(context.Context, string, map[string]any) (documents.Document, error) {
			t.Fatal("Add should not be called")
			return documents.Document{}, nil
		},
	}
	svc := NewService(repo)

	_, _, err := svc.Bootstrap(context.Background(), Identity{UID: "uid-1", Email: "test@example.com"}, Request{Email: "other@example.com"})
	if !errors.Is(err, ErrEmailMismatch) {
		t.Fatalf("expected ErrEmailMismatch, got %v", err)
	}
}

func TestBootstrapEmailComparisonIgnoresCase(t *testing.T) {
	svc := NewService(documents.NewInMemoryRepository())

	profile, _, err := svc.Bootstrap(context.Background(), Identity{UID: "uid-1", Email: "test@example.com"}, Request{Email: "Test@Example.com"})
	if err != nil {
		t.Fatalf("Bootstrap returned error: %v", err)
	}
	if profile.Email != "test@example.com" {
		t.Fatalf("expected token email to be stored, got %q", profile.Email)
	}
}

func TestBootstrapFallsBackToRequestEmail(t *testing.T) {
	svc := NewService(documents.NewInMemoryRepository())

	profile, _, err := svc.Bootstrap(context.Background(), Identity{UID: "uid-1"}, Request{Email: "test@example.com"})
	if err != nil {
		t.Fatalf("Bootstrap returned error: %v", err)
	}
	if profile.Email != "test@example.com" {
		t.Fatalf("unexpected email %q", profile.Email)
	}
}

func TestBootstrapRequiresUID(t *testing.T) {
	svc := NewService(documents.NewInMemoryRepository())
	if _, _, err := svc.Bootstrap(context.Background(), Identity{}, Request{}); !errors.Is(err, ErrMissingIdentity) {
		t.Fatalf("expected ErrMissingIdentity, got %v", err)
	}
}

func TestBootstrapWrapsStoreErrors(t *testing.T) {
	boom := errors.New("boom")
	repo := &repoStub{
		findByFieldFn: func(context.Context, string, string, string) ([]documents.Document, error) {
			return nil, boom
		},
	}
	svc := NewService(repo)

	if _, _, err := svc.Bootstrap(context.Background(), Identity{UID: "uid-1"}, Request{}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
