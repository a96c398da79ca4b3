// Package profiles materialises user profile documents after sign-up.
package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bodycoach/internal/documents"
)

// ErrEmailMismatch is returned when the requested email differs from the
// verified token email.
var ErrEmailMismatch = errors.New("email does not match authenticated user")

// ErrMissingIdentity is returned when the caller carries no user id.
var ErrMissingIdentity = errors.New("authenticated user id is required")

// Field names inside a users document.
const (
	FieldFirebaseUID = "firebase_uid"
	FieldEmail       = "email"
	FieldName        = "name"
	FieldCreatedAt   = "created_at"
	FieldUpdatedAt   = "updated_at"
)

// Profile is the stored user profile.
type Profile struct {
	ID          uuid.UUID `json:"id"`
	FirebaseUID string    `json:"firebase_uid"`
	Email       string    `json:"email"`
	Name        *string   `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Identity is the verified caller.
type Identity struct {
	UID   string
	Email string
}

// Request is the bootstrap body.
type Request struct {
	Email string
	Name  *string
}

// Service coordinates profile bootstrap against the document store.
type Service struct {
	repo documents.Repository
	now  func() time.Time
}

// NewService constructs a Service.
func NewService(repo documents.Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Bootstrap returns the caller's profile, creating it when absent. created
// reports whether a document was written. There is no transaction: two
// concurrent first calls may both write.
func (s *Service) Bootstrap(ctx context.Context, id Identity, req Request) (Profile, bool, error) {
	if strings.TrimSpace(id.UID) == "" {
		return Profile{}, false, ErrMissingIdentity
	}

	email := strings.TrimSpace(id.Email)
	requested := strings.TrimSpace(req.Email)
	switch {
	case email == "":
		email = requested
	case requested != "" && !strings.EqualFold(requested, email):
		return Profile{}, false, ErrEmailMismatch
	}

	existing, err := s.repo.FindByField(ctx, documents.CollectionUsers, FieldFirebaseUID, id.UID)
	if err != nil {
		return Profile{}, false, fmt.Errorf("find profile: %w", err)
	}
	if len(existing) > 0 {
		return fromDocument(existing[0]), false, nil
	}

	now := s.now().UTC()
	data := map[string]any{
		FieldFirebaseUID: id.UID,
		FieldEmail:       email,
		FieldName:        nil,
		FieldCreatedAt:   now.Format(time.RFC3339Nano),
		FieldUpdatedAt:   now.Format(time.RFC3339Nano),
	}
	if req.Name != nil {
		data[FieldName] = *req.Name
	}

	doc, err := s.repo.Add(ctx, documents.CollectionUsers, data)
	if err != nil {
		return Profile{}, false, fmt.Errorf("create profile: %w", err)
	}
	return fromDocument(doc), true, nil
}

func fromDocument(doc documents.Document) Profile {
	p := Profile{ID: doc.ID}
	p.FirebaseUID, _ = doc.Data[FieldFirebaseUID].(string)
	p.Email, _ = doc.Data[FieldEmail].(string)
	if name, ok := doc.Data[FieldName].(string); ok {
		p.Name = &name
	}
	p.CreatedAt = parseTime(doc.Data[FieldCreatedAt], doc.CreatedAt)
	p.UpdatedAt = parseTime(doc.Data[FieldUpdatedAt], p.CreatedAt)
	return p
}

func parseTime(v any, fallback time.Time) time.Time {
	raw, ok := v.(string)
	if !ok {
		return fallback
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return fallback
	}
	return t
}
