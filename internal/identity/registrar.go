package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/inkwellhq/inkwell-backend/internal/models"
	"github.com/inkwellhq/inkwell-backend/internal/repositories"
)

// AccountStore is what the registrar needs from the user store
type AccountStore interface {
	NameStore
	GetUserBySubjectID(ctx context.Context, subjectID string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
}

// Registrar constructs local user records for identity-provider subjects.
// Used by both the provider webhook ("created" events) and the first
// authenticated API touch; idempotent per subject id.
type Registrar struct {
	users AccountStore
	alloc *Allocator
}

// NewRegistrar creates a new Registrar
func NewRegistrar(users AccountStore) *Registrar {
	return &Registrar{users: users, alloc: NewAllocator(users)}
}

// Ensure returns the user for the given subject id, creating it if absent.
// The display name passes through the validity predicate and the uniqueness
// allocator before the record is written.
func (r *Registrar) Ensure(ctx context.Context, subjectID, email, displayName, avatarURL string) (*models.User, error) {
	if subjectID == "" {
		return nil, errors.New("registrar: empty subject id")
	}
	if email == "" {
		email = placeholderNoEmail
	}

	user, err := r.users.GetUserBySubjectID(ctx, subjectID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("lookup subject %q: %w", subjectID, err)
	}

	candidate := displayName
	if !ValidUsername(candidate) {
		candidate, err = DeriveCandidate(email)
		if err != nil {
			return nil, err
		}
	}

	for {
		name, err := r.alloc.Allocate(ctx, candidate)
		if err != nil {
			return nil, err
		}

		user = &models.User{
			SubjectID: subjectID,
			Username:  name,
			Email:     email,
			Img:       avatarURL,
		}
		err = r.users.CreateUser(ctx, user)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, repositories.ErrDuplicate) {
			return nil, fmt.Errorf("create user for subject %q: %w", subjectID, err)
		}

		// Either the username lost a race or the same subject was created
		// concurrently; re-read before re-allocating.
		existing, lookupErr := r.users.GetUserBySubjectID(ctx, subjectID)
		if lookupErr == nil {
			return existing, nil
		}
		if !errors.Is(lookupErr, repositories.ErrNotFound) {
			return nil, fmt.Errorf("re-lookup subject %q: %w", subjectID, lookupErr)
		}
	}
}
