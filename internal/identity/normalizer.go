package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/inkwellhq/inkwell-backend/internal/models"
	"github.com/inkwellhq/inkwell-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// maxPersistRetries bounds how often a lost unique-index race triggers
// re-allocation before the normalizer falls back to a random token name.
const maxPersistRetries = 3

// NameStore is what the normalizer needs from the user store: the existence
// index for allocation plus the targeted username rewrite.
type NameStore interface {
	UsernameIndex
	SetUsername(ctx context.Context, id primitive.ObjectID, username string) error
}

// Normalizer repairs invalid display names. Safe to call repeatedly and
// concurrently for the same user: once the name is valid every further call
// is a no-op, and a concurrent writer losing the unique-index race simply
// re-allocates.
type Normalizer struct {
	users NameStore
	alloc *Allocator
}

// NewNormalizer creates a new Normalizer
func NewNormalizer(users NameStore) *Normalizer {
	return &Normalizer{users: users, alloc: NewAllocator(users)}
}

// Normalize returns a valid display name for the user and whether the record
// was rewritten. An invalid name is replaced by a unique candidate derived
// from the contact address (or a random token) and persisted with a single
// targeted field update; no other field is touched.
func (n *Normalizer) Normalize(ctx context.Context, user *models.User) (string, bool, error) {
	if user == nil {
		return "", false, errors.New("normalize: nil user")
	}
	if ValidUsername(user.Username) {
		return user.Username, false, nil
	}

	candidate, err := DeriveCandidate(user.Email)
	if err != nil {
		return "", false, err
	}

	for attempt := 0; ; attempt++ {
		name, err := n.alloc.Allocate(ctx, candidate)
		if err != nil {
			return "", false, err
		}

		err = n.users.SetUsername(ctx, user.ID, name)
		if err == nil {
			user.Username = name
			return name, true, nil
		}
		if !errors.Is(err, repositories.ErrDuplicate) {
			return "", false, fmt.Errorf("persist username %q: %w", name, err)
		}
		if attempt >= maxPersistRetries {
			// Exhausted deterministic suffixes against concurrent writers;
			// a fresh random token cannot keep colliding.
			candidate, err = DeriveCandidate("")
			if err != nil {
				return "", false, err
			}
		}
	}
}
