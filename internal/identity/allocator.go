package identity

import (
	"context"
	"fmt"
)

// UsernameIndex is the lookup the allocator needs from the user store
type UsernameIndex interface {
	UsernameExists(ctx context.Context, username string) (bool, error)
}

// Allocator finds a collision-free variant of a candidate display name by
// suffixing. The lowest free integer suffix wins, so the outcome depends
// only on the candidate and the set of existing names.
type Allocator struct {
	users UsernameIndex
}

// NewAllocator creates a new Allocator
func NewAllocator(users UsernameIndex) *Allocator {
	return &Allocator{users: users}
}

// Allocate returns the candidate itself when unused, otherwise candidate_1,
// candidate_2, ... in order. The check-then-use sequence is not atomic
// against a concurrent allocation of the same name; the persisting caller
// relies on the unique index and re-allocates on ErrDuplicate.
func (a *Allocator) Allocate(ctx context.Context, candidate string) (string, error) {
	exists, err := a.users.UsernameExists(ctx, candidate)
	if err != nil {
		return "", fmt.Errorf("check username %q: %w", candidate, err)
	}
	if !exists {
		return candidate, nil
	}

	for suffix := 1; ; suffix++ {
		name := fmt.Sprintf("%s_%d", candidate, suffix)
		exists, err := a.users.UsernameExists(ctx, name)
		if err != nil {
			return "", fmt.Errorf("check username %q: %w", name, err)
		}
		if !exists {
			return name, nil
		}
	}
}
