// Package integrity removes content records whose owner reference dangles.
package integrity

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/inkwellhq/inkwell-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PostStore is what the sweeper needs from the post repository
type PostStore interface {
	ListOwnerRefs(ctx context.Context) ([]models.PostOwnerRef, error)
	DeletePostsByIDs(ctx context.Context, ids []primitive.ObjectID) (int64, error)
}

// OwnerStore checks which owner references still resolve
type OwnerStore interface {
	ExistingUserIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]struct{}, error)
}

// Sweeper scans posts for references to missing owners and removes them.
// Best-effort maintenance: callers log failures and carry on; the
// assembler's per-item owner check remains the authoritative guard.
type Sweeper struct {
	posts PostStore
	users OwnerStore
}

// NewSweeper creates a new Sweeper
func NewSweeper(posts PostStore, users OwnerStore) *Sweeper {
	return &Sweeper{posts: posts, users: users}
}

// Sweep removes every post whose owner no longer exists and returns how
// many were deleted
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	refs, err := s.posts.ListOwnerRefs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list post owner refs: %w", err)
	}
	if len(refs) == 0 {
		return 0, nil
	}

	ownerIDs := make([]primitive.ObjectID, 0, len(refs))
	seen := make(map[primitive.ObjectID]struct{}, len(refs))
	for _, ref := range refs {
		if _, ok := seen[ref.UserID]; ok {
			continue
		}
		seen[ref.UserID] = struct{}{}
		ownerIDs = append(ownerIDs, ref.UserID)
	}

	existing, err := s.users.ExistingUserIDs(ctx, ownerIDs)
	if err != nil {
		return 0, fmt.Errorf("resolve post owners: %w", err)
	}

	var orphaned []primitive.ObjectID
	for _, ref := range refs {
		if _, ok := existing[ref.UserID]; !ok {
			orphaned = append(orphaned, ref.ID)
		}
	}
	if len(orphaned) == 0 {
		return 0, nil
	}

	removed, err := s.posts.DeletePostsByIDs(ctx, orphaned)
	if err != nil {
		return 0, fmt.Errorf("delete orphaned posts: %w", err)
	}
	return removed, nil
}

// Run sweeps on the given interval until the context is cancelled
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.Sweep(ctx)
			if err != nil {
				log.Printf("integrity sweep failed: %v", err)
				continue
			}
			if removed > 0 {
				log.Printf("integrity sweep removed %d orphaned posts", removed)
			}
		}
	}
}
