package feed

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/inkwellhq/inkwell-backend/internal/models"
	"github.com/inkwellhq/inkwell-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PostStore is what the assembler needs from the post repository
type PostStore interface {
	FindPosts(ctx context.Context, filter bson.M, sort bson.D, skip, limit int64) ([]models.Post, error)
	CountPosts(ctx context.Context, filter bson.M) (int64, error)
}

// OwnerStore resolves owner references during the join
type OwnerStore interface {
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// NameNormalizer repairs an owner's display name in place
type NameNormalizer interface {
	Normalize(ctx context.Context, user *models.User) (string, bool, error)
}

// Assembler executes a query plan, joins owners and normalizes their display
// names. Posts whose owner cannot be resolved are dropped, never surfaced.
type Assembler struct {
	posts      PostStore
	users      OwnerStore
	normalizer NameNormalizer
}

// NewAssembler creates a new Assembler
func NewAssembler(posts PostStore, users OwnerStore, normalizer NameNormalizer) *Assembler {
	return &Assembler{posts: posts, users: users, normalizer: normalizer}
}

// Assemble runs the plan and returns the page plus a hasMore flag. hasMore
// compares the page window against the count of the filtered corpus. Result
// order is the plan's sort order; dropped items shrink the page without
// back-fill.
func (a *Assembler) Assemble(ctx context.Context, plan Plan) ([]models.Post, bool, error) {
	posts, err := a.posts.FindPosts(ctx, plan.Filter, plan.Sort, plan.Skip(), plan.Limit)
	if err != nil {
		return nil, false, fmt.Errorf("execute feed plan: %w", err)
	}

	items := make([]models.Post, 0, len(posts))
	owners := make(map[primitive.ObjectID]*models.User)
	for _, post := range posts {
		owner, ok := owners[post.UserID]
		if !ok {
			owner, err = a.users.GetUserByID(ctx, post.UserID)
			if err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					continue
				}
				return nil, false, fmt.Errorf("resolve owner of post %s: %w", post.ID.Hex(), err)
			}
			owners[post.UserID] = owner
		}

		// Best-effort name repair; a failed rewrite skips the item rather
		// than failing the read.
		if _, _, err := a.normalizer.Normalize(ctx, owner); err != nil {
			log.Printf("normalize username for user %s: %v", owner.ID.Hex(), err)
			continue
		}
		profile := owner.Public()
		post.User = &profile
		items = append(items, post)
	}

	total, err := a.posts.CountPosts(ctx, plan.Filter)
	if err != nil {
		return nil, false, fmt.Errorf("count feed corpus: %w", err)
	}

	hasMore := plan.Page*plan.Limit < total
	return items, hasMore, nil
}

// AssembleOwned joins and normalizes owners for an already-fetched post list
// (featured listing, saved posts). Same drop rule as Assemble.
func (a *Assembler) AssembleOwned(ctx context.Context, posts []models.Post) ([]models.Post, error) {
	items := make([]models.Post, 0, len(posts))
	for _, post := range posts {
		owner, err := a.users.GetUserByID(ctx, post.UserID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("resolve owner of post %s: %w", post.ID.Hex(), err)
		}
		if _, _, err := a.normalizer.Normalize(ctx, owner); err != nil {
			log.Printf("normalize username for user %s: %v", owner.ID.Hex(), err)
			continue
		}
		profile := owner.Public()
		post.User = &profile
		items = append(items, post)
	}
	return items, nil
}
