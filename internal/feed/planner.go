// Package feed turns untrusted request parameters into a deterministic query
// plan over posts and assembles owner-joined, normalized result pages.
package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inkwellhq/inkwell-backend/internal/models"
	"github.com/inkwellhq/inkwell-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Sort modes recognized by the planner. Anything else falls back to newest.
const (
	SortNewest   = "newest"
	SortOldest   = "oldest"
	SortPopular  = "popular"
	SortTrending = "trending"
)

// TrendingWindow is the trailing interval the trending sort restricts to
const TrendingWindow = 7 * 24 * time.Hour

// Default page sizes: the general feed pages in twos, scoped feeds in tens.
const (
	DefaultLimit     = 2
	DefaultUserLimit = 10
)

// ErrAuthorNotFound is returned when the author parameter does not resolve
// to any user. Distinct from an empty result set.
var ErrAuthorNotFound = errors.New("author not found")

// Params are the untrusted, transport-parsed feed request parameters
type Params struct {
	Category string
	Search   string
	Author   string
	Featured bool
	Sort     string
	Page     int
	Limit    int
}

// Plan is the resolved query: filter predicates, a sort order and a page
// window. Page and Limit are always positive.
type Plan struct {
	Filter bson.M
	Sort   bson.D
	Page   int64
	Limit  int64
}

// Skip returns the document offset of the page window
func (p Plan) Skip() int64 {
	return (p.Page - 1) * p.Limit
}

// AuthorResolver maps a username to a user record
type AuthorResolver interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Planner builds query plans. The author lookup is its only store access;
// everything else is a pure function of the parameters and the clock.
type Planner struct {
	users        AuthorResolver
	defaultLimit int64
	now          func() time.Time
}

// NewPlanner creates a Planner with the given default page size
func NewPlanner(users AuthorResolver, defaultLimit int64) *Planner {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	return &Planner{users: users, defaultLimit: defaultLimit, now: time.Now}
}

// Plan validates the parameters and builds the query plan. An author that
// does not resolve short-circuits with ErrAuthorNotFound.
func (pl *Planner) Plan(ctx context.Context, params Params) (Plan, error) {
	var authorID primitive.ObjectID
	if params.Author != "" {
		author, err := pl.users.GetUserByUsername(ctx, params.Author)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return Plan{}, ErrAuthorNotFound
			}
			return Plan{}, fmt.Errorf("resolve author %q: %w", params.Author, err)
		}
		authorID = author.ID
	}

	return buildPlan(params, authorID, pl.defaultLimit, pl.now()), nil
}

// buildPlan is the pure core: same params, same author, same instant — same
// plan.
func buildPlan(params Params, authorID primitive.ObjectID, defaultLimit int64, now time.Time) Plan {
	filter := bson.M{}

	if params.Category != "" {
		filter["category"] = params.Category
	}
	if params.Search != "" {
		filter["title"] = primitive.Regex{Pattern: params.Search, Options: "i"}
	}
	if !authorID.IsZero() {
		filter["user"] = authorID
	}
	if params.Featured {
		filter["is_featured"] = true
	}

	sort := bson.D{{Key: "created_at", Value: -1}}
	switch params.Sort {
	case SortOldest:
		sort = bson.D{{Key: "created_at", Value: 1}}
	case SortPopular:
		sort = bson.D{{Key: "visit", Value: -1}}
	case SortTrending:
		sort = bson.D{{Key: "visit", Value: -1}}
		filter["created_at"] = bson.M{"$gte": now.Add(-TrendingWindow)}
	}

	page := int64(params.Page)
	if page < 1 {
		page = 1
	}
	limit := int64(params.Limit)
	if limit < 1 {
		limit = defaultLimit
	}

	return Plan{Filter: filter, Sort: sort, Page: page, Limit: limit}
}
