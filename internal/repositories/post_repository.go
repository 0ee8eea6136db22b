package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/inkwellhq/inkwell-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
	GetPostBySlug(ctx context.Context, slug string) (*models.Post, error)
	FindPosts(ctx context.Context, filter bson.M, sort bson.D, skip, limit int64) ([]models.Post, error)
	CountPosts(ctx context.Context, filter bson.M) (int64, error)
	FindPostsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Post, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	DeletePost(ctx context.Context, id primitive.ObjectID) error
	DeletePostsByIDs(ctx context.Context, ids []primitive.ObjectID) (int64, error)
	DeletePostsByUser(ctx context.Context, userID primitive.ObjectID) (int64, error)
	SetFeatured(ctx context.Context, id primitive.ObjectID, featured bool) error
	IncrementVisit(ctx context.Context, slug string) error
	ListOwnerRefs(ctx context.Context) ([]models.PostOwnerRef, error)
}

// MongoPostRepository implements PostRepository for MongoDB
type MongoPostRepository struct {
	collection *mongo.Collection
}

// NewMongoPostRepository creates a new MongoPostRepository
func NewMongoPostRepository(db *mongo.Database) *MongoPostRepository {
	return &MongoPostRepository{collection: db.Collection("posts")}
}

// CreatePost creates a new post. A slug collision against the unique index
// surfaces as ErrDuplicate.
func (r *MongoPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	post.ID = primitive.NewObjectID()
	post.CreatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, post)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

// GetPostByID retrieves a post by its hex document id
func (r *MongoPostRepository) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid post ID format: %w", err)
	}

	var post models.Post
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&post)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

// GetPostBySlug retrieves a post by slug
func (r *MongoPostRepository) GetPostBySlug(ctx context.Context, slug string) (*models.Post, error) {
	var post models.Post
	err := r.collection.FindOne(ctx, bson.M{"slug": slug}).Decode(&post)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

// FindPosts executes a feed query plan: filter, sort, skip and limit are
// passed through verbatim so result order exactly matches the plan's sort key
func (r *MongoPostRepository) FindPosts(ctx context.Context, filter bson.M, sort bson.D, skip, limit int64) ([]models.Post, error) {
	findOptions := options.Find().SetSort(sort).SetSkip(skip).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var posts []models.Post
	if err = cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// CountPosts counts documents matching the filter
func (r *MongoPostRepository) CountPosts(ctx context.Context, filter bson.M) (int64, error) {
	return r.collection.CountDocuments(ctx, filter)
}

// FindPostsByIDs retrieves the given posts, newest first
func (r *MongoPostRepository) FindPostsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Post, error) {
	if len(ids) == 0 {
		return []models.Post{}, nil
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var posts []models.Post
	if err = cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// SlugExists reports whether a post already holds the given slug
func (r *MongoPostRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"slug": slug})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeletePost deletes a post by id
func (r *MongoPostRepository) DeletePost(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePostsByIDs deletes the given posts and returns how many were removed
func (r *MongoPostRepository) DeletePostsByIDs(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeletePostsByUser deletes all posts owned by the given user
func (r *MongoPostRepository) DeletePostsByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"user": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// SetFeatured sets the featured flag on a post
func (r *MongoPostRepository) SetFeatured(ctx context.Context, id primitive.ObjectID, featured bool) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_featured": featured}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementVisit bumps the view counter of the post with the given slug
func (r *MongoPostRepository) IncrementVisit(ctx context.Context, slug string) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"slug": slug},
		bson.M{"$inc": bson.M{"visit": 1}})
	return err
}

// ListOwnerRefs returns every post's id and owner reference, projected down
// for the integrity sweep
func (r *MongoPostRepository) ListOwnerRefs(ctx context.Context) ([]models.PostOwnerRef, error) {
	findOptions := options.Find().SetProjection(bson.M{"_id": 1, "user": 1})
	cursor, err := r.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var refs []models.PostOwnerRef
	if err = cursor.All(ctx, &refs); err != nil {
		return nil, err
	}
	return refs, nil
}
