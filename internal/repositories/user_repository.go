package repositories

import (
	"context"
	"time"

	"github.com/inkwellhq/inkwell-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUserBySubjectID(ctx context.Context, subjectID string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	ExistingUserIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]struct{}, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	SetUsername(ctx context.Context, id primitive.ObjectID, username string) error
	SetImg(ctx context.Context, id primitive.ObjectID, img string) error
	DeleteUserBySubjectID(ctx context.Context, subjectID string) (*models.User, error)
	SavePost(ctx context.Context, userID primitive.ObjectID, postID string) error
	UnsavePost(ctx context.Context, userID primitive.ObjectID, postID string) error
}

// MongoUserRepository implements UserRepository for MongoDB
type MongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new MongoUserRepository
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{collection: db.Collection("users")}
}

// CreateUser creates a new user in MongoDB
func (r *MongoUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	if user.SavedPosts == nil {
		user.SavedPosts = []string{}
	}
	_, err := r.collection.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

// GetUserByID retrieves a user by its document id
func (r *MongoUserRepository) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetUserBySubjectID retrieves a user by the identity provider's subject id
func (r *MongoUserRepository) GetUserBySubjectID(ctx context.Context, subjectID string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"subject_id": subjectID})
}

// GetUserByUsername retrieves a user by display name
func (r *MongoUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ListUsers retrieves all users, newest first
func (r *MongoUserRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ExistingUserIDs returns the subset of ids that resolve to a stored user
func (r *MongoUserRepository) ExistingUserIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]struct{}, error) {
	existing := make(map[primitive.ObjectID]struct{}, len(ids))
	if len(ids) == 0 {
		return existing, nil
	}

	findOptions := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	for _, d := range docs {
		existing[d.ID] = struct{}{}
	}
	return existing, nil
}

// UsernameExists reports whether any user holds the given display name
func (r *MongoUserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"username": username})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SetUsername performs a targeted single-field rewrite of the display name.
// The unique index on username turns a concurrent allocation of the same
// name into ErrDuplicate, which callers resolve by re-allocating.
func (r *MongoUserRepository) SetUsername(ctx context.Context, id primitive.ObjectID, username string) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"username": username}})
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

// SetImg performs a targeted single-field rewrite of the avatar reference
func (r *MongoUserRepository) SetImg(ctx context.Context, id primitive.ObjectID, img string) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"img": img}})
	return err
}

// DeleteUserBySubjectID removes a user and returns the deleted record so
// the caller can cascade-delete owned content
func (r *MongoUserRepository) DeleteUserBySubjectID(ctx context.Context, subjectID string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOneAndDelete(ctx, bson.M{"subject_id": subjectID}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// SavePost appends a post id to the user's saved set. The membership guard
// lives in the update filter, so check and append are a single atomic write;
// a second save of the same id matches nothing and yields ErrAlreadySaved.
func (r *MongoUserRepository) SavePost(ctx context.Context, userID primitive.ObjectID, postID string) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": userID, "saved_posts": bson.M{"$ne": postID}},
		bson.M{"$addToSet": bson.M{"saved_posts": postID}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrAlreadySaved
	}
	return nil
}

// UnsavePost removes a post id from the user's saved set. Removing an
// absent id is a no-op.
func (r *MongoUserRepository) UnsavePost(ctx context.Context, userID primitive.ObjectID, postID string) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": userID},
		bson.M{"$pull": bson.M{"saved_posts": postID}})
	return err
}
