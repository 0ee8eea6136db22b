package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/inkwellhq/inkwell-backend/internal/feed"
	"github.com/inkwellhq/inkwell-backend/internal/identity"
	"github.com/inkwellhq/inkwell-backend/internal/middleware"
	"github.com/inkwellhq/inkwell-backend/internal/models"
	"github.com/inkwellhq/inkwell-backend/internal/repositories"
	"github.com/inkwellhq/inkwell-backend/validators"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeUserRepo is an in-memory UserRepository with the same uniqueness
// semantics the Mongo indexes enforce.
type fakeUserRepo struct {
	users []*models.User
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *models.User) error {
	for _, u := range f.users {
		if u.SubjectID == user.SubjectID || u.Username == user.Username {
			return repositories.ErrDuplicate
		}
	}
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	if user.SavedPosts == nil {
		user.SavedPosts = []string{}
	}
	f.users = append(f.users, user)
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUserRepo) GetUserBySubjectID(_ context.Context, subjectID string) (*models.User, error) {
	for _, u := range f.users {
		if u.SubjectID == subjectID {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUserRepo) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUserRepo) ListUsers(context.Context) ([]models.User, error) {
	out := make([]models.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUserRepo) ExistingUserIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]struct{}, error) {
	existing := make(map[primitive.ObjectID]struct{})
	for _, id := range ids {
		for _, u := range f.users {
			if u.ID == id {
				existing[id] = struct{}{}
			}
		}
	}
	return existing, nil
}

func (f *fakeUserRepo) UsernameExists(_ context.Context, username string) (bool, error) {
	for _, u := range f.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepo) SetUsername(_ context.Context, id primitive.ObjectID, username string) error {
	for _, u := range f.users {
		if u.ID != id && u.Username == username {
			return repositories.ErrDuplicate
		}
	}
	for _, u := range f.users {
		if u.ID == id {
			u.Username = username
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (f *fakeUserRepo) SetImg(_ context.Context, id primitive.ObjectID, img string) error {
	for _, u := range f.users {
		if u.ID == id {
			u.Img = img
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (f *fakeUserRepo) DeleteUserBySubjectID(_ context.Context, subjectID string) (*models.User, error) {
	for i, u := range f.users {
		if u.SubjectID == subjectID {
			f.users = append(f.users[:i], f.users[i+1:]...)
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUserRepo) SavePost(_ context.Context, userID primitive.ObjectID, postID string) error {
	for _, u := range f.users {
		if u.ID != userID {
			continue
		}
		for _, saved := range u.SavedPosts {
			if saved == postID {
				return repositories.ErrAlreadySaved
			}
		}
		u.SavedPosts = append(u.SavedPosts, postID)
		return nil
	}
	return repositories.ErrNotFound
}

func (f *fakeUserRepo) UnsavePost(_ context.Context, userID primitive.ObjectID, postID string) error {
	for _, u := range f.users {
		if u.ID != userID {
			continue
		}
		kept := u.SavedPosts[:0]
		for _, saved := range u.SavedPosts {
			if saved != postID {
				kept = append(kept, saved)
			}
		}
		u.SavedPosts = kept
		return nil
	}
	return repositories.ErrNotFound
}

// fakePostRepo is an in-memory PostRepository. FindPosts understands the
// filter keys the planner emits; sorting is newest-first insertion order.
type fakePostRepo struct {
	posts []*models.Post
}

func (f *fakePostRepo) CreatePost(_ context.Context, post *models.Post) error {
	for _, p := range f.posts {
		if p.Slug == post.Slug {
			return repositories.ErrDuplicate
		}
	}
	post.ID = primitive.NewObjectID()
	post.CreatedAt = time.Now()
	f.posts = append(f.posts, post)
	return nil
}

func (f *fakePostRepo) GetPostByID(_ context.Context, id string) (*models.Post, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repositories.ErrNotFound
	}
	for _, p := range f.posts {
		if p.ID == objID {
			clone := *p
			return &clone, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakePostRepo) GetPostBySlug(_ context.Context, slug string) (*models.Post, error) {
	for _, p := range f.posts {
		if p.Slug == slug {
			clone := *p
			return &clone, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakePostRepo) matches(p *models.Post, filter bson.M) bool {
	if category, ok := filter["category"].(string); ok && p.Category != category {
		return false
	}
	if userID, ok := filter["user"].(primitive.ObjectID); ok && p.UserID != userID {
		return false
	}
	if featured, ok := filter["is_featured"].(bool); ok && p.IsFeatured != featured {
		return false
	}
	if regex, ok := filter["title"].(primitive.Regex); ok {
		if !strings.Contains(strings.ToLower(p.Title), strings.ToLower(regex.Pattern)) {
			return false
		}
	}
	if window, ok := filter["created_at"].(bson.M); ok {
		if cutoff, ok := window["$gte"].(time.Time); ok && p.CreatedAt.Before(cutoff) {
			return false
		}
	}
	return true
}

func (f *fakePostRepo) filtered(filter bson.M) []models.Post {
	var out []models.Post
	for _, p := range f.posts {
		if f.matches(p, filter) {
			out = append(out, *p)
		}
	}
	return out
}

func (f *fakePostRepo) FindPosts(_ context.Context, filter bson.M, _ bson.D, skip, limit int64) ([]models.Post, error) {
	matched := f.filtered(filter)
	if skip >= int64(len(matched)) {
		return nil, nil
	}
	end := skip + limit
	if end > int64(len(matched)) {
		end = int64(len(matched))
	}
	return matched[skip:end], nil
}

func (f *fakePostRepo) CountPosts(_ context.Context, filter bson.M) (int64, error) {
	return int64(len(f.filtered(filter))), nil
}

func (f *fakePostRepo) FindPostsByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Post, error) {
	var out []models.Post
	for _, id := range ids {
		for _, p := range f.posts {
			if p.ID == id {
				out = append(out, *p)
			}
		}
	}
	return out, nil
}

func (f *fakePostRepo) SlugExists(_ context.Context, slug string) (bool, error) {
	for _, p := range f.posts {
		if p.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePostRepo) DeletePost(_ context.Context, id primitive.ObjectID) error {
	for i, p := range f.posts {
		if p.ID == id {
			f.posts = append(f.posts[:i], f.posts[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (f *fakePostRepo) DeletePostsByIDs(_ context.Context, ids []primitive.ObjectID) (int64, error) {
	var removed int64
	for _, id := range ids {
		if f.DeletePost(context.Background(), id) == nil {
			removed++
		}
	}
	return removed, nil
}

func (f *fakePostRepo) DeletePostsByUser(_ context.Context, userID primitive.ObjectID) (int64, error) {
	var removed int64
	kept := f.posts[:0]
	for _, p := range f.posts {
		if p.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	f.posts = kept
	return removed, nil
}

func (f *fakePostRepo) SetFeatured(_ context.Context, id primitive.ObjectID, featured bool) error {
	for _, p := range f.posts {
		if p.ID == id {
			p.IsFeatured = featured
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (f *fakePostRepo) IncrementVisit(_ context.Context, slug string) error {
	for _, p := range f.posts {
		if p.Slug == slug {
			p.Visit++
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (f *fakePostRepo) ListOwnerRefs(context.Context) ([]models.PostOwnerRef, error) {
	refs := make([]models.PostOwnerRef, 0, len(f.posts))
	for _, p := range f.posts {
		refs = append(refs, models.PostOwnerRef{ID: p.ID, UserID: p.UserID})
	}
	return refs, nil
}

// fakeCommentRepo is an in-memory CommentRepository
type fakeCommentRepo struct {
	comments []*models.Comment
}

func (f *fakeCommentRepo) CreateComment(_ context.Context, comment *models.Comment) error {
	comment.ID = primitive.NewObjectID()
	comment.CreatedAt = time.Now()
	f.comments = append(f.comments, comment)
	return nil
}

func (f *fakeCommentRepo) GetCommentByID(_ context.Context, id string) (*models.Comment, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repositories.ErrNotFound
	}
	for _, cm := range f.comments {
		if cm.ID == objID {
			clone := *cm
			return &clone, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeCommentRepo) FindCommentsByPost(_ context.Context, postID primitive.ObjectID) ([]models.Comment, error) {
	var out []models.Comment
	for i := len(f.comments) - 1; i >= 0; i-- {
		if f.comments[i].PostID == postID {
			out = append(out, *f.comments[i])
		}
	}
	return out, nil
}

func (f *fakeCommentRepo) DeleteComment(_ context.Context, id primitive.ObjectID) error {
	for i, cm := range f.comments {
		if cm.ID == id {
			f.comments = append(f.comments[:i], f.comments[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (f *fakeCommentRepo) DeleteCommentsByUser(_ context.Context, userID primitive.ObjectID) (int64, error) {
	var removed int64
	kept := f.comments[:0]
	for _, cm := range f.comments {
		if cm.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, cm)
	}
	f.comments = kept
	return removed, nil
}

func (f *fakeCommentRepo) DeleteCommentsByPost(_ context.Context, postID primitive.ObjectID) (int64, error) {
	var removed int64
	kept := f.comments[:0]
	for _, cm := range f.comments {
		if cm.PostID == postID {
			removed++
			continue
		}
		kept = append(kept, cm)
	}
	f.comments = kept
	return removed, nil
}

// env bundles the wired handler dependencies around the in-memory repos
type env struct {
	users     *fakeUserRepo
	posts     *fakePostRepo
	comments  *fakeCommentRepo
	registrar *identity.Registrar
	planner   *feed.Planner
	assembler *feed.Assembler
	echo      *echo.Echo
}

func newEnv(t *testing.T) *env {
	t.Helper()
	users := &fakeUserRepo{}
	posts := &fakePostRepo{}
	comments := &fakeCommentRepo{}

	e := echo.New()
	e.Validator = validators.NewValidator()

	return &env{
		users:     users,
		posts:     posts,
		comments:  comments,
		registrar: identity.NewRegistrar(users),
		planner:   feed.NewPlanner(users, feed.DefaultLimit),
		assembler: feed.NewAssembler(posts, users, identity.NewNormalizer(users)),
		echo:      e,
	}
}

func (e *env) postHandler() *PostHandler {
	return NewPostHandler(e.posts, e.users, e.comments, e.registrar, e.planner, e.assembler, nil)
}

func (e *env) seedUser(t *testing.T, subjectID, username string) *models.User {
	t.Helper()
	user := &models.User{SubjectID: subjectID, Username: username, Email: username + "@example.com"}
	if err := e.users.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return user
}

func (e *env) seedPost(t *testing.T, owner *models.User, slug, title string) *models.Post {
	t.Helper()
	post := &models.Post{UserID: owner.ID, Slug: slug, Title: title, Content: "body"}
	if err := e.posts.CreatePost(context.Background(), post); err != nil {
		t.Fatalf("seed post %s: %v", slug, err)
	}
	return post
}

// newContext builds an echo context for the request. Claims mimic what the
// auth middleware stores after token verification.
func (e *env) newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.echo.NewContext(req, rec), rec
}

func asUser(c echo.Context, user *models.User, role string) {
	c.Set(middleware.ContextSubjectID, user.SubjectID)
	c.Set(middleware.ContextRole, role)
	c.Set(middleware.ContextEmail, user.Email)
	c.Set(middleware.ContextName, user.Username)
}

// httpStatus unwraps the echo error a handler returned, or falls back to the
// recorder's code for success paths
func httpStatus(err error, rec *httptest.ResponseRecorder) int {
	if err == nil {
		return rec.Code
	}
	if httpErr, ok := err.(*echo.HTTPError); ok {
		return httpErr.Code
	}
	return http.StatusInternalServerError
}
