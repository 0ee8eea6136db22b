package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/inkwellhq/inkwell-backend/internal/authz"
	"github.com/inkwellhq/inkwell-backend/internal/feed"
	"github.com/inkwellhq/inkwell-backend/internal/identity"
	"github.com/inkwellhq/inkwell-backend/internal/models"
	"github.com/inkwellhq/inkwell-backend/internal/repositories"
	"github.com/inkwellhq/inkwell-backend/internal/viewcount"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const featuredPageSize = 4

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	posts     repositories.PostRepository
	users     repositories.UserRepository
	comments  repositories.CommentRepository
	registrar *identity.Registrar
	planner   *feed.Planner
	assembler *feed.Assembler
	views     *viewcount.Counter
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(posts repositories.PostRepository, users repositories.UserRepository,
	comments repositories.CommentRepository, registrar *identity.Registrar,
	planner *feed.Planner, assembler *feed.Assembler, views *viewcount.Counter) *PostHandler {
	return &PostHandler{
		posts:     posts,
		users:     users,
		comments:  comments,
		registrar: registrar,
		planner:   planner,
		assembler: assembler,
		views:     views,
	}
}

// RegisterPublicRoutes registers the post routes that require no caller identity
func (h *PostHandler) RegisterPublicRoutes(g *echo.Group) {
	g.GET("", h.GetPosts)
	g.GET("/featured", h.GetFeaturedPosts)
	g.GET("/user/:username", h.GetPostsByUser)
	g.GET("/:slug", h.GetPost)
}

// RegisterProtectedRoutes registers the post routes that require a verified caller
func (h *PostHandler) RegisterProtectedRoutes(g *echo.Group) {
	g.POST("", h.CreatePost)
	g.DELETE("/:id", h.DeletePost)
	g.PATCH("/feature", h.FeaturePost)
	g.POST("/save", h.SavePost)
	g.POST("/unsave", h.UnsavePost)
	g.GET("/saved/all", h.GetSavedPosts)
}

// GetPosts serves the general feed: filtered, sorted, paginated, owner-joined
func (h *PostHandler) GetPosts(c echo.Context) error {
	params := feed.Params{
		Category: c.QueryParam("cat"),
		Search:   c.QueryParam("search"),
		Author:   c.QueryParam("author"),
		Featured: c.QueryParam("featured") != "",
		Sort:     c.QueryParam("sort"),
		Page:     intQueryParam(c, "page"),
		Limit:    intQueryParam(c, "limit"),
	}

	plan, err := h.planner.Plan(c.Request().Context(), params)
	if err != nil {
		if errors.Is(err, feed.ErrAuthorNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "No post found!")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	posts, hasMore, err := h.assembler.Assemble(c.Request().Context(), plan)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"posts": posts, "has_more": hasMore})
}

// GetFeaturedPosts serves the latest featured posts
func (h *PostHandler) GetFeaturedPosts(c echo.Context) error {
	ctx := c.Request().Context()
	posts, err := h.posts.FindPosts(ctx,
		bson.M{"is_featured": true},
		bson.D{{Key: "created_at", Value: -1}},
		0, featuredPageSize)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	items, err := h.assembler.AssembleOwned(ctx, posts)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"featured_posts": items})
}

// GetPostsByUser serves a single author's feed plus a profile summary
func (h *PostHandler) GetPostsByUser(c echo.Context) error {
	ctx := c.Request().Context()
	username := c.Param("username")

	params := feed.Params{
		Author: username,
		Page:   intQueryParam(c, "page"),
		Limit:  intQueryParam(c, "limit"),
	}
	if params.Limit < 1 {
		params.Limit = feed.DefaultUserLimit
	}

	plan, err := h.planner.Plan(ctx, params)
	if err != nil {
		if errors.Is(err, feed.ErrAuthorNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	posts, hasMore, err := h.assembler.Assemble(ctx, plan)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	total, err := h.posts.CountPosts(ctx, plan.Filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	user, err := h.users.GetUserByUsername(ctx, username)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"posts":       posts,
		"has_more":    hasMore,
		"total_posts": total,
		"user":        user.Public(),
	})
}

// GetPost serves a single post by slug and counts the view
func (h *PostHandler) GetPost(c echo.Context) error {
	ctx := c.Request().Context()
	slug := c.Param("slug")

	post, err := h.posts.GetPostBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found!")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	items, err := h.assembler.AssembleOwned(ctx, []models.Post{*post})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if len(items) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "Post author not found!")
	}

	if h.views.ShouldCount(ctx, slug, c.RealIP()) {
		if err := h.posts.IncrementVisit(ctx, slug); err != nil {
			log.Printf("increment visit for %s: %v", slug, err)
		}
	}

	return c.JSON(http.StatusOK, items[0])
}

// CreatePost creates a new post with a collision-resolved slug
func (h *PostHandler) CreatePost(c echo.Context) error {
	actor, user, err := resolveActor(c, h.registrar)
	if err != nil {
		return err
	}
	if !actor.Authenticated() {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated!")
	}

	var req models.CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	base := slugify(req.Title)
	candidate := base
	counter := 2
	for {
		taken, err := h.posts.SlugExists(ctx, candidate)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if !taken {
			break
		}
		candidate = fmt.Sprintf("%s-%d", base, counter)
		counter++
	}

	for {
		post := &models.Post{
			UserID:   user.ID,
			Slug:     candidate,
			Title:    req.Title,
			Desc:     req.Desc,
			Content:  req.Content,
			Category: req.Category,
			Img:      req.Img,
		}
		err = h.posts.CreatePost(ctx, post)
		if err == nil {
			return c.JSON(http.StatusCreated, post)
		}
		// The unique index on slug arbitrates concurrent creates; a lost
		// race just moves on to the next suffix.
		if !errors.Is(err, repositories.ErrDuplicate) {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		candidate = fmt.Sprintf("%s-%d", base, counter)
		counter++
	}
}

// DeletePost deletes a post: owners may delete their own, admins any
func (h *PostHandler) DeletePost(c echo.Context) error {
	actor, _, err := resolveActor(c, h.registrar)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	post, err := h.posts.GetPostByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found!")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := authz.CanModify(actor, post.UserID); err != nil {
		return authzStatus(err)
	}

	if err := h.posts.DeletePost(ctx, post.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if _, err := h.comments.DeleteCommentsByPost(ctx, post.ID); err != nil {
		log.Printf("cascade comments of post %s: %v", post.ID.Hex(), err)
	}
	return c.JSON(http.StatusOK, "Post has been deleted")
}

// FeaturePost toggles the featured flag. Admin only, even for the owner.
func (h *PostHandler) FeaturePost(c echo.Context) error {
	actor, _, err := resolveActor(c, h.registrar)
	if err != nil {
		return err
	}
	if err := authz.CanFeature(actor); err != nil {
		return authzStatus(err)
	}

	var req models.FeaturePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	post, err := h.posts.GetPostByID(ctx, req.PostID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found!")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.posts.SetFeatured(ctx, post.ID, !post.IsFeatured); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	post.IsFeatured = !post.IsFeatured
	return c.JSON(http.StatusOK, post)
}

// SavePost adds a post to the caller's saved set; saving twice is a conflict
func (h *PostHandler) SavePost(c echo.Context) error {
	actor, user, err := resolveActor(c, h.registrar)
	if err != nil {
		return err
	}
	if !actor.Authenticated() {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated!")
	}

	var req models.SavePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if _, err := h.posts.GetPostByID(ctx, req.PostID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Post not found!")
	}

	if err := h.users.SavePost(ctx, user.ID, req.PostID); err != nil {
		if errors.Is(err, repositories.ErrAlreadySaved) {
			return echo.NewHTTPError(http.StatusConflict, "Post is already saved!")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"saved": true})
}

// UnsavePost removes a post from the caller's saved set; removing an absent
// id is a no-op
func (h *PostHandler) UnsavePost(c echo.Context) error {
	actor, user, err := resolveActor(c, h.registrar)
	if err != nil {
		return err
	}
	if !actor.Authenticated() {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated!")
	}

	var req models.SavePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	if _, err := h.posts.GetPostByID(ctx, req.PostID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Post not found!")
	}

	if err := h.users.UnsavePost(ctx, user.ID, req.PostID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"saved": false})
}

// GetSavedPosts lists the caller's saved posts, newest first
func (h *PostHandler) GetSavedPosts(c echo.Context) error {
	actor, user, err := resolveActor(c, h.registrar)
	if err != nil {
		return err
	}
	if !actor.Authenticated() {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated!")
	}

	ids := make([]primitive.ObjectID, 0, len(user.SavedPosts))
	for _, hex := range user.SavedPosts {
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	ctx := c.Request().Context()
	posts, err := h.posts.FindPostsByIDs(ctx, ids)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	items, err := h.assembler.AssembleOwned(ctx, posts)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"saved_posts": items})
}

// slugify derives a URL slug from a title: lowercased, spaces to dashes
func slugify(title string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(title)), " ", "-")
}

func intQueryParam(c echo.Context, name string) int {
	value, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return value
}
