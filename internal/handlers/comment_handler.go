package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/inkwellhq/inkwell-backend/internal/authz"
	"github.com/inkwellhq/inkwell-backend/internal/feed"
	"github.com/inkwellhq/inkwell-backend/internal/identity"
	"github.com/inkwellhq/inkwell-backend/internal/models"
	"github.com/inkwellhq/inkwell-backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	comments   repositories.CommentRepository
	posts      repositories.PostRepository
	users      repositories.UserRepository
	registrar  *identity.Registrar
	normalizer feed.NameNormalizer
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(comments repositories.CommentRepository, posts repositories.PostRepository,
	users repositories.UserRepository, registrar *identity.Registrar,
	normalizer feed.NameNormalizer) *CommentHandler {
	return &CommentHandler{
		comments:   comments,
		posts:      posts,
		users:      users,
		registrar:  registrar,
		normalizer: normalizer,
	}
}

// RegisterPublicRoutes registers the comment routes that require no caller identity
func (h *CommentHandler) RegisterPublicRoutes(g *echo.Group) {
	g.GET("/:postId", h.GetPostComments)
}

// RegisterProtectedRoutes registers the comment routes that require a verified caller
func (h *CommentHandler) RegisterProtectedRoutes(g *echo.Group) {
	g.POST("/:postId", h.AddComment)
	g.DELETE("/:id", h.DeleteComment)
}

// GetPostComments lists a post's comments, newest first, owners joined and
// normalized. Comments with unresolved owners are dropped, not fatal.
func (h *CommentHandler) GetPostComments(c echo.Context) error {
	postID, err := primitive.ObjectIDFromHex(c.Param("postId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Post not found!")
	}

	ctx := c.Request().Context()
	comments, err := h.comments.FindCommentsByPost(ctx, postID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	items := make([]models.Comment, 0, len(comments))
	for _, comment := range comments {
		owner, err := h.users.GetUserByID(ctx, comment.UserID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				continue
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if _, _, err := h.normalizer.Normalize(ctx, owner); err != nil {
			log.Printf("normalize username for user %s: %v", owner.ID.Hex(), err)
			continue
		}
		profile := owner.Public()
		comment.User = &profile
		items = append(items, comment)
	}

	return c.JSON(http.StatusOK, items)
}

// AddComment creates a comment on an existing post
func (h *CommentHandler) AddComment(c echo.Context) error {
	actor, user, err := resolveActor(c, h.registrar)
	if err != nil {
		return err
	}
	if !actor.Authenticated() {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated!")
	}

	var req models.CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	post, err := h.posts.GetPostByID(ctx, c.Param("postId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Post not found!")
	}

	comment := &models.Comment{
		UserID: user.ID,
		PostID: post.ID,
		Desc:   req.Desc,
	}
	if err := h.comments.CreateComment(ctx, comment); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	profile := user.Public()
	comment.User = &profile
	return c.JSON(http.StatusCreated, comment)
}

// DeleteComment deletes a comment: owners may delete their own, admins any
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	actor, _, err := resolveActor(c, h.registrar)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	comment, err := h.comments.GetCommentByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Comment not found!")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := authz.CanModify(actor, comment.UserID); err != nil {
		return authzStatus(err)
	}

	if err := h.comments.DeleteComment(ctx, comment.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Comment deleted"})
}
