package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/inkwellhq/inkwell-backend/internal/feed"
	"github.com/inkwellhq/inkwell-backend/internal/identity"
	"github.com/inkwellhq/inkwell-backend/internal/models"
	"github.com/inkwellhq/inkwell-backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
)

const profilePostLimit = 10

// UserHandler handles HTTP requests related to user profiles
type UserHandler struct {
	users      repositories.UserRepository
	posts      repositories.PostRepository
	registrar  *identity.Registrar
	normalizer feed.NameNormalizer
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users repositories.UserRepository, posts repositories.PostRepository,
	registrar *identity.Registrar, normalizer feed.NameNormalizer) *UserHandler {
	return &UserHandler{users: users, posts: posts, registrar: registrar, normalizer: normalizer}
}

// RegisterPublicRoutes registers the user routes that require no caller identity
func (h *UserHandler) RegisterPublicRoutes(g *echo.Group) {
	g.GET("/profile/:username", h.GetUserProfile)
}

// RegisterProtectedRoutes registers the user routes that require a verified caller
func (h *UserHandler) RegisterProtectedRoutes(g *echo.Group) {
	g.PUT("/profile", h.UpdateProfile)
	g.GET("", h.ListUsers)
}

// GetUserProfile serves a public profile with the user's recent posts
func (h *UserHandler) GetUserProfile(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := h.users.GetUserByUsername(ctx, c.Param("username"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if _, _, err := h.normalizer.Normalize(ctx, user); err != nil {
		log.Printf("normalize username for user %s: %v", user.ID.Hex(), err)
	}

	posts, err := h.posts.FindPosts(ctx,
		bson.M{"user": user.ID},
		bson.D{{Key: "created_at", Value: -1}},
		0, profilePostLimit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user":       user.Public(),
		"posts":      posts,
		"post_count": len(posts),
	})
}

// UpdateProfile updates the caller's display name and/or avatar. A rename to
// a taken name is a conflict, never silently suffixed.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	actor, user, err := resolveActor(c, h.registrar)
	if err != nil {
		return err
	}
	if !actor.Authenticated() {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	}

	var req models.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.Username == "" && req.Img == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "No valid fields to update")
	}

	ctx := c.Request().Context()
	if req.Username != "" && req.Username != user.Username {
		if !identity.ValidUsername(req.Username) {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid username")
		}
		if err := h.users.SetUsername(ctx, user.ID, req.Username); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return echo.NewHTTPError(http.StatusConflict, "Username already taken")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		user.Username = req.Username
	}

	if req.Img != "" {
		if err := h.users.SetImg(ctx, user.ID, req.Img); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		user.Img = req.Img
	}

	return c.JSON(http.StatusOK, user)
}

// ListUsers lists all users. Admin only.
func (h *UserHandler) ListUsers(c echo.Context) error {
	actor, _, err := resolveActor(c, h.registrar)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return echo.NewHTTPError(http.StatusForbidden, "Admin role required")
	}

	users, err := h.users.ListUsers(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, users)
}
