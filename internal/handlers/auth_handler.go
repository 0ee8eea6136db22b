package handlers

import (
	"errors"
	"net/http"

	"github.com/inkwellhq/inkwell-backend/internal/identity"
	"github.com/inkwellhq/inkwell-backend/internal/middleware"
	"github.com/inkwellhq/inkwell-backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// AuthHandler handles first-touch registration and caller introspection
type AuthHandler struct {
	users     repositories.UserRepository
	registrar *identity.Registrar
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(users repositories.UserRepository, registrar *identity.Registrar) *AuthHandler {
	return &AuthHandler{users: users, registrar: registrar}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/register", h.Register)
	g.GET("/me", h.Me)
}

// Register ensures a local user exists for the verified subject. Idempotent:
// an existing user is returned as-is.
func (h *AuthHandler) Register(c echo.Context) error {
	subjectID := middleware.SubjectID(c)
	if subjectID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	}

	user, err := h.registrar.Ensure(c.Request().Context(), subjectID,
		middleware.Email(c), middleware.DisplayName(c), middleware.Picture(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"user": user})
}

// Me returns the caller's local user record
func (h *AuthHandler) Me(c echo.Context) error {
	subjectID := middleware.SubjectID(c)
	if subjectID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	}

	user, err := h.users.GetUserBySubjectID(c.Request().Context(), subjectID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"user": user})
}
