package handlers

import (
	"errors"
	"net/http"

	"github.com/inkwellhq/inkwell-backend/internal/authz"
	"github.com/inkwellhq/inkwell-backend/internal/identity"
	"github.com/inkwellhq/inkwell-backend/internal/middleware"
	"github.com/inkwellhq/inkwell-backend/internal/models"
	"github.com/labstack/echo/v4"
)

// resolveActor maps the verified token claims on the context to a local user
// and an authorization actor. The user record is created on first touch.
// Anonymous callers get a zero actor and a nil user.
func resolveActor(c echo.Context, registrar *identity.Registrar) (authz.Actor, *models.User, error) {
	subjectID := middleware.SubjectID(c)
	if subjectID == "" {
		return authz.Actor{}, nil, nil
	}

	user, err := registrar.Ensure(c.Request().Context(), subjectID,
		middleware.Email(c), middleware.DisplayName(c), middleware.Picture(c))
	if err != nil {
		return authz.Actor{}, nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return authz.Actor{
		UserID:    user.ID,
		SubjectID: subjectID,
		Role:      middleware.Role(c),
	}, user, nil
}

// authzStatus maps a policy denial to the HTTP status and message the
// transport exposes
func authzStatus(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, authz.ErrNotAuthenticated):
		return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	case errors.Is(err, authz.ErrNotOwner):
		return echo.NewHTTPError(http.StatusForbidden, "You can act only on your own records")
	case errors.Is(err, authz.ErrNotAdmin):
		return echo.NewHTTPError(http.StatusForbidden, "Admin role required")
	default:
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	}
}
