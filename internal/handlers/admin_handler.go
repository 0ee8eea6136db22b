package handlers

import (
	"log"
	"net/http"

	"github.com/inkwellhq/inkwell-backend/internal/feed"
	"github.com/inkwellhq/inkwell-backend/internal/identity"
	"github.com/inkwellhq/inkwell-backend/internal/integrity"
	"github.com/inkwellhq/inkwell-backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// AdminHandler exposes maintenance operations: bulk username cleanup and an
// explicit integrity sweep trigger
type AdminHandler struct {
	users      repositories.UserRepository
	registrar  *identity.Registrar
	normalizer feed.NameNormalizer
	sweeper    *integrity.Sweeper
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(users repositories.UserRepository, registrar *identity.Registrar,
	normalizer feed.NameNormalizer, sweeper *integrity.Sweeper) *AdminHandler {
	return &AdminHandler{users: users, registrar: registrar, normalizer: normalizer, sweeper: sweeper}
}

// RegisterAdminRoutes registers maintenance routes
func (h *AdminHandler) RegisterAdminRoutes(g *echo.Group) {
	g.POST("/cleanup-usernames", h.CleanupUsernames)
	g.POST("/sweep", h.Sweep)
}

// CleanupUsernames runs the identity normalizer over every user. A failed
// repair is logged and skipped; the pass continues.
func (h *AdminHandler) CleanupUsernames(c echo.Context) error {
	actor, _, err := resolveActor(c, h.registrar)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return echo.NewHTTPError(http.StatusForbidden, "Admin role required")
	}

	ctx := c.Request().Context()
	users, err := h.users.ListUsers(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	updated := 0
	for i := range users {
		_, mutated, err := h.normalizer.Normalize(ctx, &users[i])
		if err != nil {
			log.Printf("cleanup: normalize user %s: %v", users[i].ID.Hex(), err)
			continue
		}
		if mutated {
			updated++
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"updated_count": updated})
}

// Sweep triggers an integrity sweep and reports how many orphaned posts
// were removed
func (h *AdminHandler) Sweep(c echo.Context) error {
	actor, _, err := resolveActor(c, h.registrar)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return echo.NewHTTPError(http.StatusForbidden, "Admin role required")
	}

	removed, err := h.sweeper.Sweep(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"removed": removed})
}
