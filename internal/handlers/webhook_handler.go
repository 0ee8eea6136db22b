package handlers

import (
	"crypto/subtle"
	"errors"
	"log"
	"net/http"

	"github.com/inkwellhq/inkwell-backend/internal/identity"
	"github.com/inkwellhq/inkwell-backend/internal/models"
	"github.com/inkwellhq/inkwell-backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// SecretHeader carries the shared secret the identity provider signs its
// webhook calls with
const SecretHeader = "X-Webhook-Secret"

// WebhookHandler consumes identity-provider lifecycle events
type WebhookHandler struct {
	users     repositories.UserRepository
	posts     repositories.PostRepository
	comments  repositories.CommentRepository
	registrar *identity.Registrar
	secret    string
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(users repositories.UserRepository, posts repositories.PostRepository,
	comments repositories.CommentRepository, registrar *identity.Registrar, secret string) *WebhookHandler {
	return &WebhookHandler{
		users:     users,
		posts:     posts,
		comments:  comments,
		registrar: registrar,
		secret:    secret,
	}
}

// RegisterWebhookRoutes registers the identity event endpoint
func (h *WebhookHandler) RegisterWebhookRoutes(g *echo.Group) {
	g.POST("/identity", h.HandleIdentityEvent)
}

// HandleIdentityEvent processes a created or deleted identity event. A
// deleted event cascades to every post and comment the identity owns.
func (h *WebhookHandler) HandleIdentityEvent(c echo.Context) error {
	if h.secret == "" {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Webhook secret not configured")
	}
	provided := c.Request().Header.Get(SecretHeader)
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) != 1 {
		return echo.NewHTTPError(http.StatusUnauthorized, "Webhook verification failed!")
	}

	var event models.IdentityEvent
	if err := c.Bind(&event); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid event payload")
	}
	if err := c.Validate(&event); err != nil {
		return err
	}

	ctx := c.Request().Context()
	switch event.Type {
	case "created":
		user, err := h.registrar.Ensure(ctx, event.SubjectID, event.Email, event.DisplayName, event.AvatarURL)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		log.Printf("identity created: subject %s as %q", event.SubjectID, user.Username)

	case "deleted":
		user, err := h.users.DeleteUserBySubjectID(ctx, event.SubjectID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				// Already gone; the event is idempotent.
				break
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}

		postsRemoved, err := h.posts.DeletePostsByUser(ctx, user.ID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		commentsRemoved, err := h.comments.DeleteCommentsByUser(ctx, user.ID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		log.Printf("identity deleted: subject %s, cascaded %d posts and %d comments",
			event.SubjectID, postsRemoved, commentsRemoved)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Webhook received"})
}
