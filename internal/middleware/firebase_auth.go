package middleware

import (
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/inkwellhq/inkwell-backend/internal/authz"
	"github.com/labstack/echo/v4"
)

// Context keys set by the auth middleware
const (
	ContextSubjectID = "subjectID"
	ContextRole      = "role"
	ContextEmail     = "email"
	ContextName      = "displayName"
	ContextPicture   = "picture"
)

// FirebaseAuth creates an Echo middleware that requires a verified Firebase
// ID token. The subject UID, role claim and profile claims are stored on the
// context for handlers.
func FirebaseAuth(authClient *auth.Client) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := verifyBearer(c, authClient)
			if err != nil {
				return err
			}
			setClaims(c, token)
			return next(c)
		}
	}
}

// OptionalFirebaseAuth verifies a bearer token when one is present but lets
// anonymous requests through. Used on read endpoints that personalize for
// signed-in callers without requiring them.
func OptionalFirebaseAuth(authClient *auth.Client) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") == "" {
				return next(c)
			}
			token, err := verifyBearer(c, authClient)
			if err != nil {
				return err
			}
			setClaims(c, token)
			return next(c)
		}
	}
}

func verifyBearer(c echo.Context, authClient *auth.Client) (*auth.Token, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Authorization header is missing")
	}

	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Authorization header must be in Bearer format")
	}

	token, err := authClient.VerifyIDToken(c.Request().Context(), tokenParts[1])
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired ID token")
	}
	return token, nil
}

func setClaims(c echo.Context, token *auth.Token) {
	c.Set(ContextSubjectID, token.UID)

	role := authz.RoleUser
	if claimed, ok := token.Claims["role"].(string); ok && claimed != "" {
		role = claimed
	}
	c.Set(ContextRole, role)

	if email, ok := token.Claims["email"].(string); ok {
		c.Set(ContextEmail, email)
	}
	if name, ok := token.Claims["name"].(string); ok {
		c.Set(ContextName, name)
	}
	if picture, ok := token.Claims["picture"].(string); ok {
		c.Set(ContextPicture, picture)
	}
}

// SubjectID returns the verified subject id on the context, empty for
// anonymous callers
func SubjectID(c echo.Context) string {
	if uid, ok := c.Get(ContextSubjectID).(string); ok {
		return uid
	}
	return ""
}

// Role returns the caller's role claim, defaulting to the non-admin role
func Role(c echo.Context) string {
	if role, ok := c.Get(ContextRole).(string); ok && role != "" {
		return role
	}
	return authz.RoleUser
}

// Email returns the caller's email claim if present
func Email(c echo.Context) string {
	if email, ok := c.Get(ContextEmail).(string); ok {
		return email
	}
	return ""
}

// DisplayName returns the caller's display name claim if present
func DisplayName(c echo.Context) string {
	if name, ok := c.Get(ContextName).(string); ok {
		return name
	}
	return ""
}

// Picture returns the caller's avatar claim if present
func Picture(c echo.Context) string {
	if picture, ok := c.Get(ContextPicture).(string); ok {
		return picture
	}
	return ""
}
