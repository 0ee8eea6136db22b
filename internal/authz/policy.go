// Package authz decides whether a caller may act on a content or comment
// record: owner match, or the administrative role. Mutations fail closed.
package authz

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role claims carried by the transport layer
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

var (
	// ErrNotAuthenticated is returned for anonymous callers, checked
	// before any ownership comparison
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNotOwner is returned when a non-admin caller acts on a record
	// they do not own
	ErrNotOwner = errors.New("not owner")

	// ErrNotAdmin is returned when an action requires the administrative
	// role regardless of ownership
	ErrNotAdmin = errors.New("admin role required")
)

// Actor is the authenticated-or-anonymous caller identity. The zero value
// is anonymous.
type Actor struct {
	UserID    primitive.ObjectID
	SubjectID string
	Role      string
}

// Authenticated reports whether the actor carries a verified identity
func (a Actor) Authenticated() bool {
	return a.SubjectID != ""
}

// IsAdmin reports whether the actor holds the administrative role
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanModify allows a mutation on a record owned by ownerID: admins
// unconditionally, everyone else only on their own records.
func CanModify(actor Actor, ownerID primitive.ObjectID) error {
	if !actor.Authenticated() {
		return ErrNotAuthenticated
	}
	if actor.IsAdmin() {
		return nil
	}
	if actor.UserID != ownerID {
		return ErrNotOwner
	}
	return nil
}

// CanFeature allows the feature/unfeature toggle. Admin only: authors may
// never feature their own content.
func CanFeature(actor Actor) error {
	if !actor.Authenticated() {
		return ErrNotAuthenticated
	}
	if !actor.IsAdmin() {
		return ErrNotAdmin
	}
	return nil
}
