package repositories

import "errors"

// Sentinel errors shared by all repositories. Handlers map these to
// protocol-level status; core components branch on them.
var (
	// ErrNotFound is returned when the requested record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a write violates a unique index
	// (username or slug collision)
	ErrDuplicate = errors.New("duplicate key")

	// ErrAlreadySaved is returned when a post id is already present in the
	// user's saved set
	ErrAlreadySaved = errors.New("post already saved")
)
