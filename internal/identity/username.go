// Package identity keeps the user/content graph's display names valid and
// unique: a validity predicate, a collision-free name allocator, a repair
// pass (normalizer) and first-touch user provisioning (registrar).
package identity

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Placeholder sentinels used elsewhere in the system as defaults. A display
// name equal to any of these is considered invalid.
const (
	placeholderUnnamed = "unnamed_user"
	placeholderUnknown = "Unknown User"
	placeholderNoEmail = "no-email"
)

const fallbackPrefix = "user_"

const tokenAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
const tokenLength = 8

// ValidUsername reports whether a display name is acceptable: non-empty
// after trimming, free of '@', and none of the placeholder sentinels.
func ValidUsername(name string) bool {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return false
	}
	if strings.Contains(name, "@") {
		return false
	}
	switch name {
	case placeholderUnnamed, placeholderUnknown, placeholderNoEmail:
		return false
	}
	return true
}

// DeriveCandidate produces a replacement display name: the local part of the
// contact address when one is present and well-formed, otherwise a random
// alphanumeric token behind a fixed prefix.
func DeriveCandidate(email string) (string, error) {
	if email != "" && email != placeholderNoEmail && strings.Contains(email, "@") {
		local := email[:strings.Index(email, "@")]
		if ValidUsername(local) {
			return local, nil
		}
	}

	token, err := gonanoid.Generate(tokenAlphabet, tokenLength)
	if err != nil {
		return "", fmt.Errorf("generate name token: %w", err)
	}
	return fallbackPrefix + token, nil
}
