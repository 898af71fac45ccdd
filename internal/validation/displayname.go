package validation

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

var displayNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9-_]{3,23}$`)

// ValidateDisplayName checks that name starts with a letter and is 4-24
// characters of letters, digits, hyphens and underscores.
func ValidateDisplayName(name string) error {
	if name == "" {
		return fmt.Errorf("display name is required")
	}
	if !displayNameRegex.MatchString(name) {
		return fmt.Errorf("display name must be 4-24 characters, start with a letter, and contain only letters, numbers, hyphens, and underscores")
	}
	return nil
}

// DisplayNameKey returns the case-folded form used for uniqueness checks.
func DisplayNameKey(name string) string {
	// Casers keep state, so one is built per call.
	return cases.Fold().String(strings.TrimSpace(name))
}

// SameDisplayName reports whether a and b collide case-insensitively.
func SameDisplayName(a, b string) bool {
	return DisplayNameKey(a) == DisplayNameKey(b)
}

// PushDisplayNameHistory puts previous at the front of history, drops
// entries colliding with current or with an earlier entry, and keeps at
// most limit names. It returns the new history and the names that fell out.
func PushDisplayNameHistory(history []string, previous, current string, limit int) (kept, dropped []string) {
	seen := map[string]struct{}{DisplayNameKey(current): {}}
	candidates := append([]string{previous}, history...)

	kept = make([]string, 0, limit)
	for _, name := range candidates {
		if name == "" {
			continue
		}
		key := DisplayNameKey(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if len(kept) < limit {
			kept = append(kept, name)
		} else {
			dropped = append(dropped, name)
		}
	}
	return kept, dropped
}
