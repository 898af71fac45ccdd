package validation

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// MaxTagLength bounds a single tag.
const MaxTagLength = 128

// TagInput accepts either a JSON string or a JSON array of strings.
type TagInput []string

// UnmarshalJSON decodes a string, an array of strings, or null.
func (t *TagInput) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*t = TagInput{single}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("tags must be a string or an array of strings")
	}
	*t = TagInput(many)
	return nil
}

// NormalizeTags splits every entry on commas, trims, drops empties and
// removes duplicates keeping the first occurrence.
func NormalizeTags(raw []string) []string {
	return normalize(raw, func(r rune) bool { return r == ',' })
}

// NormalizeEditedTags is NormalizeTags but also splits on whitespace.
func NormalizeEditedTags(raw []string) []string {
	return normalize(raw, func(r rune) bool { return r == ',' || unicode.IsSpace(r) })
}

// ValidateTags rejects tags that cannot be stored.
func ValidateTags(tags []string) error {
	for _, tag := range tags {
		if len(tag) > MaxTagLength {
			return fmt.Errorf("tag %q exceeds %d characters", tag[:16]+"...", MaxTagLength)
		}
	}
	return nil
}

func normalize(raw []string, sep func(rune) bool) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, entry := range raw {
		for _, part := range strings.FieldsFunc(entry, sep) {
			tag := strings.TrimSpace(part)
			if tag == "" {
				continue
			}
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	return out
}
