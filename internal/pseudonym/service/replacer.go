package service

import (
	"sort"
	"strings"
)

// Replacer performs bidirectional substring substitution between plaintext values
// and pseudonyms. Replacement is always literal (no pattern interpretation, so a
// "$5,000" value can never be misread as a regex or template) and longest-match
// first, so a longer sensitive value is never partially destroyed by a rule for
// one of its substrings.
type Replacer struct{}

// NewReplacer creates a new Replacer.
func NewReplacer() *Replacer {
	return &Replacer{}
}

// ApplyForward replaces every occurrence of each plaintext key in text with its
// pseudonym. Keys are applied in descending length order: with both "John" and
// "John Doe" mapped, "John Doe was here" substitutes the full "John Doe" value.
func (r *Replacer) ApplyForward(text string, mappings map[string]string) string {
	for _, key := range keysByLengthDesc(mappings) {
		text = strings.ReplaceAll(text, key, mappings[key])
	}
	return text
}

// ApplyReverse restores plaintext values in an arbitrary tree of strings, lists,
// and key-value maps. Strings are substituted with the same literal longest-first
// rule (so Person_A1 is never corrupted by a rule for Person_A); list elements and
// map values are processed recursively; all other leaf types pass through unchanged.
func (r *Replacer) ApplyReverse(value any, reverseMappings map[string]string) any {
	switch v := value.(type) {
	case string:
		for _, key := range keysByLengthDesc(reverseMappings) {
			v = strings.ReplaceAll(v, key, reverseMappings[key])
		}
		return v
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = r.ApplyReverse(item, reverseMappings)
		}
		return result
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, item := range v {
			result[key] = r.ApplyReverse(item, reverseMappings)
		}
		return result
	case []map[string]any:
		result := make([]map[string]any, len(v))
		for i, item := range v {
			result[i] = r.ApplyReverse(item, reverseMappings).(map[string]any)
		}
		return result
	default:
		return value
	}
}

// keysByLengthDesc returns the map keys sorted by descending length, with a
// lexicographic tie-break for deterministic ordering.
func keysByLengthDesc(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}
