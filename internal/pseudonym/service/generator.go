// Package service implements the pure pseudonymization services: sensitive-value
// extraction, pseudonym label generation, and bidirectional text substitution.
package service

import (
	"fmt"

	pseudonymDomain "github.com/auditbridge/pseudonym/internal/pseudonym/domain"
)

// GeneratePseudonym derives a stable label for a (category, ordinal) pair.
// Deterministic and pure: the same inputs always yield the same label. The caller
// is responsible for assigning ordinals consistently.
//
// Formats:
//   - name:       Person_A .. Person_Z, then Person_A1, Person_B1, ... (suffix = index/26)
//   - identifier: ID_001, ID_002, ...
//   - amount:     Amount_001, Amount_002, ...
//   - location:   Location_001, Location_002, ...
func GeneratePseudonym(category pseudonymDomain.Category, index int) string {
	switch category {
	case pseudonymDomain.CategoryName:
		letter := rune('A' + index%26)
		overflow := index / 26
		if overflow > 0 {
			return fmt.Sprintf("Person_%c%d", letter, overflow)
		}
		return fmt.Sprintf("Person_%c", letter)
	case pseudonymDomain.CategoryIdentifier:
		return fmt.Sprintf("ID_%03d", index+1)
	case pseudonymDomain.CategoryAmount:
		return fmt.Sprintf("Amount_%03d", index+1)
	case pseudonymDomain.CategoryLocation:
		return fmt.Sprintf("Location_%03d", index+1)
	default:
		return fmt.Sprintf("Value_%03d", index+1)
	}
}
