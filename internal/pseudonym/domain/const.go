// Package domain defines the core pseudonymization domain model: session-scoped,
// encrypted mappings between sensitive plaintext values and synthetic pseudonyms.
package domain

import (
	"errors"
)

// Category is the sensitive-value class governing pattern matching and pseudonym format.
type Category string

const (
	CategoryName       Category = "name"
	CategoryIdentifier Category = "identifier"
	CategoryAmount     Category = "amount"
	CategoryLocation   Category = "location"
)

// Categories lists all categories in precedence order. When a value matches more
// than one category's pattern, the earliest category in this list claims it.
var Categories = []Category{CategoryName, CategoryIdentifier, CategoryAmount, CategoryLocation}

// Validate checks if the category is valid.
func (c Category) Validate() error {
	switch c {
	case CategoryName, CategoryIdentifier, CategoryAmount, CategoryLocation:
		return nil
	default:
		return errors.New("invalid category")
	}
}

// String returns the string representation of the category.
func (c Category) String() string {
	return string(c)
}
