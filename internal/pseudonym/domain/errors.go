package domain

import (
	"github.com/auditbridge/pseudonym/internal/errors"
)

var (
	// ErrNoMappingsForSession indicates the session has no stored mappings. The message
	// mentions the retention window so callers can distinguish "expired" from "never
	// pseudonymized".
	ErrNoMappingsForSession = errors.Wrap(
		errors.ErrNotFound,
		"no mappings found for session: mappings are deleted after the retention window expires",
	)

	// ErrSessionIDRequired indicates the session identifier is missing or blank.
	ErrSessionIDRequired = errors.Wrap(errors.ErrInvalidInput, "session_id is required")

	// ErrFindingsRequired indicates the findings list is missing or empty.
	ErrFindingsRequired = errors.Wrap(errors.ErrInvalidInput, "findings must be a non-empty list")

	// ErrPseudonymConflict indicates a concurrent call created the same pseudonym first.
	ErrPseudonymConflict = errors.Wrap(errors.ErrConflict, "pseudonym already exists for session and category")

	// ErrBatchSizeRequired indicates the cleanup batch size is zero or negative.
	ErrBatchSizeRequired = errors.Wrap(errors.ErrInvalidInput, "batch size must be greater than zero")
)
