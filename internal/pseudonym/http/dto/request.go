// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/auditbridge/pseudonym/internal/validation"
)

// PseudonymizeRequest contains a batch of audit-finding records to protect and
// the session the resulting mappings belong to.
type PseudonymizeRequest struct {
	SessionID string           `json:"session_id"`
	Findings  []map[string]any `json:"findings"`
}

// Validate checks if the pseudonymize request is valid.
func (r *PseudonymizeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.SessionID,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 255),
		),
		validation.Field(&r.Findings,
			validation.Required,
		),
	)
}

// DepseudonymizeRequest contains an arbitrary value (string, list, or object)
// whose pseudonyms should be restored to their original values.
type DepseudonymizeRequest struct {
	SessionID string `json:"session_id"`
	Data      any    `json:"data"`
}

// Validate checks if the depseudonymize request is valid. Data is deliberately
// unconstrained: false, 0, "" and null are all restorable payloads.
func (r *DepseudonymizeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.SessionID,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 255),
		),
	)
}
