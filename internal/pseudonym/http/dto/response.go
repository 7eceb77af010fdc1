package dto

import (
	pseudonymUseCase "github.com/auditbridge/pseudonym/internal/pseudonym/usecase"
)

// PseudonymizeResponse returns the protected findings and mapping counters.
type PseudonymizeResponse struct {
	SessionID       string           `json:"session_id"`
	Findings        []map[string]any `json:"pseudonymized_findings"`
	MappingsCreated int              `json:"mappings_created"`
	MappingsReused  int              `json:"mappings_reused"`
}

// MapResultToPseudonymizeResponse maps a use case result to a PseudonymizeResponse DTO.
func MapResultToPseudonymizeResponse(
	sessionID string,
	result *pseudonymUseCase.PseudonymizeResult,
) PseudonymizeResponse {
	return PseudonymizeResponse{
		SessionID:       sessionID,
		Findings:        result.Findings,
		MappingsCreated: result.MappingsCreated,
		MappingsReused:  result.MappingsReused,
	}
}

// DepseudonymizeResponse returns the restored data and restoration counters.
type DepseudonymizeResponse struct {
	SessionID          string `json:"session_id"`
	Data               any    `json:"depseudonymized_data"`
	MappingsApplied    int    `json:"mappings_applied"`
	DecryptionFailures int    `json:"decryption_failures"`
}

// MapResultToDepseudonymizeResponse maps a use case result to a DepseudonymizeResponse DTO.
func MapResultToDepseudonymizeResponse(
	sessionID string,
	result *pseudonymUseCase.DepseudonymizeResult,
) DepseudonymizeResponse {
	return DepseudonymizeResponse{
		SessionID:          sessionID,
		Data:               result.Data,
		MappingsApplied:    result.MappingsApplied,
		DecryptionFailures: result.DecryptionFailures,
	}
}
