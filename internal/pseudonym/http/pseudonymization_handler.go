// Package http provides HTTP handlers for pseudonymization operations.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/auditbridge/pseudonym/internal/httputil"
	"github.com/auditbridge/pseudonym/internal/pseudonym/http/dto"
	pseudonymUseCase "github.com/auditbridge/pseudonym/internal/pseudonym/usecase"
	customValidation "github.com/auditbridge/pseudonym/internal/validation"
)

// ActorHeader carries the caller identity used for audit attribution.
const ActorHeader = "X-Actor-Id"

// anonymousActor is recorded when the caller does not identify itself.
const anonymousActor = "anonymous"

// PseudonymizationHandler handles HTTP requests for pseudonymization operations.
// Coordinates pseudonymize and depseudonymize with PseudonymUseCase.
type PseudonymizationHandler struct {
	pseudonymUseCase pseudonymUseCase.PseudonymUseCase
	logger           *slog.Logger
}

// NewPseudonymizationHandler creates a new pseudonymization handler with required dependencies.
func NewPseudonymizationHandler(
	useCase pseudonymUseCase.PseudonymUseCase,
	logger *slog.Logger,
) *PseudonymizationHandler {
	return &PseudonymizationHandler{
		pseudonymUseCase: useCase,
		logger:           logger,
	}
}

// PseudonymizeHandler protects a batch of audit-finding records.
// POST /v1/pseudonymization/pseudonymize
// Returns 200 OK with the protected findings and mapping counters.
func (h *PseudonymizationHandler) PseudonymizeHandler(c *gin.Context) {
	var req dto.PseudonymizeRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	result, err := h.pseudonymUseCase.Pseudonymize(
		c.Request.Context(),
		req.SessionID,
		actorID(c),
		req.Findings,
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapResultToPseudonymizeResponse(req.SessionID, result))
}

// DepseudonymizeHandler restores original values in an arbitrary JSON value.
// POST /v1/pseudonymization/depseudonymize
// Returns 200 OK with the restored data, or 404 when the session has no mappings.
func (h *PseudonymizationHandler) DepseudonymizeHandler(c *gin.Context) {
	var req dto.DepseudonymizeRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	result, err := h.pseudonymUseCase.Depseudonymize(
		c.Request.Context(),
		req.SessionID,
		actorID(c),
		req.Data,
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapResultToDepseudonymizeResponse(req.SessionID, result))
}

// actorID resolves the audit actor from the request headers.
func actorID(c *gin.Context) string {
	if actor := c.GetHeader(ActorHeader); actor != "" {
		return actor
	}
	return anonymousActor
}
