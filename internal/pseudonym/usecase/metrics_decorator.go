package usecase

import (
	"context"
	"time"

	"github.com/auditbridge/pseudonym/internal/metrics"
)

const metricsDomain = "pseudonym"

// metricsDecorator wraps a PseudonymUseCase and records operation counts and
// durations for each call.
type metricsDecorator struct {
	next            PseudonymUseCase
	businessMetrics metrics.BusinessMetrics
}

// NewMetricsDecorator wraps the given use case with business metrics recording.
func NewMetricsDecorator(
	next PseudonymUseCase,
	businessMetrics metrics.BusinessMetrics,
) PseudonymUseCase {
	return &metricsDecorator{
		next:            next,
		businessMetrics: businessMetrics,
	}
}

func (d *metricsDecorator) Pseudonymize(
	ctx context.Context,
	sessionID, actorID string,
	findings []map[string]any,
) (*PseudonymizeResult, error) {
	start := time.Now()
	result, err := d.next.Pseudonymize(ctx, sessionID, actorID, findings)
	d.record(ctx, "pseudonymize", start, err)
	return result, err
}

func (d *metricsDecorator) Depseudonymize(
	ctx context.Context,
	sessionID, actorID string,
	data any,
) (*DepseudonymizeResult, error) {
	start := time.Now()
	result, err := d.next.Depseudonymize(ctx, sessionID, actorID, data)
	d.record(ctx, "depseudonymize", start, err)
	return result, err
}

func (d *metricsDecorator) CleanupExpired(
	ctx context.Context,
	batchSize int,
	dryRun bool,
) (*CleanupResult, error) {
	start := time.Now()
	result, err := d.next.CleanupExpired(ctx, batchSize, dryRun)
	d.record(ctx, "cleanup_expired", start, err)
	return result, err
}

func (d *metricsDecorator) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	d.businessMetrics.RecordOperation(ctx, metricsDomain, operation, status)
	d.businessMetrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}
