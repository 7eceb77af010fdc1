package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/auditbridge/pseudonym/internal/app"
	"github.com/auditbridge/pseudonym/internal/config"
	pseudonymUsecase "github.com/auditbridge/pseudonym/internal/pseudonym/usecase"
)

// RunCleanExpiredMappings deletes pseudonym mappings past their retention window.
// Supports dry-run mode to preview the deletion count and both text and JSON
// output formats. A batchSize of zero falls back to CLEANUP_BATCH_SIZE.
//
// Requirements: database must be migrated and accessible.
func RunCleanExpiredMappings(ctx context.Context, dryRun bool, batchSize int, format string) error {
	cfg := config.Load()
	if batchSize == 0 {
		batchSize = cfg.CleanupBatchSize
	}

	container := app.NewContainer(cfg)
	logger := container.Logger()

	defer closeContainer(container, logger)

	useCase, err := container.PseudonymUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize pseudonym use case: %w", err)
	}

	return cleanExpiredMappings(ctx, useCase, logger, os.Stdout, batchSize, dryRun, format)
}

// cleanExpiredMappings runs the sweep against the given use case and writes the
// outcome to out. Split from RunCleanExpiredMappings so it can be tested without
// a database.
func cleanExpiredMappings(
	ctx context.Context,
	useCase pseudonymUsecase.PseudonymUseCase,
	logger *slog.Logger,
	out io.Writer,
	batchSize int,
	dryRun bool,
	format string,
) error {
	if batchSize <= 0 {
		return fmt.Errorf("batch size must be a positive number, got: %d", batchSize)
	}
	if format != "text" && format != "json" {
		return fmt.Errorf("unsupported output format: %s", format)
	}

	logger.Info("cleaning expired mappings",
		slog.Int("batch_size", batchSize),
		slog.Bool("dry_run", dryRun),
	)

	result, err := useCase.CleanupExpired(ctx, batchSize, dryRun)
	if err != nil {
		return fmt.Errorf("failed to cleanup expired mappings: %w", err)
	}

	if format == "json" {
		outputCleanExpiredJSON(out, result)
	} else {
		outputCleanExpiredText(out, result)
	}

	logger.Info("cleanup completed",
		slog.Int64("deleted", result.Deleted),
		slog.Int("sessions", result.Sessions),
		slog.Bool("dry_run", result.DryRun),
	)

	return nil
}

// outputCleanExpiredText outputs the result in human-readable text format.
func outputCleanExpiredText(out io.Writer, result *pseudonymUsecase.CleanupResult) {
	if result.DryRun {
		fmt.Fprintf(out, "Dry-run mode: would delete %d expired mapping(s)\n", result.Deleted)
	} else {
		fmt.Fprintf(out, "Successfully deleted %d expired mapping(s) across %d session(s)\n",
			result.Deleted, result.Sessions)
	}
}

// outputCleanExpiredJSON outputs the result in JSON format for machine consumption.
func outputCleanExpiredJSON(out io.Writer, result *pseudonymUsecase.CleanupResult) {
	payload := map[string]any{
		"deleted":  result.Deleted,
		"sessions": result.Sessions,
		"dry_run":  result.DryRun,
	}

	jsonBytes, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal JSON: %v\n", err)
		return
	}

	fmt.Fprintln(out, string(jsonBytes))
}
