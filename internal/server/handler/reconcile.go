package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/glitchedstore/farmpanel/internal/domain"
)

// ReconcileRunner defines the methods that the reconcile handler requires
// from the pipeline layer.
type ReconcileRunner interface {
	Run(ctx context.Context) (domain.ReconcileReport, error)
}

// ReconcileHandler exposes a manual trigger for the listing reconciliation
// pass, mainly for debugging pauses that look wrong.
type ReconcileHandler struct {
	runner ReconcileRunner
	logger *slog.Logger
}

// NewReconcileHandler creates a ReconcileHandler.
func NewReconcileHandler(runner ReconcileRunner, logger *slog.Logger) *ReconcileHandler {
	return &ReconcileHandler{
		runner: runner,
		logger: logger,
	}
}

// TriggerReconcile runs one reconciliation pass and returns its report.
// POST /api/reconcile
func (h *ReconcileHandler) TriggerReconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.runner.Run(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: reconcile trigger failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "reconciliation pass failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}
