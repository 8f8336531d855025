package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "pftsystem/internal/errors"
	"pftsystem/internal/scheduler"
)

// ReconcileRunner runs the daily reconciliation once.
type ReconcileRunner interface {
	RunOnce(ctx context.Context) (scheduler.Report, error)
}

// ReconcileHandler triggers the daily reconciliation on demand.
type ReconcileHandler struct {
	runner ReconcileRunner
}

// NewReconcileHandler creates a new ReconcileHandler.
func NewReconcileHandler(runner ReconcileRunner) *ReconcileHandler {
	return &ReconcileHandler{runner: runner}
}

// Run executes every reconciliation phase for today and returns the report.
// @Summary     Run reconciliation
// @Description Materialize due recurring transactions, recompute budgets and run goal auto-collections
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} scheduler.Report "Run report"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not an administrator"
// @Failure     409 {object} ErrorResponse "A run is already in progress"
// @Router      /admin/reconcile [post]
func (h *ReconcileHandler) Run(c *gin.Context) {
	report, err := h.runner.RunOnce(c.Request.Context())
	if errors.Is(err, scheduler.ErrRunInProgress) {
		respondWithError(c, apperrors.ErrRunInProgress)
		return
	}
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}
