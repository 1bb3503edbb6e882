package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/aju-clearance-api/internal/models"
	appErrors "github.com/noah-isme/aju-clearance-api/pkg/errors"
)

type ledgerRepository interface {
	Transition(ctx context.Context, row *models.ClearanceStatus, allowedFrom []models.ClearanceState) (bool, error)
}

// LedgerChange describes one trigger applied to a (student, unit) entry.
type LedgerChange struct {
	StudentID  string
	UnitID     models.UnitID
	SemesterID string
	Trigger    models.LedgerTrigger
	Reason     *string
	ActorID    string
}

// Ledger applies state-machine triggers to the clearance ledger. Every write
// is a guarded update, so a trigger whose source state no longer holds (a unit
// reset by rollover, a cleared unit seeing a new intake) is skipped.
type Ledger struct {
	repo    ledgerRepository
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewLedger constructs a Ledger.
func NewLedger(repo ledgerRepository, metrics *MetricsService, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{repo: repo, metrics: metrics, logger: logger, now: time.Now}
}

// Apply writes the trigger's target state and reports whether it was applied.
func (l *Ledger) Apply(ctx context.Context, change LedgerChange) (bool, error) {
	row := &models.ClearanceStatus{
		StudentID: change.StudentID,
		UnitID:    change.UnitID,
		Status:    change.Trigger.Target(),
		UpdatedAt: l.now().UTC(),
	}
	if change.SemesterID != "" {
		row.SemesterID = &change.SemesterID
	}
	if row.Status == models.StateRejected {
		row.RejectionReason = change.Reason
	}
	if change.ActorID != "" {
		row.UpdatedBy = &change.ActorID
	}

	applied, err := l.repo.Transition(ctx, row, change.Trigger.AllowedFrom())
	if err != nil {
		return false, appErrors.Backend(err, "failed to update clearance ledger")
	}
	if !applied {
		l.metrics.RecordIgnoredTransition(change.Trigger)
		l.logger.Warn("ledger transition ignored",
			zap.String("student_id", change.StudentID),
			zap.String("unit_id", string(change.UnitID)),
			zap.String("trigger", string(change.Trigger)),
		)
	}
	return applied, nil
}
