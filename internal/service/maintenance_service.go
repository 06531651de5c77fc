package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/quantfold/limitbot/internal/domain"
	"github.com/quantfold/limitbot/internal/notify"
)

// Archiver uploads old audit rows to object storage.
type Archiver interface {
	ArchiveOrderAudits(ctx context.Context, before time.Time) (int64, error)
}

// retentionLockKey guards the retention sweep across instances.
const retentionLockKey = "maintenance:retention"

// MaintenanceService runs the audit retention sweep: archive rows older than
// the retention window to object storage, then delete them from Postgres.
type MaintenanceService struct {
	archiver Archiver
	audits   domain.OrderAuditStore
	locks    domain.LockManager // optional
	notifier Notifier           // optional
	logger   *slog.Logger
}

// NewMaintenanceService creates a MaintenanceService. locks and notifier may
// be nil.
func NewMaintenanceService(
	archiver Archiver,
	audits domain.OrderAuditStore,
	locks domain.LockManager,
	notifier Notifier,
	logger *slog.Logger,
) *MaintenanceService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MaintenanceService{
		archiver: archiver,
		audits:   audits,
		locks:    locks,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "maintenance")),
	}
}

// RunRetention archives and then deletes audit rows submitted before the
// cutoff. Deletion only runs after a successful archive upload. When another
// instance holds the retention lock the sweep is skipped without error.
func (s *MaintenanceService) RunRetention(ctx context.Context, before time.Time) error {
	if s.locks != nil {
		unlock, err := s.locks.Acquire(ctx, retentionLockKey, 10*time.Minute)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				s.logger.InfoContext(ctx, "retention sweep already running elsewhere")
				return nil
			}
			return fmt.Errorf("maintenance: acquire retention lock: %w", err)
		}
		defer unlock()
	}

	archived, err := s.archiver.ArchiveOrderAudits(ctx, before)
	if err != nil {
		return fmt.Errorf("maintenance: archive: %w", err)
	}
	if archived == 0 {
		s.logger.InfoContext(ctx, "retention sweep found nothing to archive")
		return nil
	}

	deleted, err := s.audits.DeleteBefore(ctx, before)
	if err != nil {
		return fmt.Errorf("maintenance: delete archived rows: %w", err)
	}

	s.logger.InfoContext(ctx, "retention sweep complete",
		slog.Int64("archived", archived),
		slog.Int64("deleted", deleted),
		slog.Time("cutoff", before),
	)

	if s.notifier != nil {
		title := "audit retention sweep"
		message := fmt.Sprintf("archived %d rows, deleted %d, cutoff %s",
			archived, deleted, before.Format(time.RFC3339))
		if err := s.notifier.Notify(ctx, notify.EventAuditArchived, title, message); err != nil {
			s.logger.WarnContext(ctx, "notify failed", slog.String("error", err.Error()))
		}
	}
	return nil
}

// RunRetentionLoop runs RunRetention on the given interval until the context
// is cancelled. Rows older than retain are swept each pass.
func (s *MaintenanceService) RunRetentionLoop(ctx context.Context, interval, retain time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunRetention(ctx, time.Now().Add(-retain)); err != nil {
				s.logger.ErrorContext(ctx, "retention sweep failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
