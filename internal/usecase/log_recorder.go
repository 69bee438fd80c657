package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/user/sitewatch-service/internal/entity"
	"github.com/user/sitewatch-service/internal/repository"
	"github.com/user/sitewatch-service/pkg/metrics"
	"go.uber.org/zap"
)

// DefaultLogRetention is the number of audit entries kept per site. It is
// also the upper bound for a configured retention.
const DefaultLogRetention = 20

// LogRecorder appends audit entries and enforces per-site retention.
type LogRecorder interface {
	Record(ctx context.Context, siteID int64, eventType entity.EventType, message, oldHash, newHash string) error
}

type logRecorderUseCase struct {
	logRepo   repository.SiteLogRepository
	retention int
	now       func() time.Time
	logger    *zap.Logger
}

// NewLogRecorder creates a recorder keeping at most retention entries per site.
func NewLogRecorder(logRepo repository.SiteLogRepository, retention int, logger *zap.Logger) LogRecorder {
	if retention <= 0 || retention > DefaultLogRetention {
		retention = DefaultLogRetention
	}
	return &logRecorderUseCase{
		logRepo:   logRepo,
		retention: retention,
		now:       time.Now,
		logger:    logger.With(zap.String("component", "log_recorder")),
	}
}

// Record inserts one entry, then trims the site's trail down to the retention
// window. Trimming runs on every insert.
func (uc *logRecorderUseCase) Record(ctx context.Context, siteID int64, eventType entity.EventType, message, oldHash, newHash string) error {
	entry := &entity.SiteLog{
		SiteID:    siteID,
		EventType: eventType,
		Message:   message,
		OldHash:   oldHash,
		NewHash:   newHash,
		Timestamp: uc.now(),
	}
	if err := uc.logRepo.Insert(ctx, entry); err != nil {
		return fmt.Errorf("insert %s log for site %d: %w", eventType, siteID, err)
	}

	removed, err := uc.logRepo.TrimToLatest(ctx, siteID, uc.retention)
	if err != nil {
		return fmt.Errorf("trim logs for site %d: %w", siteID, err)
	}
	if removed > 0 {
		metrics.SiteLogsTrimmed.Add(float64(removed))
		uc.logger.Debug("trimmed site logs", zap.Int64("site_id", siteID), zap.Int64("removed", removed))
	}
	return nil
}
