package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/user/sitewatch-service/internal/entity"
	"github.com/user/sitewatch-service/internal/repository"
	"github.com/user/sitewatch-service/pkg/metrics"
	"go.uber.org/zap"
)

// CheckOptions tunes the behaviour of the site checker.
type CheckOptions struct {
	TakeScreenshots  bool
	HashChangeAlerts bool // alert when the page fingerprint changes
	RecoveryAlerts   bool // alert when a site leaves the error state
}

// SiteChecker runs one check of a site and persists its new status.
type SiteChecker interface {
	CheckSite(ctx context.Context, site *entity.Site) error
}

type siteCheckerUseCase struct {
	siteRepo   repository.SiteRepository
	scanner    repository.PageScanner
	dispatcher AlertDispatcher
	recorder   LogRecorder
	monitoring *MonitoringState
	opts       CheckOptions
	now        func() time.Time
	logger     *zap.Logger
}

// NewSiteChecker creates a new instance of the site checker use case.
func NewSiteChecker(
	siteRepo repository.SiteRepository,
	scanner repository.PageScanner,
	dispatcher AlertDispatcher,
	recorder LogRecorder,
	monitoring *MonitoringState,
	opts CheckOptions,
	logger *zap.Logger,
) SiteChecker {
	return &siteCheckerUseCase{
		siteRepo:   siteRepo,
		scanner:    scanner,
		dispatcher: dispatcher,
		recorder:   recorder,
		monitoring: monitoring,
		opts:       opts,
		now:        time.Now,
		logger:     logger.With(zap.String("component", "site_checker")),
	}
}

// CheckSite scans a site once, classifies the outcome and saves the site.
// Scan failures are absorbed into the error state; only a failure to persist
// the site is returned.
func (uc *siteCheckerUseCase) CheckSite(ctx context.Context, site *entity.Site) error {
	if !site.Enabled || !uc.monitoring.Enabled() {
		metrics.SiteChecksTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	// Stamped before scanning so a fast-failing site still waits a full interval.
	site.LastChecked = uc.now()

	began := time.Now()
	scan, scanErr := uc.scanner.Scan(ctx, site.URL, site.Keyword, uc.opts.TakeScreenshots)
	duration := time.Since(began)
	metrics.SiteCheckDuration.Observe(duration.Seconds())

	if scanErr != nil {
		uc.handleScanFailure(ctx, site, scanErr)
	} else {
		uc.handleScanSuccess(ctx, site, scan, duration)
	}

	if err := uc.siteRepo.Save(ctx, site); err != nil {
		return fmt.Errorf("failed to save status for site %d: %w", site.ID, err)
	}
	return nil
}

func (uc *siteCheckerUseCase) handleScanSuccess(ctx context.Context, site *entity.Site, scan *entity.ScanResult, duration time.Duration) {
	metrics.SiteChecksTotal.WithLabelValues("up").Inc()

	wasError := site.LastStatus == entity.SiteStatusError
	site.LastStatus = entity.SiteStatusUp
	site.LastResponseTime = duration

	if wasError {
		uc.record(ctx, site, entity.EventRecovery, "Site reachable again", "", "")
		if uc.opts.RecoveryAlerts {
			uc.dispatcher.DispatchRecovery(ctx, site)
		}
	}

	switch {
	case scan.Found() && !site.AlertSent:
		uc.logger.Info("keyword found",
			zap.Int64("site_id", site.ID), zap.String("keyword", site.Keyword), zap.String("url", scan.ResolvedURL(site.URL)))
		uc.dispatcher.DispatchKeyword(ctx, site, scan)
		uc.record(ctx, site, entity.EventKeyword, keywordLogMessage(site, scan), "", "")
		site.KeywordFound = true
		site.AlertSent = true
	case !scan.Found():
		// Re-arm so a later reappearance alerts again.
		site.KeywordFound = false
		site.AlertSent = false
	}

	uc.trackHash(ctx, site, scan)
	site.FirstRun = false
}

// trackHash stores the new page fingerprint. Error pages carry no hash and
// leave the stored one untouched.
func (uc *siteCheckerUseCase) trackHash(ctx context.Context, site *entity.Site, scan *entity.ScanResult) {
	if scan.PageHash == "" {
		return
	}
	oldHash := site.LastContentHash
	site.LastContentHash = scan.PageHash

	if !uc.opts.HashChangeAlerts || site.FirstRun || oldHash == "" || oldHash == scan.PageHash {
		return
	}
	uc.record(ctx, site, entity.EventUpdate, "Page content changed", oldHash, scan.PageHash)
	uc.dispatcher.DispatchUpdate(ctx, site, oldHash, scan.PageHash)
}

func (uc *siteCheckerUseCase) handleScanFailure(ctx context.Context, site *entity.Site, scanErr error) {
	metrics.SiteChecksTotal.WithLabelValues("error").Inc()
	errText := describeScanError(scanErr)

	if site.FirstRun {
		// Cold starts and slow DNS on the very first attempt are not reported.
		uc.logger.Info("ignoring first-run scan failure", zap.Int64("site_id", site.ID), zap.String("error", errText))
		site.FirstRun = false
		return
	}

	uc.logger.Warn("site scan failed", zap.Int64("site_id", site.ID), zap.String("url", site.URL), zap.String("error", errText))

	if site.LastStatus != entity.SiteStatusError {
		uc.record(ctx, site, entity.EventError, errText, "", "")
		uc.dispatcher.DispatchError(ctx, site, errText)
	}
	site.LastStatus = entity.SiteStatusError
}

// record writes an audit entry. A failing audit write never blocks the check.
func (uc *siteCheckerUseCase) record(ctx context.Context, site *entity.Site, eventType entity.EventType, message, oldHash, newHash string) {
	if err := uc.recorder.Record(ctx, site.ID, eventType, message, oldHash, newHash); err != nil {
		uc.logger.Error("failed to record site log", zap.Int64("site_id", site.ID), zap.String("event", string(eventType)), zap.Error(err))
	}
}

func keywordLogMessage(site *entity.Site, scan *entity.ScanResult) string {
	var extras []string
	if scan.Screenshot != "" {
		extras = append(extras, "screenshot")
	}
	if n := len(scan.PDFLinks); n > 0 {
		extras = append(extras, fmt.Sprintf("%d PDF link(s)", n))
	}
	msg := fmt.Sprintf("Keyword '%s' found", site.Keyword)
	if len(extras) > 0 {
		msg += " with " + strings.Join(extras, " & ")
	}
	return msg
}

// describeScanError renders a scan error for logs and alerts, falling back
// to the error's Go representation when its message is blank.
func describeScanError(err error) string {
	if text := strings.TrimSpace(err.Error()); text != "" {
		return text
	}
	return fmt.Sprintf("%#v", err)
}
