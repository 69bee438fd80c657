package usecase

import (
	"context"
	"fmt"
	"html"
	"path/filepath"
	"strings"

	"github.com/user/sitewatch-service/internal/entity"
	"github.com/user/sitewatch-service/internal/repository"
	"github.com/user/sitewatch-service/pkg/metrics"
	"go.uber.org/zap"
)

const (
	// maxListedPDFLinks caps the links quoted in the alert text.
	maxListedPDFLinks = 3
	// maxAttachedPDFs caps the documents downloaded and forwarded per event.
	maxAttachedPDFs = 2
)

// AlertDispatcher composes and sends alert messages. Messages use the
// notifier's HTML formatting, so every user-supplied value is escaped.
type AlertDispatcher interface {
	// DispatchKeyword sends the primary keyword alert, then forwards up to two
	// PDF attachments. Attachment failures never affect the primary alert.
	DispatchKeyword(ctx context.Context, site *entity.Site, scan *entity.ScanResult)
	DispatchError(ctx context.Context, site *entity.Site, errText string)
	DispatchUpdate(ctx context.Context, site *entity.Site, oldHash, newHash string)
	DispatchRecovery(ctx context.Context, site *entity.Site)
	// SendTest sends a connectivity check message and reports its outcome.
	SendTest(ctx context.Context) error
}

type alertDispatcherUseCase struct {
	notifier repository.Notifier
	fetcher  repository.DocumentFetcher
	logger   *zap.Logger
}

// NewAlertDispatcher creates a dispatcher sending through notifier and
// downloading attachments with fetcher.
func NewAlertDispatcher(notifier repository.Notifier, fetcher repository.DocumentFetcher, logger *zap.Logger) AlertDispatcher {
	return &alertDispatcherUseCase{
		notifier: notifier,
		fetcher:  fetcher,
		logger:   logger.With(zap.String("component", "alert_dispatcher")),
	}
}

func (uc *alertDispatcherUseCase) DispatchKeyword(ctx context.Context, site *entity.Site, scan *entity.ScanResult) {
	message := KeywordMessage(site, scan)

	var err error
	if scan.Screenshot != "" {
		err = uc.notifier.SendPhoto(ctx, scan.Screenshot, message)
		if err != nil {
			uc.logger.Warn("screenshot alert failed, falling back to text",
				zap.Int64("site_id", site.ID), zap.Error(err))
			err = uc.notifier.SendText(ctx, message)
		}
	} else {
		err = uc.notifier.SendText(ctx, message)
	}
	uc.observe("keyword", site, err)

	// Attachments go out only after the primary alert.
	links := scan.PDFLinks
	if len(links) > maxAttachedPDFs {
		links = links[:maxAttachedPDFs]
	}
	for _, link := range links {
		uc.attachPDF(ctx, site, link)
	}
}

func (uc *alertDispatcherUseCase) attachPDF(ctx context.Context, site *entity.Site, link string) {
	path, err := uc.fetcher.Fetch(ctx, link)
	if err != nil {
		metrics.PDFDownloadsTotal.WithLabelValues("failure").Inc()
		uc.logger.Warn("PDF download failed, skipping attachment",
			zap.Int64("site_id", site.ID), zap.String("pdf_url", link), zap.Error(err))
		return
	}
	metrics.PDFDownloadsTotal.WithLabelValues("success").Inc()

	caption := fmt.Sprintf("📎 %s\n%s", html.EscapeString(filepath.Base(path)), html.EscapeString(site.Name))
	uc.observe("document", site, uc.notifier.SendDocument(ctx, path, caption))
}

func (uc *alertDispatcherUseCase) DispatchError(ctx context.Context, site *entity.Site, errText string) {
	message := fmt.Sprintf("🚨 <b>Website Error!</b>\n\nSite: %s\nError: %s",
		html.EscapeString(site.Name), html.EscapeString(errText))
	uc.observe("error", site, uc.notifier.SendText(ctx, message))
}

func (uc *alertDispatcherUseCase) DispatchUpdate(ctx context.Context, site *entity.Site, oldHash, newHash string) {
	message := fmt.Sprintf("⚠️ <b>Website Updated!</b>\n\nSite: %s\nURL: %s\nHash: %s → %s",
		html.EscapeString(site.Name), html.EscapeString(site.URL), shortHash(oldHash), shortHash(newHash))
	uc.observe("update", site, uc.notifier.SendText(ctx, message))
}

func (uc *alertDispatcherUseCase) DispatchRecovery(ctx context.Context, site *entity.Site) {
	message := fmt.Sprintf("✅ <b>Website Recovered</b>\n\nSite: %s\nURL: %s",
		html.EscapeString(site.Name), html.EscapeString(site.URL))
	uc.observe("recovery", site, uc.notifier.SendText(ctx, message))
}

func (uc *alertDispatcherUseCase) SendTest(ctx context.Context) error {
	err := uc.notifier.SendText(ctx, "✅ Telegram test successful! Alerts are ready.")
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.AlertsTotal.WithLabelValues("test", status).Inc()
	return err
}

func (uc *alertDispatcherUseCase) observe(alertType string, site *entity.Site, err error) {
	if err != nil {
		metrics.AlertsTotal.WithLabelValues(alertType, "failure").Inc()
		uc.logger.Warn("alert delivery failed",
			zap.String("type", alertType), zap.Int64("site_id", site.ID), zap.Error(err))
		return
	}
	metrics.AlertsTotal.WithLabelValues(alertType, "success").Inc()
	uc.logger.Info("alert sent", zap.String("type", alertType), zap.Int64("site_id", site.ID))
}

// KeywordMessage renders the keyword alert for a site and its scan.
func KeywordMessage(site *entity.Site, scan *entity.ScanResult) string {
	var sb strings.Builder
	sb.WriteString("🚨 <b>New update found!</b>\n\n")
	fmt.Fprintf(&sb, "🏢 <b>Site:</b> %s\n", html.EscapeString(site.Name))
	fmt.Fprintf(&sb, "🔑 <b>Keyword:</b> %s\n", html.EscapeString(site.Keyword))
	fmt.Fprintf(&sb, "🌐 <b>Page:</b> %s\n", html.EscapeString(scan.ResolvedURL(site.URL)))

	if scan.Context != "" {
		fmt.Fprintf(&sb, "\n🧾 <b>Context:</b>\n%s\n", html.EscapeString(scan.Context))
	}

	if len(scan.PDFLinks) > 0 {
		links := scan.PDFLinks
		if len(links) > maxListedPDFLinks {
			links = links[:maxListedPDFLinks]
		}
		sb.WriteString("\n📄 <b>PDF Links:</b>\n")
		for i, link := range links {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(html.EscapeString(link))
		}
	}
	return sb.String()
}

func shortHash(h string) string {
	if h == "" {
		return "-"
	}
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
