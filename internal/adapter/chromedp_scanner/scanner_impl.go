package chromedp_scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/user/sitewatch-service/internal/entity"
	"github.com/user/sitewatch-service/internal/repository"
	"github.com/user/sitewatch-service/pkg/utils"
	"go.uber.org/zap"
)

const (
	viewportWidth  = 1280
	viewportHeight = 720
)

// Options configures page loading.
type Options struct {
	PageLoadTimeout time.Duration
	SettleDelay     time.Duration
	ScreenshotDir   string
	UserAgents      []string // rotated per scan; a built-in set when empty
}

// ChromedpScanner loads pages in a shared headless Chrome, one tab per scan.
type ChromedpScanner struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	opts          Options
	userAgents    *userAgentPool
	now           func() time.Time
	logger        *zap.Logger
}

var _ repository.PageScanner = (*ChromedpScanner)(nil)

// NewChromedpScanner starts the browser and returns a scanner using it.
func NewChromedpScanner(opts Options, logger *zap.Logger) (*ChromedpScanner, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(viewportWidth, viewportHeight),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	log := logger.With(zap.String("component", "chromedp_scanner"))
	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithErrorf(log.Sugar().Debugf))
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &ChromedpScanner{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		opts:          opts,
		userAgents:    newUserAgentPool(opts.UserAgents),
		now:           time.Now,
		logger:        log,
	}, nil
}

// Close shuts the browser down.
func (s *ChromedpScanner) Close() {
	s.browserCancel()
	s.allocCancel()
}

// Scan loads url in a fresh tab, waits for it to settle and inspects the
// rendered document.
func (s *ChromedpScanner) Scan(ctx context.Context, url, keyword string, takeScreenshot bool) (*entity.ScanResult, error) {
	tabCtx, cancelTab := chromedp.NewContext(s.browserCtx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	tabCtx, cancel := context.WithTimeout(tabCtx, s.opts.PageLoadTimeout+s.opts.SettleDelay)
	defer cancel()

	var (
		mu         sync.Mutex
		statusCode int64
	)
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if e, ok := ev.(*network.EventResponseReceived); ok && e.Type == network.ResourceTypeDocument {
			mu.Lock()
			statusCode = e.Response.Status
			mu.Unlock()
		}
	})

	var htmlContent, finalURL string
	startTime := time.Now()
	err := chromedp.Run(tabCtx,
		network.Enable(),
		emulation.SetUserAgentOverride(s.userAgents.Next()),
		chromedp.EmulateViewport(viewportWidth, viewportHeight),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(s.opts.SettleDelay),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &htmlContent, chromedp.ByQuery),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(tabCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s after %s", repository.ErrScanTimeout, url, s.opts.PageLoadTimeout)
		}
		return nil, fmt.Errorf("%w: %s: %v", repository.ErrNavigationFailed, url, err)
	}

	mu.Lock()
	status := statusCode
	mu.Unlock()

	result, err := ExtractPage(finalURL, htmlContent, keyword)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", repository.ErrExtractionFailed, url, err)
	}

	s.logger.Debug("page scanned",
		zap.String("url", url),
		zap.String("final_url", finalURL),
		zap.Int64("status", status),
		zap.String("outcome", string(result.Outcome)),
		zap.Int("pdf_links", len(result.PDFLinks)),
		zap.Duration("duration", time.Since(startTime)),
	)

	if takeScreenshot && result.Found() {
		path, err := s.screenshot(tabCtx, finalURL)
		if err != nil {
			s.logger.Warn("failed to capture screenshot", zap.String("url", url), zap.Error(err))
		} else {
			result.Screenshot = path
		}
	}
	return result, nil
}

func (s *ChromedpScanner) screenshot(ctx context.Context, pageURL string) (string, error) {
	var buf []byte
	if err := chromedp.Run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.opts.ScreenshotDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(s.opts.ScreenshotDir, fmt.Sprintf("%s_%d.png", utils.HostSlug(pageURL), s.now().Unix()))
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
