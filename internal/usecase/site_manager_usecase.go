package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/user/sitewatch-service/internal/entity"
	"github.com/user/sitewatch-service/internal/repository"
	"go.uber.org/zap"
)

var (
	ErrInvalidSite = errors.New("invalid site")
)

const defaultInterval = 300

// RegisterSiteInput carries the fields accepted when registering a site.
type RegisterSiteInput struct {
	Name     string
	URL      string
	Interval int
	Keyword  string
}

// SiteManager defines the CRUD operations exposed over the API.
type SiteManager interface {
	Register(ctx context.Context, in RegisterSiteInput) (*entity.Site, error)
	List(ctx context.Context) ([]*entity.Site, error)
	Toggle(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) error
	Logs(ctx context.Context, id int64) ([]*entity.SiteLog, error)
}

type siteManagerUseCase struct {
	siteRepo repository.SiteRepository
	logRepo  repository.SiteLogRepository
	logLimit int
	logger   *zap.Logger
}

// NewSiteManager creates a new SiteManager use case.
func NewSiteManager(siteRepo repository.SiteRepository, logRepo repository.SiteLogRepository, logLimit int, logger *zap.Logger) SiteManager {
	if logLimit <= 0 {
		logLimit = DefaultLogRetention
	}
	return &siteManagerUseCase{
		siteRepo: siteRepo,
		logRepo:  logRepo,
		logLimit: logLimit,
		logger:   logger.With(zap.String("component", "site_manager")),
	}
}

func (uc *siteManagerUseCase) Register(ctx context.Context, in RegisterSiteInput) (*entity.Site, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidSite)
	}
	rawURL := strings.TrimSpace(in.URL)
	u, err := url.ParseRequestURI(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: url must be an absolute http(s) URL", ErrInvalidSite)
	}
	interval := in.Interval
	if interval == 0 {
		interval = defaultInterval
	}
	if interval < 1 {
		return nil, fmt.Errorf("%w: interval must be at least 1 second", ErrInvalidSite)
	}

	site := entity.NewSite(name, rawURL, strings.TrimSpace(in.Keyword), interval)
	if err := uc.siteRepo.Create(ctx, site); err != nil {
		return nil, fmt.Errorf("failed to create site: %w", err)
	}
	uc.logger.Info("site registered", zap.Int64("site_id", site.ID), zap.String("url", site.URL), zap.Int("interval", interval))
	return site, nil
}

func (uc *siteManagerUseCase) List(ctx context.Context) ([]*entity.Site, error) {
	return uc.siteRepo.List(ctx)
}

// Toggle flips the enabled flag and returns the new value.
func (uc *siteManagerUseCase) Toggle(ctx context.Context, id int64) (bool, error) {
	site, err := uc.siteRepo.Get(ctx, id)
	if err != nil {
		return false, err
	}
	enabled := !site.Enabled
	if err := uc.siteRepo.SetEnabled(ctx, id, enabled); err != nil {
		return false, err
	}
	uc.logger.Info("site toggled", zap.Int64("site_id", id), zap.Bool("enabled", enabled))
	return enabled, nil
}

func (uc *siteManagerUseCase) Delete(ctx context.Context, id int64) error {
	if err := uc.siteRepo.Delete(ctx, id); err != nil {
		return err
	}
	uc.logger.Info("site deleted", zap.Int64("site_id", id))
	return nil
}

// Logs returns the latest audit entries of a site, newest first.
func (uc *siteManagerUseCase) Logs(ctx context.Context, id int64) ([]*entity.SiteLog, error) {
	if _, err := uc.siteRepo.Get(ctx, id); err != nil {
		return nil, err
	}
	return uc.logRepo.ListLatest(ctx, id, uc.logLimit)
}
