package repository

import (
	"context"

	"github.com/user/sitewatch-service/internal/entity"
)

// SiteLogRepository defines the interface for the per-site audit trail.
type SiteLogRepository interface {
	// Insert appends an entry and fills in its ID.
	Insert(ctx context.Context, log *entity.SiteLog) error
	// TrimToLatest deletes all but the keep most recent entries of a site and
	// returns how many were removed.
	TrimToLatest(ctx context.Context, siteID int64, keep int) (int64, error)
	// ListLatest returns up to limit entries of a site, newest first.
	ListLatest(ctx context.Context, siteID int64, limit int) ([]*entity.SiteLog, error)
}
