package repository

import (
	"context"
	"time"

	"github.com/user/sitewatch-service/internal/entity"
)

// SiteRepository defines the interface for storing monitored sites.
// Every call is atomic for the record it touches.
type SiteRepository interface {
	// Create inserts a new site and fills in its ID.
	Create(ctx context.Context, site *entity.Site) error
	// Get returns a single site or ErrNotFound.
	Get(ctx context.Context, id int64) (*entity.Site, error)
	// List returns every site ordered by ID.
	List(ctx context.Context) ([]*entity.Site, error)
	// ListDue returns enabled sites whose interval has elapsed at now.
	ListDue(ctx context.Context, now time.Time) ([]*entity.Site, error)
	// Save persists the mutable status fields of a site.
	Save(ctx context.Context, site *entity.Site) error
	// SetEnabled updates the enabled flag, returning ErrNotFound for unknown IDs.
	SetEnabled(ctx context.Context, id int64, enabled bool) error
	// Delete removes a site together with its logs.
	Delete(ctx context.Context, id int64) error
	// Ping checks connectivity to the backing store.
	Ping(ctx context.Context) error
}
