package repository

import (
	"context"
	"time"
)

// SiteLocker guarantees at most one in-flight check per site.
type SiteLocker interface {
	// TryLock acquires the lock for a site, expiring after ttl. It returns
	// false without error when another holder owns it.
	TryLock(ctx context.Context, siteID int64, ttl time.Duration) (bool, error)
	// Unlock releases a lock previously acquired with TryLock.
	Unlock(ctx context.Context, siteID int64) error
}
