package memory

import (
	"context"
	"sync"
	"time"

	"github.com/user/sitewatch-service/internal/repository"
)

// SiteLockRepoImpl is a process-local SiteLocker used when no Redis is configured.
type SiteLockRepoImpl struct {
	mu    sync.Mutex
	locks map[int64]time.Time
	now   func() time.Time
}

var _ repository.SiteLocker = (*SiteLockRepoImpl)(nil)

func NewSiteLockRepo() *SiteLockRepoImpl {
	return &SiteLockRepoImpl{locks: make(map[int64]time.Time), now: time.Now}
}

func (r *SiteLockRepoImpl) TryLock(_ context.Context, siteID int64, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if expires, held := r.locks[siteID]; held && now.Before(expires) {
		return false, nil
	}
	r.locks[siteID] = now.Add(ttl)
	return true, nil
}

func (r *SiteLockRepoImpl) Unlock(_ context.Context, siteID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.locks, siteID)
	return nil
}
