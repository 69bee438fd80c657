package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/user/sitewatch-service/internal/repository"
)

const siteLockPrefix = "sitewatch:lock:site:"

// unlockScript deletes the key only while it still holds our token, so an
// expired lock taken over by another instance is never released by us.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SiteLockRepoImpl provides a concrete implementation for the SiteLocker interface using Redis.
type SiteLockRepoImpl struct {
	client *redis.Client
	owner  string
}

var _ repository.SiteLocker = (*SiteLockRepoImpl)(nil)

// NewSiteLockRepo creates a new instance of SiteLockRepoImpl with a unique owner token.
func NewSiteLockRepo(client *redis.Client) *SiteLockRepoImpl {
	return &SiteLockRepoImpl{client: client, owner: uuid.NewString()}
}

func (r *SiteLockRepoImpl) generateKey(siteID int64) string {
	return fmt.Sprintf("%s%d", siteLockPrefix, siteID)
}

// TryLock takes the lock with SET NX and an expiry.
func (r *SiteLockRepoImpl) TryLock(ctx context.Context, siteID int64, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, r.generateKey(siteID), r.owner, ttl).Result()
}

// Unlock releases the lock if this instance still owns it.
func (r *SiteLockRepoImpl) Unlock(ctx context.Context, siteID int64) error {
	return unlockScript.Run(ctx, r.client, []string{r.generateKey(siteID)}, r.owner).Err()
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("unable to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}
