package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/sitewatch-service/internal/entity"
	"github.com/user/sitewatch-service/internal/repository"
	"go.uber.org/zap"
)

// openTestPool connects to the database named by POSTGRES_TEST_URL and
// empties the tables. The tests are skipped when the variable is unset.
func openTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_URL")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_URL not set")
	}

	ctx := context.Background()
	pool, err := Connect(ctx, dsn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE site_logs, sites RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return pool
}

func TestSiteRepo_ListDue(t *testing.T) {
	ctx := context.Background()
	repo := NewSiteRepo(openTestPool(t))
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	fresh := entity.NewSite("fresh", "https://example.org/a", "bharti", 60)
	require.NoError(t, repo.Create(ctx, fresh))

	recent := entity.NewSite("recent", "https://example.org/b", "bharti", 60)
	recent.LastChecked = now.Add(-30 * time.Second)
	require.NoError(t, repo.Create(ctx, recent))

	stale := entity.NewSite("stale", "https://example.org/c", "bharti", 60)
	stale.LastChecked = now.Add(-60 * time.Second)
	require.NoError(t, repo.Create(ctx, stale))

	disabled := entity.NewSite("disabled", "https://example.org/d", "bharti", 60)
	require.NoError(t, repo.Create(ctx, disabled))
	require.NoError(t, repo.SetEnabled(ctx, disabled.ID, false))

	due, err := repo.ListDue(ctx, now)
	require.NoError(t, err)

	var names []string
	for _, s := range due {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"fresh", "stale"}, names)
	assert.True(t, due[0].LastChecked.IsZero())
	assert.True(t, due[1].LastChecked.Equal(stale.LastChecked))
}

func TestSiteRepo_SaveAndDelete(t *testing.T) {
	ctx := context.Background()
	pool := openTestPool(t)
	repo := NewSiteRepo(pool)
	logs := NewSiteLogRepo(pool)

	site := entity.NewSite("Portal", "https://example.org", "bharti", 60)
	require.NoError(t, repo.Create(ctx, site))

	site.LastChecked = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	site.LastStatus = entity.SiteStatusError
	site.AlertSent = true
	site.FirstRun = false
	require.NoError(t, repo.Save(ctx, site))

	got, err := repo.Get(ctx, site.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SiteStatusError, got.LastStatus)
	assert.True(t, got.AlertSent)
	assert.False(t, got.FirstRun)

	require.NoError(t, logs.Insert(ctx, &entity.SiteLog{SiteID: site.ID, EventType: entity.EventError, Message: "down", Timestamp: time.Now()}))
	require.NoError(t, repo.Delete(ctx, site.ID))

	_, err = repo.Get(ctx, site.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	remaining, err := logs.ListLatest(ctx, site.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	assert.ErrorIs(t, repo.Delete(ctx, site.ID), repository.ErrNotFound)
	assert.ErrorIs(t, repo.Save(ctx, site), repository.ErrNotFound)
}

func TestSiteLogRepo_TrimToLatest(t *testing.T) {
	ctx := context.Background()
	pool := openTestPool(t)
	sites := NewSiteRepo(pool)
	logs := NewSiteLogRepo(pool)

	site := entity.NewSite("Portal", "https://example.org", "bharti", 60)
	require.NoError(t, sites.Create(ctx, site))
	other := entity.NewSite("Other", "https://example.net", "bharti", 60)
	require.NoError(t, sites.Create(ctx, other))

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 25; i++ {
		entry := &entity.SiteLog{
			SiteID:    site.ID,
			EventType: entity.EventKeyword,
			Message:   fmt.Sprintf("event %d", i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, logs.Insert(ctx, entry))
	}
	// Same timestamp as event 25: the later insert ranks first.
	require.NoError(t, logs.Insert(ctx, &entity.SiteLog{
		SiteID: site.ID, EventType: entity.EventUpdate, Message: "tie", Timestamp: base.Add(25 * time.Second),
	}))
	require.NoError(t, logs.Insert(ctx, &entity.SiteLog{
		SiteID: other.ID, EventType: entity.EventError, Message: "other", Timestamp: base,
	}))

	removed, err := logs.TrimToLatest(ctx, site.ID, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(6), removed)

	latest, err := logs.ListLatest(ctx, site.ID, 100)
	require.NoError(t, err)
	require.Len(t, latest, 20)
	assert.Equal(t, "tie", latest[0].Message)
	assert.Equal(t, "event 25", latest[1].Message)
	assert.Equal(t, "event 7", latest[19].Message)

	untouched, err := logs.ListLatest(ctx, other.ID, 100)
	require.NoError(t, err)
	assert.Len(t, untouched, 1)
}
