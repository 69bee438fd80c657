package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/sitewatch-service/internal/entity"
	"github.com/user/sitewatch-service/internal/repository"
)

const siteColumns = `id, name, url, keyword, interval_seconds, enabled, last_checked, last_status,
	last_response_ms, last_content_hash, keyword_found, alert_sent, first_run`

// SiteRepoImpl provides a concrete implementation for the SiteRepository interface using PostgreSQL.
type SiteRepoImpl struct {
	db *pgxpool.Pool
}

var _ repository.SiteRepository = (*SiteRepoImpl)(nil)

// NewSiteRepo creates a new instance of SiteRepoImpl.
func NewSiteRepo(db *pgxpool.Pool) *SiteRepoImpl {
	return &SiteRepoImpl{db: db}
}

func scanSite(row pgx.Row) (*entity.Site, error) {
	var (
		s           entity.Site
		lastChecked *time.Time
		status      string
		responseMS  int64
	)
	err := row.Scan(&s.ID, &s.Name, &s.URL, &s.Keyword, &s.Interval, &s.Enabled, &lastChecked, &status,
		&responseMS, &s.LastContentHash, &s.KeywordFound, &s.AlertSent, &s.FirstRun)
	if err != nil {
		return nil, err
	}
	if lastChecked != nil {
		s.LastChecked = lastChecked.UTC()
	}
	s.LastStatus = entity.SiteStatus(status)
	s.LastResponseTime = time.Duration(responseMS) * time.Millisecond
	return &s, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Create stores a new site and fills in its generated ID.
func (r *SiteRepoImpl) Create(ctx context.Context, site *entity.Site) error {
	query := `
		INSERT INTO sites (name, url, keyword, interval_seconds, enabled, last_checked, last_status,
			last_response_ms, last_content_hash, keyword_found, alert_sent, first_run)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id;
	`
	return r.db.QueryRow(ctx, query,
		site.Name,
		site.URL,
		site.Keyword,
		site.Interval,
		site.Enabled,
		nullableTime(site.LastChecked),
		string(site.LastStatus),
		site.LastResponseTime.Milliseconds(),
		site.LastContentHash,
		site.KeywordFound,
		site.AlertSent,
		site.FirstRun,
	).Scan(&site.ID)
}

func (r *SiteRepoImpl) Get(ctx context.Context, id int64) (*entity.Site, error) {
	site, err := scanSite(r.db.QueryRow(ctx, `SELECT `+siteColumns+` FROM sites WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return site, err
}

func (r *SiteRepoImpl) List(ctx context.Context) ([]*entity.Site, error) {
	return r.query(ctx, `SELECT `+siteColumns+` FROM sites ORDER BY id`)
}

// ListDue retrieves the enabled sites whose polling interval has elapsed.
func (r *SiteRepoImpl) ListDue(ctx context.Context, now time.Time) ([]*entity.Site, error) {
	query := `
		SELECT ` + siteColumns + ` FROM sites
		WHERE enabled
		  AND (last_checked IS NULL OR last_checked + make_interval(secs => interval_seconds) <= $1)
		ORDER BY id;
	`
	return r.query(ctx, query, now)
}

func (r *SiteRepoImpl) query(ctx context.Context, query string, args ...any) ([]*entity.Site, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sites []*entity.Site
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// Save updates the status columns written by a check.
func (r *SiteRepoImpl) Save(ctx context.Context, site *entity.Site) error {
	query := `
		UPDATE sites SET
			last_checked = $1,
			last_status = $2,
			last_response_ms = $3,
			last_content_hash = $4,
			keyword_found = $5,
			alert_sent = $6,
			first_run = $7
		WHERE id = $8;
	`
	tag, err := r.db.Exec(ctx, query,
		nullableTime(site.LastChecked),
		string(site.LastStatus),
		site.LastResponseTime.Milliseconds(),
		site.LastContentHash,
		site.KeywordFound,
		site.AlertSent,
		site.FirstRun,
		site.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *SiteRepoImpl) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE sites SET enabled = $1 WHERE id = $2`, enabled, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a site; its logs go with it through the foreign key cascade.
func (r *SiteRepoImpl) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM sites WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *SiteRepoImpl) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
