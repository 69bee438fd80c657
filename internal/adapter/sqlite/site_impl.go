package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/user/sitewatch-service/internal/entity"
	"github.com/user/sitewatch-service/internal/repository"
)

const siteColumns = `id, name, url, keyword, interval_seconds, enabled, last_checked, last_status,
	last_response_ms, last_content_hash, keyword_found, alert_sent, first_run`

// SiteRepoImpl implements repository.SiteRepository on SQLite.
type SiteRepoImpl struct {
	db *sql.DB
}

var _ repository.SiteRepository = (*SiteRepoImpl)(nil)

// NewSiteRepo creates a new instance of SiteRepoImpl.
func NewSiteRepo(db *sql.DB) *SiteRepoImpl {
	return &SiteRepoImpl{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSite(row rowScanner) (*entity.Site, error) {
	var (
		s                                    entity.Site
		lastChecked, responseMS              int64
		status                               string
		enabled, keywordFound, alertSent, fr int
	)
	err := row.Scan(&s.ID, &s.Name, &s.URL, &s.Keyword, &s.Interval, &enabled, &lastChecked, &status,
		&responseMS, &s.LastContentHash, &keywordFound, &alertSent, &fr)
	if err != nil {
		return nil, err
	}
	s.Enabled = enabled == 1
	s.LastChecked = fromMillis(lastChecked)
	s.LastStatus = entity.SiteStatus(status)
	s.LastResponseTime = time.Duration(responseMS) * time.Millisecond
	s.KeywordFound = keywordFound == 1
	s.AlertSent = alertSent == 1
	s.FirstRun = fr == 1
	return &s, nil
}

func (r *SiteRepoImpl) Create(ctx context.Context, site *entity.Site) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO sites (name, url, keyword, interval_seconds, enabled, last_checked, last_status,
			last_response_ms, last_content_hash, keyword_found, alert_sent, first_run, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		site.Name, site.URL, site.Keyword, site.Interval, boolToInt(site.Enabled), toMillis(site.LastChecked),
		string(site.LastStatus), site.LastResponseTime.Milliseconds(), site.LastContentHash,
		boolToInt(site.KeywordFound), boolToInt(site.AlertSent), boolToInt(site.FirstRun), time.Now().UnixMilli(),
	)
	if err != nil {
		return err
	}
	site.ID, err = res.LastInsertId()
	return err
}

func (r *SiteRepoImpl) Get(ctx context.Context, id int64) (*entity.Site, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+siteColumns+` FROM sites WHERE id = ?`, id)
	site, err := scanSite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return site, err
}

func (r *SiteRepoImpl) List(ctx context.Context) ([]*entity.Site, error) {
	return r.query(ctx, `SELECT `+siteColumns+` FROM sites ORDER BY id`)
}

func (r *SiteRepoImpl) ListDue(ctx context.Context, now time.Time) ([]*entity.Site, error) {
	return r.query(ctx, `
		SELECT `+siteColumns+` FROM sites
		WHERE enabled = 1 AND (last_checked = 0 OR ? - last_checked >= interval_seconds * 1000)
		ORDER BY id`, now.UnixMilli())
}

func (r *SiteRepoImpl) query(ctx context.Context, query string, args ...any) ([]*entity.Site, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
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

// Save writes the status fields a check may change. Configuration fields are
// owned by the API and left alone.
func (r *SiteRepoImpl) Save(ctx context.Context, site *entity.Site) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sites SET last_checked = ?, last_status = ?, last_response_ms = ?, last_content_hash = ?,
			keyword_found = ?, alert_sent = ?, first_run = ?
		WHERE id = ?`,
		toMillis(site.LastChecked), string(site.LastStatus), site.LastResponseTime.Milliseconds(),
		site.LastContentHash, boolToInt(site.KeywordFound), boolToInt(site.AlertSent), boolToInt(site.FirstRun),
		site.ID,
	)
	return affectedOrNotFound(res, err)
}

func (r *SiteRepoImpl) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE sites SET enabled = ? WHERE id = ?`, boolToInt(enabled), id)
	return affectedOrNotFound(res, err)
}

// Delete removes the site and its logs in one transaction.
func (r *SiteRepoImpl) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM site_logs WHERE site_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sites WHERE id = ?`, id)
	if err := affectedOrNotFound(res, err); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SiteRepoImpl) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func affectedOrNotFound(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
