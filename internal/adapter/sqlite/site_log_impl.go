package sqlite

import (
	"context"
	"database/sql"

	"github.com/user/sitewatch-service/internal/entity"
	"github.com/user/sitewatch-service/internal/repository"
)

// SiteLogRepoImpl implements repository.SiteLogRepository on SQLite.
type SiteLogRepoImpl struct {
	db *sql.DB
}

var _ repository.SiteLogRepository = (*SiteLogRepoImpl)(nil)

// NewSiteLogRepo creates a new instance of SiteLogRepoImpl.
func NewSiteLogRepo(db *sql.DB) *SiteLogRepoImpl {
	return &SiteLogRepoImpl{db: db}
}

func (r *SiteLogRepoImpl) Insert(ctx context.Context, log *entity.SiteLog) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO site_logs (site_id, event_type, message, old_hash, new_hash, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		log.SiteID, string(log.EventType), log.Message, log.OldHash, log.NewHash, toMillis(log.Timestamp),
	)
	if err != nil {
		return err
	}
	log.ID, err = res.LastInsertId()
	return err
}

// TrimToLatest keeps the newest keep entries, breaking timestamp ties by id.
func (r *SiteLogRepoImpl) TrimToLatest(ctx context.Context, siteID int64, keep int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM site_logs
		WHERE site_id = ? AND id NOT IN (
			SELECT id FROM site_logs WHERE site_id = ?
			ORDER BY timestamp DESC, id DESC
			LIMIT ?
		)`, siteID, siteID, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SiteLogRepoImpl) ListLatest(ctx context.Context, siteID int64, limit int) ([]*entity.SiteLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, site_id, event_type, message, old_hash, new_hash, timestamp
		FROM site_logs WHERE site_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, siteID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]*entity.SiteLog, 0, limit)
	for rows.Next() {
		var (
			l         entity.SiteLog
			eventType string
			ts        int64
		)
		if err := rows.Scan(&l.ID, &l.SiteID, &eventType, &l.Message, &l.OldHash, &l.NewHash, &ts); err != nil {
			return nil, err
		}
		l.EventType = entity.EventType(eventType)
		l.Timestamp = fromMillis(ts)
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
