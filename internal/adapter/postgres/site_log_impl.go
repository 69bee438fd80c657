package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/sitewatch-service/internal/entity"
	"github.com/user/sitewatch-service/internal/repository"
)

// SiteLogRepoImpl provides a concrete implementation for the SiteLogRepository interface using PostgreSQL.
type SiteLogRepoImpl struct {
	db *pgxpool.Pool
}

var _ repository.SiteLogRepository = (*SiteLogRepoImpl)(nil)

// NewSiteLogRepo creates a new instance of SiteLogRepoImpl.
func NewSiteLogRepo(db *pgxpool.Pool) *SiteLogRepoImpl {
	return &SiteLogRepoImpl{db: db}
}

func (r *SiteLogRepoImpl) Insert(ctx context.Context, log *entity.SiteLog) error {
	query := `
		INSERT INTO site_logs (site_id, event_type, message, old_hash, new_hash, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id;
	`
	return r.db.QueryRow(ctx, query,
		log.SiteID,
		string(log.EventType),
		log.Message,
		log.OldHash,
		log.NewHash,
		log.Timestamp,
	).Scan(&log.ID)
}

// TrimToLatest deletes everything but the keep newest entries of a site.
func (r *SiteLogRepoImpl) TrimToLatest(ctx context.Context, siteID int64, keep int) (int64, error) {
	query := `
		DELETE FROM site_logs
		WHERE site_id = $1 AND id NOT IN (
			SELECT id FROM site_logs WHERE site_id = $1
			ORDER BY timestamp DESC, id DESC
			LIMIT $2
		);
	`
	tag, err := r.db.Exec(ctx, query, siteID, keep)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *SiteLogRepoImpl) ListLatest(ctx context.Context, siteID int64, limit int) ([]*entity.SiteLog, error) {
	query := `
		SELECT id, site_id, event_type, message, old_hash, new_hash, timestamp
		FROM site_logs
		WHERE site_id = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT $2;
	`
	rows, err := r.db.Query(ctx, query, siteID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]*entity.SiteLog, 0, limit)
	for rows.Next() {
		var (
			l         entity.SiteLog
			eventType string
		)
		if err := rows.Scan(&l.ID, &l.SiteID, &eventType, &l.Message, &l.OldHash, &l.NewHash, &l.Timestamp); err != nil {
			return nil, err
		}
		l.EventType = entity.EventType(eventType)
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
