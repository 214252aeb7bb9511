package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/models"
)

type ConsentStore struct {
	db *sqlx.DB
}

func NewConsentStore(db *sqlx.DB) *ConsentStore {
	return &ConsentStore{db: db}
}

func (s *ConsentStore) Create(ctx context.Context, c *models.ConsentRecord) error {
	queryString, args, err := psql.Insert(TableConsents).
		Columns("user_name", "version", "accepted", "ip_address").
		Values(c.UserName, c.Version, c.Accepted, c.IPAddress).
		Suffix("RETURNING id, created_at").ToSql()
	if err != nil {
		return errorSqlBuild(err)
	}
	return s.db.QueryRowxContext(ctx, queryString, args...).Scan(&c.ID, &c.CreatedAt)
}

// List returns consent records newest first, optionally for one user.
func (s *ConsentStore) List(ctx context.Context, userName string, limit uint64) ([]models.ConsentRecord, error) {
	query := psql.Select("id", "created_at", "user_name", "version", "accepted", "ip_address").
		From(TableConsents).OrderBy("created_at DESC")
	if userName != "" {
		query = query.Where(sq.Eq{"user_name": userName})
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, errorSqlBuild(err)
	}
	records := []models.ConsentRecord{}
	if err := s.db.SelectContext(ctx, &records, queryString, args...); err != nil {
		return nil, err
	}
	return records, nil
}
