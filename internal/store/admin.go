package store

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/models"
)

var adminColumns = []string{
	"id", "created_at", "updated_at", "username", "email", "display_name", "password_hash", "role", "is_active",
}

type AdminStore struct {
	db *sqlx.DB
}

func NewAdminStore(db *sqlx.DB) *AdminStore {
	return &AdminStore{db: db}
}

// GetByLogin finds an active staff account by username or email.
func (s *AdminStore) GetByLogin(ctx context.Context, login string) (*models.Admin, error) {
	queryString, args, err := psql.Select(adminColumns...).From(TableAdmins).
		Where(sq.Or{sq.Eq{"username": login}, sq.Eq{"email": login}}).
		Where(sq.Eq{"is_active": true}).
		Limit(1).ToSql()
	if err != nil {
		return nil, errorSqlBuild(err)
	}
	var a models.Admin
	if err := s.db.GetContext(ctx, &a, queryString, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Create inserts a staff account, or updates the existing one with the same
// username. Used to seed the first admin from config.
func (s *AdminStore) Create(ctx context.Context, a models.Admin) error {
	queryString, args, err := psql.Insert(TableAdmins).
		Columns("username", "email", "display_name", "password_hash", "role").
		Values(a.Username, a.Email, a.DisplayName, a.PasswordHash, a.Role).
		Suffix(conflictClause("username", []string{"email", "display_name", "password_hash", "role"})).
		ToSql()
	if err != nil {
		return errorSqlBuild(err)
	}
	_, err = s.db.ExecContext(ctx, queryString, args...)
	return err
}
