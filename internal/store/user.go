package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/AnshRaj112/kanjou-nikki-backend/internal/models"
)

type UserStore struct {
	db *sqlx.DB
}

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

// EnsureUser resolves a display name to a user id, creating the user on
// first sight.
func (s *UserStore) EnsureUser(ctx context.Context, name string) (string, error) {
	return ensureUser(ctx, s.db, name)
}

func (s *UserStore) GetByName(ctx context.Context, name string) (*models.User, error) {
	queryString, args, err := psql.Select("id", "name", "created_at").
		From(TableUsers).Where(sq.Eq{"name": strings.TrimSpace(name)}).ToSql()
	if err != nil {
		return nil, errorSqlBuild(err)
	}
	var u models.User
	if err := s.db.GetContext(ctx, &u, queryString, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func ensureUser(ctx context.Context, q sqlx.QueryerContext, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("store: user name is required")
	}
	// DO UPDATE keeps RETURNING populated when the row already exists.
	var id string
	err := sqlx.GetContext(ctx, q, &id,
		`INSERT INTO users (name) VALUES ($1)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`, name)
	return id, err
}
