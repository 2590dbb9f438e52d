package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/teemow/bookshelf/internal/catalog"
	"github.com/teemow/bookshelf/internal/instrumentation"
)

// GetUser returns the user with the given provider id, or nil when there is none.
func (s *Store) GetUser(ctx context.Context, id string) (u *catalog.User, err error) {
	ctx, done := s.observe(ctx, instrumentation.TableUsers, instrumentation.OperationGet)
	defer func() { done(&err) }()

	query, args, err := s.builder.Select("id", "name", "email", "profile_pic").
		From("users").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build get user: %w", err)
	}

	var user catalog.User
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&user.ID, &user.Name, &user.Email, &user.ProfilePic)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get user: %w", err)
	}
	return &user, nil
}

// CreateUser inserts a user. Duplicate ids or emails fail with the
// constraint error from SQLite.
func (s *Store) CreateUser(ctx context.Context, id, name, email, picture string) (err error) {
	ctx, done := s.observe(ctx, instrumentation.TableUsers, instrumentation.OperationCreate)
	defer func() { done(&err) }()

	query, args, err := s.builder.Insert("users").
		Columns("id", "name", "email", "profile_pic").
		Values(id, name, email, picture).
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: build create user: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sqlite: create user: %w", err)
	}
	return nil
}
