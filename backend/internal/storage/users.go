package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/threed-dev/threed/shared/domain"
	internal_errors "github.com/threed-dev/threed/shared/errors"
)

const userColumns = "id, username, pass_hash, avatar, created_at"

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var u domain.User
	var avatar sql.NullString
	if err := row.Scan(&u.Id, &u.Username, &u.PassHash, &avatar, timestamp{&u.CreatedAt}); err != nil {
		return domain.User{}, err
	}
	if avatar.Valid {
		u.Avatar = &avatar.String
	}
	return u, nil
}

// InsertUser stores a new user. A taken username surfaces as
// errors.ErrUsernameTaken, including when two signups race.
func (s *Storage) InsertUser(ctx context.Context, username domain.Username, passHash string) (domain.User, error) {
	user := domain.User{
		Id:       uuid.NewString(),
		Username: username,
		PassHash: passHash,
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		createdAt, err := s.insert(ctx, tx,
			"INSERT INTO users (id, username, pass_hash, created_at) VALUES ($1, $2, $3, %s)",
			user.Id, user.Username, user.PassHash,
		)
		if err != nil {
			if s.dialect.isUnique(err) {
				return internal_errors.ErrUsernameTaken
			}
			return fmt.Errorf("failed to insert user: %w", err)
		}
		user.CreatedAt = createdAt
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *Storage) User(ctx context.Context, id domain.UserId) (domain.User, bool, error) {
	return s.userBy(ctx, "id", id)
}

func (s *Storage) UserByUsername(ctx context.Context, username domain.Username) (domain.User, bool, error) {
	return s.userBy(ctx, "username", username)
}

func (s *Storage) userBy(ctx context.Context, column, value string) (domain.User, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	// column is one of two constants above
	row := s.db.QueryRowContext(ctx, s.q("SELECT "+userColumns+" FROM users WHERE "+column+" = $1"), value)
	user, err := scanUser(row)
	if err != nil {
		if isNoRows(err) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, fmt.Errorf("failed to get user by %s: %w", column, err)
	}
	return user, true, nil
}
