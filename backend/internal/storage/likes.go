package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/threed-dev/threed/shared/domain"
	internal_errors "github.com/threed-dev/threed/shared/errors"
)

const likeColumns = "id, thread_id, reply_id, created_by, created_at"

var targetColumn = map[domain.TargetKind]string{
	domain.TargetThread: "thread_id",
	domain.TargetReply:  "reply_id",
}

func columnFor(target domain.LikeTarget) (string, error) {
	if !target.Valid() {
		return "", internal_errors.Validation("malformed like target")
	}
	return targetColumn[target.Kind], nil
}

func scanLike(row interface{ Scan(...any) error }) (domain.Like, error) {
	var l domain.Like
	var threadId, replyId sql.NullString
	if err := row.Scan(&l.Id, &threadId, &replyId, &l.CreatedBy, timestamp{&l.CreatedAt}); err != nil {
		return domain.Like{}, err
	}
	if threadId.Valid {
		l.ThreadId = &threadId.String
	}
	if replyId.Valid {
		l.ReplyId = &replyId.String
	}
	return l, nil
}

func (s *Storage) InsertLike(ctx context.Context, target domain.LikeTarget, author domain.UserId) (domain.Like, error) {
	if _, err := columnFor(target); err != nil {
		return domain.Like{}, err
	}
	like := domain.Like{Id: uuid.NewString(), CreatedBy: author}
	if target.Kind == domain.TargetThread {
		like.ThreadId = &target.Id
	} else {
		like.ReplyId = &target.Id
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		createdAt, err := s.insert(ctx, tx,
			"INSERT INTO likes (id, thread_id, reply_id, created_by, created_at) VALUES ($1, $2, $3, $4, %s)",
			like.Id, nullString(like.ThreadId), nullString(like.ReplyId), like.CreatedBy,
		)
		if err != nil {
			if s.dialect.isForeignKey(err) {
				return internal_errors.Validation("%s %s does not exist", target.Kind, target.Id)
			}
			return fmt.Errorf("failed to insert like: %w", err)
		}
		like.CreatedAt = createdAt
		return nil
	})
	if err != nil {
		return domain.Like{}, err
	}
	return like, nil
}

func (s *Storage) CountLikes(ctx context.Context, target domain.LikeTarget) (int, error) {
	column, err := columnFor(target)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var n int
	if err := s.db.QueryRowContext(ctx, s.q("SELECT COUNT(*) FROM likes WHERE "+column+" = $1"), target.Id).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count likes: %w", err)
	}
	return n, nil
}

// ListLikes returns newest first.
func (s *Storage) ListLikes(ctx context.Context, target domain.LikeTarget, page domain.Page) ([]domain.Like, error) {
	column, err := columnFor(target)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		s.q("SELECT "+likeColumns+" FROM likes WHERE "+column+" = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3"),
		target.Id, page.Limit, page.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list likes: %w", err)
	}
	defer rows.Close()

	likes := make([]domain.Like, 0, page.Limit)
	for rows.Next() {
		like, err := scanLike(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan like: %w", err)
		}
		likes = append(likes, like)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate likes: %w", err)
	}
	return likes, nil
}

// HasLiked is false for the anonymous viewer without a round trip.
func (s *Storage) HasLiked(ctx context.Context, viewer domain.Viewer, target domain.LikeTarget) (bool, error) {
	identity, ok := viewer.Identity()
	if !ok {
		return false, nil
	}
	column, err := columnFor(target)
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var exists bool
	err = s.db.QueryRowContext(ctx,
		s.q("SELECT EXISTS (SELECT 1 FROM likes WHERE "+column+" = $1 AND created_by = $2)"),
		target.Id, identity.Id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check like: %w", err)
	}
	return exists, nil
}
