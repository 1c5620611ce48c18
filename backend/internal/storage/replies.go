package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/threed-dev/threed/shared/domain"
	internal_errors "github.com/threed-dev/threed/shared/errors"
)

const replyColumns = "id, thread_id, text, created_by, created_at"

func scanReply(row interface{ Scan(...any) error }) (domain.Reply, error) {
	var r domain.Reply
	if err := row.Scan(&r.Id, &r.ThreadId, &r.Text, &r.CreatedBy, timestamp{&r.CreatedAt}); err != nil {
		return domain.Reply{}, err
	}
	return r, nil
}

// InsertReply relies on the foreign key for the thread's existence.
func (s *Storage) InsertReply(ctx context.Context, input domain.ReplyInput, author domain.UserId) (domain.Reply, error) {
	reply := domain.Reply{
		Id:        uuid.NewString(),
		ThreadId:  input.ThreadId,
		Text:      input.Text,
		CreatedBy: author,
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		createdAt, err := s.insert(ctx, tx,
			"INSERT INTO replies (id, thread_id, text, created_by, created_at) VALUES ($1, $2, $3, $4, %s)",
			reply.Id, reply.ThreadId, reply.Text, reply.CreatedBy,
		)
		if err != nil {
			if s.dialect.isForeignKey(err) {
				return internal_errors.Validation("thread %s does not exist", input.ThreadId)
			}
			return fmt.Errorf("failed to insert reply: %w", err)
		}
		reply.CreatedAt = createdAt
		return nil
	})
	if err != nil {
		return domain.Reply{}, err
	}
	return reply, nil
}

func (s *Storage) Reply(ctx context.Context, id domain.ReplyId) (domain.Reply, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	reply, err := scanReply(s.db.QueryRowContext(ctx, s.q("SELECT "+replyColumns+" FROM replies WHERE id = $1"), id))
	if err != nil {
		if isNoRows(err) {
			return domain.Reply{}, false, nil
		}
		return domain.Reply{}, false, fmt.Errorf("failed to get reply: %w", err)
	}
	return reply, true, nil
}

func (s *Storage) CountReplies(ctx context.Context, threadId domain.ThreadId) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var n int
	if err := s.db.QueryRowContext(ctx, s.q("SELECT COUNT(*) FROM replies WHERE thread_id = $1"), threadId).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count replies: %w", err)
	}
	return n, nil
}

// ListReplies returns newest first.
func (s *Storage) ListReplies(ctx context.Context, threadId domain.ThreadId, page domain.Page) ([]domain.Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		s.q("SELECT "+replyColumns+" FROM replies WHERE thread_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3"),
		threadId, page.Limit, page.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list replies: %w", err)
	}
	defer rows.Close()

	replies := make([]domain.Reply, 0, page.Limit)
	for rows.Next() {
		reply, err := scanReply(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reply: %w", err)
		}
		replies = append(replies, reply)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate replies: %w", err)
	}
	return replies, nil
}
