package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/threed-dev/threed/shared/domain"
	internal_errors "github.com/threed-dev/threed/shared/errors"
)

const threadColumns = "id, title, text, created_by, created_at"

func scanThread(row interface{ Scan(...any) error }) (domain.Thread, error) {
	var t domain.Thread
	var text sql.NullString
	if err := row.Scan(&t.Id, &t.Title, &text, &t.CreatedBy, timestamp{&t.CreatedAt}); err != nil {
		return domain.Thread{}, err
	}
	if text.Valid {
		t.Text = &text.String
	}
	return t, nil
}

func (s *Storage) InsertThread(ctx context.Context, input domain.ThreadInput, author domain.UserId) (domain.Thread, error) {
	thread := domain.Thread{
		Id:        uuid.NewString(),
		Title:     input.Title,
		Text:      input.Text,
		CreatedBy: author,
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		createdAt, err := s.insert(ctx, tx,
			"INSERT INTO threads (id, title, text, created_by, created_at) VALUES ($1, $2, $3, $4, %s)",
			thread.Id, thread.Title, nullString(thread.Text), thread.CreatedBy,
		)
		if err != nil {
			if s.dialect.isForeignKey(err) {
				return internal_errors.Validation("author does not exist")
			}
			return fmt.Errorf("failed to insert thread: %w", err)
		}
		thread.CreatedAt = createdAt
		return nil
	})
	if err != nil {
		return domain.Thread{}, err
	}
	return thread, nil
}

func (s *Storage) Thread(ctx context.Context, id domain.ThreadId) (domain.Thread, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	thread, err := scanThread(s.db.QueryRowContext(ctx, s.q("SELECT "+threadColumns+" FROM threads WHERE id = $1"), id))
	if err != nil {
		if isNoRows(err) {
			return domain.Thread{}, false, nil
		}
		return domain.Thread{}, false, fmt.Errorf("failed to get thread: %w", err)
	}
	return thread, true, nil
}

var threadOrder = map[domain.SortOrder]string{
	domain.SortLatest: "created_at DESC, id DESC",
	domain.SortOldest: "created_at ASC, id ASC",
}

func (s *Storage) ListThreads(ctx context.Context, sort domain.SortOrder, page domain.Page) ([]domain.Thread, error) {
	order, ok := threadOrder[sort]
	if !ok {
		return nil, internal_errors.Validation("unknown sort order %q", sort)
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		s.q("SELECT "+threadColumns+" FROM threads ORDER BY "+order+" LIMIT $1 OFFSET $2"),
		page.Limit, page.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	defer rows.Close()

	threads := make([]domain.Thread, 0, page.Limit)
	for rows.Next() {
		thread, err := scanThread(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}
		threads = append(threads, thread)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate threads: %w", err)
	}
	return threads, nil
}
