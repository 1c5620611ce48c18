package service

import (
	"context"
	"fmt"

	"github.com/threed-dev/threed/shared/domain"
)

// Author resolves createdBy. Authors are never deleted, so a miss is a
// broken invariant rather than a null.
func (e Env) Author(ctx context.Context, id domain.UserId) (domain.User, error) {
	user, found, err := e.svc.repo.User(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	if !found {
		return domain.User{}, fmt.Errorf("author %s not found", id)
	}
	return user, nil
}

// ReplyThread resolves Reply.thread.
func (e Env) ReplyThread(ctx context.Context, reply domain.Reply) (domain.Thread, error) {
	thread, found, err := e.svc.repo.Thread(ctx, reply.ThreadId)
	if err != nil {
		return domain.Thread{}, err
	}
	if !found {
		return domain.Thread{}, fmt.Errorf("thread %s of reply %s not found", reply.ThreadId, reply.Id)
	}
	return thread, nil
}

func (e Env) RepliesNumber(ctx context.Context, threadId domain.ThreadId) (int, error) {
	return e.svc.repo.CountReplies(ctx, threadId)
}

func (e Env) Replies(ctx context.Context, threadId domain.ThreadId, skip, limit *int) ([]domain.Reply, error) {
	page, err := e.svc.page(skip, limit)
	if err != nil {
		return nil, err
	}
	return e.svc.repo.ListReplies(ctx, threadId, page)
}

func (e Env) LikesNumber(ctx context.Context, target domain.LikeTarget) (int, error) {
	return e.svc.repo.CountLikes(ctx, target)
}

func (e Env) Likes(ctx context.Context, target domain.LikeTarget, skip, limit *int) ([]domain.Like, error) {
	page, err := e.svc.page(skip, limit)
	if err != nil {
		return nil, err
	}
	return e.svc.repo.ListLikes(ctx, target, page)
}

func (e Env) HasUserLiked(ctx context.Context, target domain.LikeTarget) (bool, error) {
	return e.svc.repo.HasLiked(ctx, e.viewer, target)
}

// TextHTML renders optional markdown; nil stays nil.
func (e Env) TextHTML(text *domain.Text) (*string, error) {
	if text == nil {
		return nil, nil
	}
	html, err := e.svc.md.Render(*text)
	if err != nil {
		return nil, err
	}
	return &html, nil
}
