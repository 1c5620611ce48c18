package service

import (
	"context"
	"fmt"

	"github.com/threed-dev/threed/backend/internal/pubsub"
	"github.com/threed-dev/threed/shared/domain"
)

// Subscriptions need no identity. Each call registers a private filtered
// channel that closes with ctx.

func (e Env) SubscribeNewThread(ctx context.Context) *pubsub.Subscription {
	return e.svc.bus.Subscribe(ctx, TopicNewThread, pubsub.All)
}

func (e Env) SubscribeNewReply(ctx context.Context, threadId domain.ThreadId) *pubsub.Subscription {
	return e.svc.bus.Subscribe(ctx, TopicNewReply, func(payload any) (bool, error) {
		reply, ok := payload.(domain.Reply)
		if !ok {
			return false, fmt.Errorf("unexpected %s payload %T", TopicNewReply, payload)
		}
		return reply.ThreadId == threadId, nil
	})
}

func (e Env) SubscribeNewThreadLike(ctx context.Context, threadId domain.ThreadId) *pubsub.Subscription {
	return e.svc.bus.Subscribe(ctx, TopicNewThreadLike, func(payload any) (bool, error) {
		thread, ok := payload.(domain.Thread)
		if !ok {
			return false, fmt.Errorf("unexpected %s payload %T", TopicNewThreadLike, payload)
		}
		return thread.Id == threadId, nil
	})
}

func (e Env) SubscribeNewReplyLike(ctx context.Context, replyId domain.ReplyId) *pubsub.Subscription {
	return e.svc.bus.Subscribe(ctx, TopicNewReplyLike, func(payload any) (bool, error) {
		reply, ok := payload.(domain.Reply)
		if !ok {
			return false, fmt.Errorf("unexpected %s payload %T", TopicNewReplyLike, payload)
		}
		return reply.Id == replyId, nil
	})
}
