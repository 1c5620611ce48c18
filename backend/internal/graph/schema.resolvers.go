package graph

// This file will be automatically regenerated based on the schema, any resolver implementations
// will be copied through when generating and any unknown code will be moved to the end.
// Code generated by github.com/99designs/gqlgen version v0.17.49

import (
	"context"

	"github.com/threed-dev/threed/backend/internal/graph/model"
	"github.com/threed-dev/threed/shared/domain"
)

// CreatedBy is the resolver for the createdBy field.
func (r *likeResolver) CreatedBy(ctx context.Context, obj *domain.Like) (*domain.User, error) {
	user, err := r.env(ctx).Author(ctx, obj.CreatedBy)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateThread is the resolver for the createThread field.
func (r *mutationResolver) CreateThread(ctx context.Context, input model.ThreadInput) (*model.CreateThreadPayload, error) {
	in := domain.ThreadInput{Title: input.Title}
	// an empty text is stored as no text
	if input.Text != nil && *input.Text != "" {
		in.Text = input.Text
	}
	payload, err := r.env(ctx).CreateThread(ctx, in)
	if err != nil {
		return nil, err
	}
	return &model.CreateThreadPayload{Node: &payload.Node, Viewer: &model.Query{}}, nil
}

// Reply is the resolver for the reply field.
func (r *mutationResolver) Reply(ctx context.Context, input model.ReplyInput) (*model.ReplyPayload, error) {
	payload, err := r.env(ctx).Reply(ctx, domain.ReplyInput{ThreadId: input.ThreadID, Text: input.Text})
	if err != nil {
		return nil, err
	}
	return &model.ReplyPayload{Node: &payload.Node, Viewer: &model.Query{}}, nil
}

// LikeThread is the resolver for the likeThread field.
func (r *mutationResolver) LikeThread(ctx context.Context, threadID string) (*model.LikeThreadPayload, error) {
	payload, err := r.env(ctx).LikeThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return &model.LikeThreadPayload{Node: &payload.Node, Viewer: &model.Query{}}, nil
}

// LikeReply is the resolver for the likeReply field.
func (r *mutationResolver) LikeReply(ctx context.Context, replyID string) (*model.LikeReplyPayload, error) {
	payload, err := r.env(ctx).LikeReply(ctx, replyID)
	if err != nil {
		return nil, err
	}
	return &model.LikeReplyPayload{Node: &payload.Node, Viewer: &model.Query{}}, nil
}

// Signup is the resolver for the signup field.
func (r *mutationResolver) Signup(ctx context.Context, username string, password string) (*model.SigninResult, error) {
	result, err := r.env(ctx).Signup(ctx, domain.Credentials{Username: username, Password: password})
	if err != nil {
		return nil, err
	}
	return &model.SigninResult{User: &result.User, Token: result.Token, Viewer: &model.Query{}}, nil
}

// Signin is the resolver for the signin field.
func (r *mutationResolver) Signin(ctx context.Context, username string, password string) (*model.SigninResult, error) {
	result, err := r.env(ctx).Signin(ctx, domain.Credentials{Username: username, Password: password})
	if err != nil {
		return nil, err
	}
	return &model.SigninResult{User: &result.User, Token: result.Token, Viewer: &model.Query{}}, nil
}

// Threads is the resolver for the threads field.
func (r *queryResolver) Threads(ctx context.Context, sortBy model.SortBy, skip *int, limit *int) ([]domain.Thread, error) {
	return r.env(ctx).Threads(ctx, domain.SortOrder(sortBy), skip, limit)
}

// Thread is the resolver for the thread field.
func (r *queryResolver) Thread(ctx context.Context, id string) (*domain.Thread, error) {
	thread, found, err := r.env(ctx).Thread(ctx, id)
	if err != nil || !found {
		return nil, err
	}
	return &thread, nil
}

// Me is the resolver for the me field.
func (r *queryResolver) Me(ctx context.Context) (*domain.User, error) {
	user, found, err := r.env(ctx).Me(ctx)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

// TextHTML is the resolver for the textHtml field.
func (r *replyResolver) TextHTML(ctx context.Context, obj *domain.Reply) (string, error) {
	html, err := r.env(ctx).TextHTML(&obj.Text)
	if err != nil || html == nil {
		return "", err
	}
	return *html, nil
}

// Thread is the resolver for the thread field.
func (r *replyResolver) Thread(ctx context.Context, obj *domain.Reply) (*domain.Thread, error) {
	thread, err := r.env(ctx).ReplyThread(ctx, *obj)
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

// CreatedBy is the resolver for the createdBy field.
func (r *replyResolver) CreatedBy(ctx context.Context, obj *domain.Reply) (*domain.User, error) {
	user, err := r.env(ctx).Author(ctx, obj.CreatedBy)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// LikesNumber is the resolver for the likesNumber field.
func (r *replyResolver) LikesNumber(ctx context.Context, obj *domain.Reply) (int, error) {
	return r.env(ctx).LikesNumber(ctx, domain.ReplyTarget(obj.Id))
}

// Likes is the resolver for the likes field.
func (r *replyResolver) Likes(ctx context.Context, obj *domain.Reply, skip *int, limit *int) ([]domain.Like, error) {
	return r.env(ctx).Likes(ctx, domain.ReplyTarget(obj.Id), skip, limit)
}

// HasUserLiked is the resolver for the hasUserLiked field.
func (r *replyResolver) HasUserLiked(ctx context.Context, obj *domain.Reply) (*bool, error) {
	liked, err := r.env(ctx).HasUserLiked(ctx, domain.ReplyTarget(obj.Id))
	if err != nil {
		return nil, err
	}
	return optional(liked), nil
}

// NewThread is the resolver for the newThread field.
func (r *subscriptionResolver) NewThread(ctx context.Context) (<-chan *domain.Thread, error) {
	return relay[domain.Thread](ctx, r.env(ctx).SubscribeNewThread(ctx)), nil
}

// NewReply is the resolver for the newReply field.
func (r *subscriptionResolver) NewReply(ctx context.Context, threadID string) (<-chan *domain.Reply, error) {
	return relay[domain.Reply](ctx, r.env(ctx).SubscribeNewReply(ctx, threadID)), nil
}

// NewThreadLike is the resolver for the newThreadLike field.
func (r *subscriptionResolver) NewThreadLike(ctx context.Context, threadID string) (<-chan *domain.Thread, error) {
	return relay[domain.Thread](ctx, r.env(ctx).SubscribeNewThreadLike(ctx, threadID)), nil
}

// NewReplyLike is the resolver for the newReplyLike field.
func (r *subscriptionResolver) NewReplyLike(ctx context.Context, replyID string) (<-chan *domain.Reply, error) {
	return relay[domain.Reply](ctx, r.env(ctx).SubscribeNewReplyLike(ctx, replyID)), nil
}

// TextHTML is the resolver for the textHtml field.
func (r *threadResolver) TextHTML(ctx context.Context, obj *domain.Thread) (*string, error) {
	return r.env(ctx).TextHTML(obj.Text)
}

// CreatedBy is the resolver for the createdBy field.
func (r *threadResolver) CreatedBy(ctx context.Context, obj *domain.Thread) (*domain.User, error) {
	user, err := r.env(ctx).Author(ctx, obj.CreatedBy)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// RepliesNumber is the resolver for the repliesNumber field.
func (r *threadResolver) RepliesNumber(ctx context.Context, obj *domain.Thread) (*int, error) {
	n, err := r.env(ctx).RepliesNumber(ctx, obj.Id)
	if err != nil {
		return nil, err
	}
	return optional(n), nil
}

// Replies is the resolver for the replies field.
func (r *threadResolver) Replies(ctx context.Context, obj *domain.Thread, skip *int, limit *int) ([]domain.Reply, error) {
	return r.env(ctx).Replies(ctx, obj.Id, skip, limit)
}

// LikesNumber is the resolver for the likesNumber field.
func (r *threadResolver) LikesNumber(ctx context.Context, obj *domain.Thread) (*int, error) {
	n, err := r.env(ctx).LikesNumber(ctx, domain.ThreadTarget(obj.Id))
	if err != nil {
		return nil, err
	}
	return optional(n), nil
}

// Likes is the resolver for the likes field.
func (r *threadResolver) Likes(ctx context.Context, obj *domain.Thread, skip *int, limit *int) ([]domain.Like, error) {
	return r.env(ctx).Likes(ctx, domain.ThreadTarget(obj.Id), skip, limit)
}

// HasUserLiked is the resolver for the hasUserLiked field.
func (r *threadResolver) HasUserLiked(ctx context.Context, obj *domain.Thread) (*bool, error) {
	liked, err := r.env(ctx).HasUserLiked(ctx, domain.ThreadTarget(obj.Id))
	if err != nil {
		return nil, err
	}
	return optional(liked), nil
}

// Like returns LikeResolver implementation.
func (r *Resolver) Like() LikeResolver { return &likeResolver{r} }

// Mutation returns MutationResolver implementation.
func (r *Resolver) Mutation() MutationResolver { return &mutationResolver{r} }

// Query returns QueryResolver implementation.
func (r *Resolver) Query() QueryResolver { return &queryResolver{r} }

// Reply returns ReplyResolver implementation.
func (r *Resolver) Reply() ReplyResolver { return &replyResolver{r} }

// Subscription returns SubscriptionResolver implementation.
func (r *Resolver) Subscription() SubscriptionResolver { return &subscriptionResolver{r} }

// Thread returns ThreadResolver implementation.
func (r *Resolver) Thread() ThreadResolver { return &threadResolver{r} }

type likeResolver struct{ *Resolver }
type mutationResolver struct{ *Resolver }
type queryResolver struct{ *Resolver }
type replyResolver struct{ *Resolver }
type subscriptionResolver struct{ *Resolver }
type threadResolver struct{ *Resolver }
