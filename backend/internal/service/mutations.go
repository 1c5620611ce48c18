package service

import (
	"context"
	"fmt"

	"github.com/threed-dev/threed/shared/domain"
	internal_errors "github.com/threed-dev/threed/shared/errors"
)

type CreateThreadPayload struct {
	Node domain.Thread `json:"node"`
}

type ReplyPayload struct {
	Node domain.Reply `json:"node"`
}

type LikeThreadPayload struct {
	Node domain.Thread `json:"node"`
}

type LikeReplyPayload struct {
	Node domain.Reply `json:"node"`
}

type SigninResult struct {
	User  domain.User `json:"user"`
	Token string      `json:"token"`
}

func (e Env) identity() (domain.Identity, error) {
	identity, ok := e.viewer.Identity()
	if !ok {
		return domain.Identity{}, internal_errors.Unauthorized()
	}
	return identity, nil
}

// publish runs after the write committed. A failure here cannot undo the
// write, so it is logged and the mutation still succeeds.
func (e Env) publish(ctx context.Context, topic string, payload any) {
	if err := e.svc.bus.Publish(ctx, topic, payload); err != nil {
		e.svc.log.Error("failed to publish event", "topic", topic, "error", err)
	}
}

func (e Env) CreateThread(ctx context.Context, input domain.ThreadInput) (CreateThreadPayload, error) {
	author, err := e.identity()
	if err != nil {
		return CreateThreadPayload{}, err
	}
	if err := e.svc.check(input); err != nil {
		return CreateThreadPayload{}, err
	}

	thread, err := e.svc.repo.InsertThread(ctx, input, author.Id)
	if err != nil {
		return CreateThreadPayload{}, err
	}
	e.svc.log.Info("thread created", "thread_id", thread.Id, "user_id", author.Id)

	e.publish(ctx, TopicNewThread, thread)
	return CreateThreadPayload{Node: thread}, nil
}

func (e Env) Reply(ctx context.Context, input domain.ReplyInput) (ReplyPayload, error) {
	author, err := e.identity()
	if err != nil {
		return ReplyPayload{}, err
	}
	if err := e.svc.check(input); err != nil {
		return ReplyPayload{}, err
	}

	reply, err := e.svc.repo.InsertReply(ctx, input, author.Id)
	if err != nil {
		return ReplyPayload{}, err
	}
	e.svc.log.Info("reply created", "reply_id", reply.Id, "thread_id", reply.ThreadId, "user_id", author.Id)

	e.publish(ctx, TopicNewReply, reply)
	return ReplyPayload{Node: reply}, nil
}

func (e Env) LikeThread(ctx context.Context, threadId domain.ThreadId) (LikeThreadPayload, error) {
	author, err := e.identity()
	if err != nil {
		return LikeThreadPayload{}, err
	}
	if _, err := e.svc.repo.InsertLike(ctx, domain.ThreadTarget(threadId), author.Id); err != nil {
		return LikeThreadPayload{}, err
	}

	thread, found, err := e.svc.repo.Thread(ctx, threadId)
	if err != nil {
		return LikeThreadPayload{}, err
	}
	if !found {
		return LikeThreadPayload{}, fmt.Errorf("liked thread %s not found", threadId)
	}

	e.publish(ctx, TopicNewThreadLike, thread)
	return LikeThreadPayload{Node: thread}, nil
}

func (e Env) LikeReply(ctx context.Context, replyId domain.ReplyId) (LikeReplyPayload, error) {
	author, err := e.identity()
	if err != nil {
		return LikeReplyPayload{}, err
	}
	if _, err := e.svc.repo.InsertLike(ctx, domain.ReplyTarget(replyId), author.Id); err != nil {
		return LikeReplyPayload{}, err
	}

	reply, found, err := e.svc.repo.Reply(ctx, replyId)
	if err != nil {
		return LikeReplyPayload{}, err
	}
	if !found {
		return LikeReplyPayload{}, fmt.Errorf("liked reply %s not found", replyId)
	}

	e.publish(ctx, TopicNewReplyLike, reply)
	return LikeReplyPayload{Node: reply}, nil
}

func (e Env) Signup(ctx context.Context, creds domain.Credentials) (SigninResult, error) {
	if err := e.svc.check(creds); err != nil {
		return SigninResult{}, err
	}

	_, taken, err := e.svc.repo.UserByUsername(ctx, creds.Username)
	if err != nil {
		return SigninResult{}, err
	}
	if taken {
		return SigninResult{}, internal_errors.ErrUsernameTaken
	}

	hash, err := e.svc.creds.Hash(creds.Password)
	if err != nil {
		return SigninResult{}, err
	}
	// a concurrent signup can still win here; storage reports ErrUsernameTaken
	user, err := e.svc.repo.InsertUser(ctx, creds.Username, hash)
	if err != nil {
		return SigninResult{}, err
	}

	token, err := e.svc.tokens.NewToken(user)
	if err != nil {
		return SigninResult{}, err
	}
	e.svc.log.Info("user signed up", "user_id", user.Id)
	return SigninResult{User: user, Token: token}, nil
}

// Signin answers the same way for unknown users and wrong passwords.
func (e Env) Signin(ctx context.Context, creds domain.Credentials) (SigninResult, error) {
	if err := e.svc.check(creds); err != nil {
		return SigninResult{}, internal_errors.InvalidCredentials()
	}

	user, found, err := e.svc.repo.UserByUsername(ctx, creds.Username)
	if err != nil {
		return SigninResult{}, err
	}
	if !found {
		e.svc.creds.Decoy(creds.Password)
		return SigninResult{}, internal_errors.InvalidCredentials()
	}
	if !e.svc.creds.Verify(creds.Password, user.PassHash) {
		return SigninResult{}, internal_errors.InvalidCredentials()
	}

	token, err := e.svc.tokens.NewToken(user)
	if err != nil {
		return SigninResult{}, err
	}
	return SigninResult{User: user, Token: token}, nil
}
