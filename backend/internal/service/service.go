package service

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/threed-dev/threed/backend/internal/pubsub"
	"github.com/threed-dev/threed/shared/domain"
	"github.com/threed-dev/threed/shared/logger"
)

type Repository interface {
	ListThreads(ctx context.Context, sort domain.SortOrder, page domain.Page) ([]domain.Thread, error)
	Thread(ctx context.Context, id domain.ThreadId) (domain.Thread, bool, error)
	Reply(ctx context.Context, id domain.ReplyId) (domain.Reply, bool, error)
	User(ctx context.Context, id domain.UserId) (domain.User, bool, error)
	UserByUsername(ctx context.Context, username domain.Username) (domain.User, bool, error)

	CountReplies(ctx context.Context, threadId domain.ThreadId) (int, error)
	ListReplies(ctx context.Context, threadId domain.ThreadId, page domain.Page) ([]domain.Reply, error)
	CountLikes(ctx context.Context, target domain.LikeTarget) (int, error)
	ListLikes(ctx context.Context, target domain.LikeTarget, page domain.Page) ([]domain.Like, error)
	HasLiked(ctx context.Context, viewer domain.Viewer, target domain.LikeTarget) (bool, error)

	InsertThread(ctx context.Context, input domain.ThreadInput, author domain.UserId) (domain.Thread, error)
	InsertReply(ctx context.Context, input domain.ReplyInput, author domain.UserId) (domain.Reply, error)
	InsertLike(ctx context.Context, target domain.LikeTarget, author domain.UserId) (domain.Like, error)
	InsertUser(ctx context.Context, username domain.Username, passHash string) (domain.User, error)
}

type CredentialStore interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
	Decoy(plaintext string)
}

type TokenService interface {
	NewToken(user domain.User) (string, error)
}

type EventBus interface {
	Publish(ctx context.Context, topic string, payload any) error
	Subscribe(ctx context.Context, topic string, predicate pubsub.Predicate) *pubsub.Subscription
}

type Renderer interface {
	Render(markdown string) (string, error)
}

type Pagination struct {
	DefaultLimit int
	MaxLimit     int
}

func DefaultPagination() Pagination {
	return Pagination{DefaultLimit: domain.DefaultPageLimit, MaxLimit: 100}
}

// Service holds the process-wide collaborators. Requests never use it
// directly; they get an Env bound to their viewer.
type Service struct {
	repo       Repository
	creds      CredentialStore
	tokens     TokenService
	bus        EventBus
	md         Renderer
	validate   *validator.Validate
	pagination Pagination
	log        *slog.Logger
}

func New(repo Repository, creds CredentialStore, tokens TokenService, bus EventBus, md Renderer, pagination Pagination) *Service {
	return &Service{
		repo:       repo,
		creds:      creds,
		tokens:     tokens,
		bus:        bus,
		md:         md,
		validate:   newValidator(),
		pagination: pagination,
		log:        logger.Component("service"),
	}
}

// Env is built once per inbound operation and passed by value to every
// resolver of that operation. It has no setters.
type Env struct {
	viewer domain.Viewer
	svc    *Service
}

func (s *Service) Env(viewer domain.Viewer) Env {
	return Env{viewer: viewer, svc: s}
}

func (e Env) Viewer() domain.Viewer {
	return e.viewer
}
