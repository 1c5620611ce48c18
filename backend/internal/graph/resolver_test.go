package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/99designs/gqlgen/client"
	gqlhandler "github.com/99designs/gqlgen/graphql/handler"
	"github.com/99designs/gqlgen/graphql/handler/extension"
	"github.com/99designs/gqlgen/graphql/handler/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"golang.org/x/crypto/bcrypt"

	"github.com/threed-dev/threed/backend/internal/markdown"
	"github.com/threed-dev/threed/backend/internal/pubsub"
	"github.com/threed-dev/threed/backend/internal/service"
	"github.com/threed-dev/threed/backend/internal/storage"
	"github.com/threed-dev/threed/shared/crypto"
	"github.com/threed-dev/threed/shared/domain"
	internal_errors "github.com/threed-dev/threed/shared/errors"
	"github.com/threed-dev/threed/shared/jwt"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fixture struct {
	svc *service.Service
	srv *gqlhandler.Server
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	repo, err := storage.OpenSqlite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Cleanup() })

	creds, err := crypto.NewBcrypt(bcrypt.MinCost)
	require.NoError(t, err)

	svc := service.New(repo, creds, jwt.New("test-secret", 0), pubsub.NewBus(8), markdown.New(), service.DefaultPagination())

	srv := gqlhandler.New(NewSchema(svc))
	srv.AddTransport(transport.POST{})
	srv.Use(extension.Introspection{})
	srv.SetErrorPresenter(ErrorPresenter(discard))
	srv.SetRecoverFunc(Recover(discard))
	return fixture{svc: svc, srv: srv}
}

func (f fixture) anon() service.Env {
	return f.svc.Env(domain.Anonymous())
}

// run executes query as env and returns data decoded as generic JSON.
func (f fixture) run(t *testing.T, env service.Env, query string, vars map[string]any) (map[string]any, gqlerror.List) {
	t.Helper()
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.srv.ServeHTTP(w, r.WithContext(WithEnv(r.Context(), env)))
	})
	var opts []client.Option
	for name, value := range vars {
		opts = append(opts, client.Var(name, value))
	}
	resp, err := client.New(h).RawPost(query, opts...)
	require.NoError(t, err)

	var errs gqlerror.List
	if len(resp.Errors) > 0 {
		require.NoError(t, json.Unmarshal(resp.Errors, &errs))
	}
	data, _ := resp.Data.(map[string]any)
	return data, errs
}

func (f fixture) signup(t *testing.T, username string) service.Env {
	t.Helper()
	data, errs := f.run(t, f.anon(), `mutation($u: String!, $p: String!) { signup(username: $u, password: $p) { token user { id username } } }`,
		map[string]any{"u": username, "p": "secret-" + username})
	require.Empty(t, errs)
	user := data["signup"].(map[string]any)["user"].(map[string]any)
	return f.svc.Env(domain.Authenticated(domain.Identity{Id: user["id"].(string), Username: username}))
}

func dig(v any, keys ...any) any {
	for _, k := range keys {
		switch key := k.(type) {
		case string:
			v = v.(map[string]any)[key]
		case int:
			v = v.([]any)[key]
		}
	}
	return v
}

func TestCreateThreadAndQueryGraph(t *testing.T) {
	f := newFixture(t)
	alice := f.signup(t, "alice")

	data, errs := f.run(t, alice, `mutation { createThread(input: {title: "Hello", text: "**hi** <script>x</script>"}) {
		node { id title textHtml createdBy { username } }
		viewer { me { username } }
	} }`, nil)
	require.Empty(t, errs)
	assert.Equal(t, "Hello", dig(data, "createThread", "node", "title"))
	assert.Equal(t, "alice", dig(data, "createThread", "node", "createdBy", "username"))
	assert.Equal(t, "alice", dig(data, "createThread", "viewer", "me", "username"))
	html := dig(data, "createThread", "node", "textHtml").(string)
	assert.Contains(t, html, "<strong>hi</strong>")
	assert.NotContains(t, html, "<script>")
	threadId := dig(data, "createThread", "node", "id").(string)

	_, errs = f.run(t, alice, `mutation($id: ID!) { reply(input: {threadId: $id, text: "first"}) { node { id } } }`, map[string]any{"id": threadId})
	require.Empty(t, errs)
	_, errs = f.run(t, alice, `mutation($id: ID!) { likeThread(threadId: $id) { node { likesNumber hasUserLiked } } }`, map[string]any{"id": threadId})
	require.Empty(t, errs)

	t.Run("anonymous view", func(t *testing.T) {
		data, errs := f.run(t, f.anon(), `{
			me { id }
			threads(sortBy: LATEST) {
				title text repliesNumber likesNumber hasUserLiked createdAt
				replies { text textHtml thread { id } createdBy { username } likesNumber likes { id } hasUserLiked }
				likes { createdBy { username } }
			}
		}`, nil)
		require.Empty(t, errs)
		assert.Nil(t, data["me"])
		thread := dig(data, "threads", 0)
		assert.EqualValues(t, 1, dig(thread, "repliesNumber"))
		assert.EqualValues(t, 1, dig(thread, "likesNumber"))
		assert.Equal(t, false, dig(thread, "hasUserLiked"))
		assert.Equal(t, threadId, dig(thread, "replies", 0, "thread", "id"))
		assert.Equal(t, "<p>first</p>\n", dig(thread, "replies", 0, "textHtml"))
		assert.Equal(t, "alice", dig(thread, "likes", 0, "createdBy", "username"))

		createdAt, err := time.Parse(time.RFC3339Nano, dig(thread, "createdAt").(string))
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now(), createdAt, time.Minute)
	})

	t.Run("liker view", func(t *testing.T) {
		data, errs := f.run(t, alice, `query($id: ID!) { thread(id: $id) { hasUserLiked } missing: thread(id: "nope") { id } }`, map[string]any{"id": threadId})
		require.Empty(t, errs)
		assert.Equal(t, true, dig(data, "thread", "hasUserLiked"))
		assert.Nil(t, data["missing"])
	})

	t.Run("empty text is no text", func(t *testing.T) {
		data, errs := f.run(t, alice, `mutation { createThread(input: {title: "bare", text: ""}) { node { text textHtml } } }`, nil)
		require.Empty(t, errs)
		assert.Nil(t, dig(data, "createThread", "node", "text"))
		assert.Nil(t, dig(data, "createThread", "node", "textHtml"))
	})
}

func TestErrorsCarryCodes(t *testing.T) {
	f := newFixture(t)
	bob := f.signup(t, "bob")

	tests := []struct {
		name     string
		env      service.Env
		query    string
		wantCode string
		wantMsg  string
	}{
		{
			name:     "mutation without identity",
			env:      f.anon(),
			query:    `mutation { likeThread(threadId: "x") { node { id } } }`,
			wantCode: internal_errors.CodeUnauthenticated,
			wantMsg:  "Not Authenticated",
		},
		{
			name:     "wrong password",
			env:      f.anon(),
			query:    `mutation { signin(username: "bob", password: "nope") { token } }`,
			wantCode: internal_errors.CodeInvalidCredentials,
			wantMsg:  "Incorrect username or password",
		},
		{
			name:     "unknown user",
			env:      f.anon(),
			query:    `mutation { signin(username: "carol", password: "nope") { token } }`,
			wantCode: internal_errors.CodeInvalidCredentials,
			wantMsg:  "Incorrect username or password",
		},
		{
			name:     "username taken",
			env:      f.anon(),
			query:    `mutation { signup(username: "bob", password: "x") { token } }`,
			wantCode: internal_errors.CodeBadUserInput,
			wantMsg:  internal_errors.ErrUsernameTaken.Message,
		},
		{
			name:     "negative skip",
			env:      f.anon(),
			query:    `{ threads(sortBy: OLDEST, skip: -1) { id } }`,
			wantCode: internal_errors.CodeBadUserInput,
		},
		{
			name:     "reply to a missing thread",
			env:      bob,
			query:    `mutation { reply(input: {threadId: "missing", text: "x"}) { node { id } } }`,
			wantCode: internal_errors.CodeBadUserInput,
		},
		{
			name:     "empty title",
			env:      bob,
			query:    `mutation { createThread(input: {title: ""}) { node { id } } }`,
			wantCode: internal_errors.CodeBadUserInput,
			wantMsg:  "title is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := f.run(t, tt.env, tt.query, nil)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.wantCode, errs[0].Extensions["code"])
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, errs[0].Message)
			}
			assert.NotEmpty(t, errs[0].Path)
		})
	}
}

func TestIntrospection(t *testing.T) {
	f := newFixture(t)

	data, errs := f.run(t, f.anon(), `{ __schema { types { name } } }`, nil)
	require.Empty(t, errs)

	var names []string
	for _, typ := range dig(data, "__schema", "types").([]any) {
		names = append(names, dig(typ, "name").(string))
	}
	assert.Subset(t, names, []string{"Query", "Mutation", "Subscription", "Thread", "Reply", "Like", "User", "SortBy", "DateTime"})
}

func TestEnvFallsBackToAnonymous(t *testing.T) {
	f := newFixture(t)
	r := &Resolver{envs: f.svc}

	me, err := r.Query().Me(context.Background())
	require.NoError(t, err)
	assert.Nil(t, me)

	_, err = r.Mutation().LikeThread(context.Background(), "x")
	assert.Equal(t, internal_errors.ClassAuthorization, internal_errors.ClassOf(err))
}

func TestPresenterHidesInternalErrors(t *testing.T) {
	present := ErrorPresenter(discard)
	ctx := context.Background()

	t.Run("repository failure", func(t *testing.T) {
		gerr := present(ctx, fmt.Errorf("query threads: %w", errors.New("connection refused")))
		assert.Equal(t, "Internal server error", gerr.Message)
		assert.Equal(t, internal_errors.CodeInternal, gerr.Extensions["code"])
	})

	t.Run("wrapped on a path", func(t *testing.T) {
		gerr := present(ctx, gqlerror.WrapPath(nil, errors.New("connection refused")))
		assert.Equal(t, "Internal server error", gerr.Message)
	})

	t.Run("domain error", func(t *testing.T) {
		gerr := present(ctx, gqlerror.WrapPath(nil, fmt.Errorf("wrapped: %w", internal_errors.Validation("title is required"))))
		assert.Equal(t, "title is required", gerr.Message)
		assert.Equal(t, internal_errors.CodeBadUserInput, gerr.Extensions["code"])
	})

	t.Run("graphql error", func(t *testing.T) {
		gerr := present(ctx, gqlerror.Errorf("must not be null"))
		assert.Equal(t, "must not be null", gerr.Message)
	})
}

func TestRecoverHidesPanics(t *testing.T) {
	gerr := ErrorPresenter(discard)(context.Background(), Recover(discard)(context.Background(), "boom"))
	assert.Equal(t, "Internal server error", gerr.Message)
}

func TestSubscriptions(t *testing.T) {
	f := newFixture(t)
	alice := f.signup(t, "alice")
	subs := (&Resolver{envs: f.svc}).Subscription()

	newThread := func(title string) string {
		data, errs := f.run(t, alice, `mutation($t: String!) { createThread(input: {title: $t}) { node { id } } }`, map[string]any{"t": title})
		require.Empty(t, errs)
		return dig(data, "createThread", "node", "id").(string)
	}
	reply := func(threadId, text string) string {
		data, errs := f.run(t, alice, `mutation($id: ID!, $x: String!) { reply(input: {threadId: $id, text: $x}) { node { id } } }`, map[string]any{"id": threadId, "x": text})
		require.Empty(t, errs)
		return dig(data, "reply", "node", "id").(string)
	}
	likeThread := func(id string) {
		_, errs := f.run(t, alice, `mutation($id: ID!) { likeThread(threadId: $id) { node { id } } }`, map[string]any{"id": id})
		require.Empty(t, errs)
	}
	likeReply := func(id string) {
		_, errs := f.run(t, alice, `mutation($id: ID!) { likeReply(replyId: $id) { node { id } } }`, map[string]any{"id": id})
		require.Empty(t, errs)
	}

	x, y := newThread("x"), newThread("y")

	t.Run("newReply filters by thread", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		stream, err := subs.NewReply(ctx, x)
		require.NoError(t, err)

		reply(y, "to y")
		reply(x, "to x")
		got := next(t, stream)
		assert.Equal(t, "to x", got.Text)
		assert.Equal(t, x, got.ThreadId)
		nothing(t, stream)
	})

	t.Run("newReplyLike delivers the reply", func(t *testing.T) {
		replyId := reply(x, "like me")
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		stream, err := subs.NewReplyLike(ctx, replyId)
		require.NoError(t, err)

		likeReply(replyId)
		assert.Equal(t, replyId, next(t, stream).Id)
	})

	t.Run("newThreadLike delivers the thread", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		stream, err := subs.NewThreadLike(ctx, y)
		require.NoError(t, err)

		likeThread(x)
		nothing(t, stream)
		likeThread(y)
		assert.Equal(t, "y", next(t, stream).Title)
	})

	t.Run("newThread only sees later threads", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		stream, err := subs.NewThread(ctx)
		require.NoError(t, err)
		nothing(t, stream)

		newThread("z")
		assert.Equal(t, "z", next(t, stream).Title)

		cancel()
		require.Eventually(t, func() bool {
			select {
			case _, ok := <-stream:
				return !ok
			default:
				return false
			}
		}, time.Second, 5*time.Millisecond)
	})
}

func next[T any](t *testing.T, stream <-chan *T) *T {
	t.Helper()
	select {
	case v, ok := <-stream:
		require.True(t, ok, "stream closed")
		return v
	case <-time.After(time.Second):
		t.Fatal("no event")
		return nil
	}
}

func nothing[T any](t *testing.T, stream <-chan *T) {
	t.Helper()
	select {
	case v := <-stream:
		t.Fatalf("unexpected event %+v", v)
	case <-time.After(30 * time.Millisecond):
	}
}
