package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/threed-dev/threed/backend/internal/markdown"
	"github.com/threed-dev/threed/backend/internal/pubsub"
	"github.com/threed-dev/threed/backend/internal/storage"
	"github.com/threed-dev/threed/shared/crypto"
	"github.com/threed-dev/threed/shared/domain"
	internal_errors "github.com/threed-dev/threed/shared/errors"
	"github.com/threed-dev/threed/shared/jwt"
	"golang.org/x/crypto/bcrypt"
)

// --- Mocks ---

// MockEventBus records publishes and can be told to fail.
type MockEventBus struct {
	publishFunc func(topic string, payload any) error

	mu        sync.Mutex
	published []string
	log       *[]string
}

func (m *MockEventBus) Publish(ctx context.Context, topic string, payload any) error {
	m.mu.Lock()
	m.published = append(m.published, topic)
	if m.log != nil {
		*m.log = append(*m.log, "publish:"+topic)
	}
	m.mu.Unlock()
	if m.publishFunc != nil {
		return m.publishFunc(topic, payload)
	}
	return nil
}

func (m *MockEventBus) Subscribe(ctx context.Context, topic string, predicate pubsub.Predicate) *pubsub.Subscription {
	return pubsub.NewBus(1).Subscribe(ctx, topic, predicate)
}

func (m *MockEventBus) Published() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.published...)
}

// MockCredentialStore skips bcrypt and counts decoy comparisons.
type MockCredentialStore struct {
	mu          sync.Mutex
	decoyCalled int
}

func (m *MockCredentialStore) Hash(plaintext string) (string, error) {
	return "hashed:" + plaintext, nil
}

func (m *MockCredentialStore) Verify(plaintext, hash string) bool {
	return hash == "hashed:"+plaintext
}

func (m *MockCredentialStore) Decoy(plaintext string) {
	m.mu.Lock()
	m.decoyCalled++
	m.mu.Unlock()
}

// recordingRepository notes when inserts return.
type recordingRepository struct {
	*storage.Storage
	log *[]string
}

func (r recordingRepository) InsertThread(ctx context.Context, input domain.ThreadInput, author domain.UserId) (domain.Thread, error) {
	t, err := r.Storage.InsertThread(ctx, input, author)
	*r.log = append(*r.log, "insert:thread")
	return t, err
}

// --- Helpers ---

type fixture struct {
	svc    *Service
	repo   *storage.Storage
	bus    *pubsub.Bus
	tokens *jwt.Jwt
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	repo, err := storage.OpenSqlite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Cleanup() })

	creds, err := crypto.NewBcrypt(bcrypt.MinCost)
	require.NoError(t, err)
	tokens := jwt.New("test-secret", 0)
	bus := pubsub.NewBus(8)

	return fixture{
		svc:    New(repo, creds, tokens, bus, markdown.New(), DefaultPagination()),
		repo:   repo,
		bus:    bus,
		tokens: tokens,
	}
}

func (f fixture) signup(t *testing.T, username string) Env {
	t.Helper()
	res, err := f.svc.Env(domain.Anonymous()).Signup(context.Background(), domain.Credentials{Username: username, Password: "pw-" + username})
	require.NoError(t, err)
	return f.svc.Env(domain.Authenticated(res.User.Identity()))
}

func receive(t *testing.T, sub *pubsub.Subscription) any {
	t.Helper()
	select {
	case v, ok := <-sub.C():
		require.True(t, ok, "subscription closed")
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func assertNoEvent(t *testing.T, sub *pubsub.Subscription) {
	t.Helper()
	select {
	case v := <-sub.C():
		t.Fatalf("unexpected event %v", v)
	case <-time.After(20 * time.Millisecond):
	}
}

func intPtr(i int) *int { return &i }

// --- Tests ---

func TestSignupSigninRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	anon := f.svc.Env(domain.Anonymous())

	up, err := anon.Signup(ctx, domain.Credentials{Username: "alice", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, "alice", up.User.Username)
	assert.NotEqual(t, "correct horse", up.User.PassHash)

	in, err := anon.Signin(ctx, domain.Credentials{Username: "alice", Password: "correct horse"})
	require.NoError(t, err)

	identity, err := f.tokens.DecodeToken(in.Token)
	require.NoError(t, err)
	assert.Equal(t, up.User.Id, identity.Id)
	assert.Equal(t, up.User.Id, in.User.Id)
}

func TestSignup_Duplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	anon := f.svc.Env(domain.Anonymous())

	_, err := anon.Signup(ctx, domain.Credentials{Username: "bob", Password: "x"})
	require.NoError(t, err)

	_, err = anon.Signup(ctx, domain.Credentials{Username: "bob", Password: "y"})
	assert.ErrorIs(t, err, internal_errors.ErrUsernameTaken)
	assert.Equal(t, internal_errors.ClassValidation, internal_errors.ClassOf(err))
}

func TestSignup_ConcurrentDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	anon := f.svc.Env(domain.Anonymous())

	const n = 6
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = anon.Signup(ctx, domain.Credentials{Username: "carol", Password: "pw"})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, internal_errors.ErrUsernameTaken)
	}
	assert.Equal(t, 1, ok)

	_, found, err := f.repo.UserByUsername(ctx, "carol")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestSignup_Validation(t *testing.T) {
	f := newFixture(t)
	anon := f.svc.Env(domain.Anonymous())

	_, err := anon.Signup(context.Background(), domain.Credentials{Username: "", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, internal_errors.ClassValidation, internal_errors.ClassOf(err))
	assert.Equal(t, "username is required", err.Error())

	t.Run("password length counts bytes", func(t *testing.T) {
		// 40 runes, 80 bytes
		_, err := anon.Signup(context.Background(), domain.Credentials{Username: "erin", Password: strings.Repeat("é", 40)})
		require.Error(t, err)
		assert.Equal(t, internal_errors.ClassValidation, internal_errors.ClassOf(err))
		assert.Equal(t, "password must be at most 72 bytes", err.Error())

		_, found, err := f.repo.UserByUsername(context.Background(), "erin")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("72 bytes still fit", func(t *testing.T) {
		_, err := anon.Signup(context.Background(), domain.Credentials{Username: "frank", Password: strings.Repeat("é", 36)})
		require.NoError(t, err)
	})
}

func TestSignin_GenericFailure(t *testing.T) {
	repo, err := storage.OpenSqlite(context.Background(), ":memory:")
	require.NoError(t, err)
	defer repo.Cleanup()

	creds := &MockCredentialStore{}
	svc := New(repo, creds, jwt.New("k", 0), pubsub.NewBus(1), markdown.New(), DefaultPagination())
	anon := svc.Env(domain.Anonymous())
	ctx := context.Background()

	_, err = anon.Signup(ctx, domain.Credentials{Username: "dave", Password: "right"})
	require.NoError(t, err)

	_, wrongPassword := anon.Signin(ctx, domain.Credentials{Username: "dave", Password: "wrong"})
	_, unknownUser := anon.Signin(ctx, domain.Credentials{Username: "nobody", Password: "right"})

	require.Error(t, wrongPassword)
	require.Error(t, unknownUser)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
	assert.Equal(t, internal_errors.ClassCredential, internal_errors.ClassOf(unknownUser))
	assert.Equal(t, 1, creds.decoyCalled)
}

func TestMutations_RequireIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.signup(t, "erin")
	thread, err := author.CreateThread(ctx, domain.ThreadInput{Title: "t"})
	require.NoError(t, err)
	reply, err := author.Reply(ctx, domain.ReplyInput{ThreadId: thread.Node.Id, Text: "r"})
	require.NoError(t, err)

	anon := f.svc.Env(domain.Anonymous())
	threadLikes := f.bus.Subscribe(ctx, TopicNewThreadLike, nil)
	defer threadLikes.Close()
	newThreads := f.bus.Subscribe(ctx, TopicNewThread, nil)
	defer newThreads.Close()

	_, err = anon.LikeThread(ctx, thread.Node.Id)
	assert.Equal(t, internal_errors.ClassAuthorization, internal_errors.ClassOf(err))
	assert.Equal(t, "Not Authenticated", err.Error())

	_, err = anon.LikeReply(ctx, reply.Node.Id)
	assert.Equal(t, internal_errors.ClassAuthorization, internal_errors.ClassOf(err))

	_, err = anon.CreateThread(ctx, domain.ThreadInput{Title: "sneaky"})
	assert.Equal(t, internal_errors.ClassAuthorization, internal_errors.ClassOf(err))

	_, err = anon.Reply(ctx, domain.ReplyInput{ThreadId: thread.Node.Id, Text: "sneaky"})
	assert.Equal(t, internal_errors.ClassAuthorization, internal_errors.ClassOf(err))

	n, err := f.repo.CountLikes(ctx, domain.ThreadTarget(thread.Node.Id))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	n, err = f.repo.CountLikes(ctx, domain.ReplyTarget(reply.Node.Id))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	assertNoEvent(t, threadLikes)
	assertNoEvent(t, newThreads)
}

func TestCreateThread_PublishesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.signup(t, "frank")

	early := author.SubscribeNewThread(ctx)
	defer early.Close()

	res, err := author.CreateThread(ctx, domain.ThreadInput{Title: "hello"})
	require.NoError(t, err)

	late := author.SubscribeNewThread(ctx)
	defer late.Close()

	assert.Equal(t, res.Node, receive(t, early))
	assertNoEvent(t, early)
	assertNoEvent(t, late)
}

func TestCreateThread_PublishAfterInsert(t *testing.T) {
	repo, err := storage.OpenSqlite(context.Background(), ":memory:")
	require.NoError(t, err)
	defer repo.Cleanup()

	var log []string
	bus := &MockEventBus{log: &log}
	svc := New(recordingRepository{Storage: repo, log: &log}, &MockCredentialStore{}, jwt.New("k", 0), bus, markdown.New(), DefaultPagination())
	ctx := context.Background()

	user, err := repo.InsertUser(ctx, "gina", "h")
	require.NoError(t, err)
	_, err = svc.Env(domain.Authenticated(user.Identity())).CreateThread(ctx, domain.ThreadInput{Title: "ordered"})
	require.NoError(t, err)

	assert.Equal(t, []string{"insert:thread", "publish:newThread"}, log)
}

func TestCreateThread_PublishFailureKeepsWrite(t *testing.T) {
	repo, err := storage.OpenSqlite(context.Background(), ":memory:")
	require.NoError(t, err)
	defer repo.Cleanup()

	bus := &MockEventBus{publishFunc: func(string, any) error { return errors.New("bus down") }}
	svc := New(repo, &MockCredentialStore{}, jwt.New("k", 0), bus, markdown.New(), DefaultPagination())
	ctx := context.Background()

	user, err := repo.InsertUser(ctx, "hank", "h")
	require.NoError(t, err)
	res, err := svc.Env(domain.Authenticated(user.Identity())).CreateThread(ctx, domain.ThreadInput{Title: "kept"})
	require.NoError(t, err)

	_, found, err := repo.Thread(ctx, res.Node.Id)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{TopicNewThread}, bus.Published())
}

func TestCreateThread_InvalidInputWritesNothing(t *testing.T) {
	repo, err := storage.OpenSqlite(context.Background(), ":memory:")
	require.NoError(t, err)
	defer repo.Cleanup()

	bus := &MockEventBus{}
	svc := New(repo, &MockCredentialStore{}, jwt.New("k", 0), bus, markdown.New(), DefaultPagination())
	ctx := context.Background()
	user, err := repo.InsertUser(ctx, "ivan", "h")
	require.NoError(t, err)

	_, err = svc.Env(domain.Authenticated(user.Identity())).CreateThread(ctx, domain.ThreadInput{Title: ""})
	require.Error(t, err)
	assert.Equal(t, "title is required", err.Error())

	threads, err := repo.ListThreads(ctx, domain.SortLatest, domain.DefaultPage())
	require.NoError(t, err)
	assert.Empty(t, threads)
	assert.Empty(t, bus.Published())
}

func TestNewReply_FiltersByThread(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.signup(t, "judy")

	x, err := author.CreateThread(ctx, domain.ThreadInput{Title: "X"})
	require.NoError(t, err)
	y, err := author.CreateThread(ctx, domain.ThreadInput{Title: "Y"})
	require.NoError(t, err)

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	onX := f.svc.Env(domain.Anonymous()).SubscribeNewReply(subCtx, x.Node.Id)

	r1, err := author.Reply(ctx, domain.ReplyInput{ThreadId: x.Node.Id, Text: "one"})
	require.NoError(t, err)
	_, err = author.Reply(ctx, domain.ReplyInput{ThreadId: y.Node.Id, Text: "other"})
	require.NoError(t, err)
	r2, err := author.Reply(ctx, domain.ReplyInput{ThreadId: x.Node.Id, Text: "two"})
	require.NoError(t, err)

	assert.Equal(t, r1.Node, receive(t, onX))
	assert.Equal(t, r2.Node, receive(t, onX))
	assertNoEvent(t, onX)
}

func TestLikes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.signup(t, "kate")
	liker := f.signup(t, "leo")
	anon := f.svc.Env(domain.Anonymous())

	thread, err := author.CreateThread(ctx, domain.ThreadInput{Title: "likeable"})
	require.NoError(t, err)
	reply, err := author.Reply(ctx, domain.ReplyInput{ThreadId: thread.Node.Id, Text: "r"})
	require.NoError(t, err)
	threadTarget := domain.ThreadTarget(thread.Node.Id)
	replyTarget := domain.ReplyTarget(reply.Node.Id)

	threadLikes := anon.SubscribeNewThreadLike(ctx, thread.Node.Id)
	defer threadLikes.Close()
	replyLikes := anon.SubscribeNewReplyLike(ctx, reply.Node.Id)
	defer replyLikes.Close()
	otherReplyLikes := anon.SubscribeNewReplyLike(ctx, "some-other-reply")
	defer otherReplyLikes.Close()

	for _, env := range []Env{anon, liker, author} {
		liked, err := env.HasUserLiked(ctx, threadTarget)
		require.NoError(t, err)
		assert.False(t, liked)
	}

	liked, err := liker.LikeThread(ctx, thread.Node.Id)
	require.NoError(t, err)
	assert.Equal(t, thread.Node, liked.Node)
	assert.Equal(t, thread.Node, receive(t, threadLikes))

	likedReply, err := liker.LikeReply(ctx, reply.Node.Id)
	require.NoError(t, err)
	assert.Equal(t, reply.Node, likedReply.Node)
	assert.Equal(t, reply.Node, receive(t, replyLikes))
	assertNoEvent(t, otherReplyLikes)

	has, err := liker.HasUserLiked(ctx, threadTarget)
	require.NoError(t, err)
	assert.True(t, has)
	has, err = author.HasUserLiked(ctx, threadTarget)
	require.NoError(t, err)
	assert.False(t, has)
	has, err = anon.HasUserLiked(ctx, threadTarget)
	require.NoError(t, err)
	assert.False(t, has)

	n, err := anon.LikesNumber(ctx, threadTarget)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	likes, err := anon.Likes(ctx, replyTarget, nil, nil)
	require.NoError(t, err)
	require.Len(t, likes, 1)

	who, err := anon.Author(ctx, likes[0].CreatedBy)
	require.NoError(t, err)
	assert.Equal(t, "leo", who.Username)

	_, err = liker.LikeThread(ctx, "missing")
	assert.Equal(t, internal_errors.ClassValidation, internal_errors.ClassOf(err))
}

func TestThreads_OrderAndPaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.signup(t, "mia")
	anon := f.svc.Env(domain.Anonymous())

	a, err := author.CreateThread(ctx, domain.ThreadInput{Title: "A"})
	require.NoError(t, err)
	b, err := author.CreateThread(ctx, domain.ThreadInput{Title: "B"})
	require.NoError(t, err)

	latest, err := anon.Threads(ctx, domain.SortLatest, intPtr(0), intPtr(10))
	require.NoError(t, err)
	assert.Equal(t, []domain.Thread{b.Node, a.Node}, latest)

	oldest, err := anon.Threads(ctx, domain.SortOldest, intPtr(0), intPtr(1))
	require.NoError(t, err)
	assert.Equal(t, []domain.Thread{a.Node}, oldest)

	defaults, err := anon.Threads(ctx, domain.SortLatest, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, latest, defaults)

	for i := 1; i < len(latest); i++ {
		assert.False(t, latest[i].CreatedAt.After(latest[i-1].CreatedAt))
	}

	_, err = anon.Threads(ctx, domain.SortLatest, intPtr(-1), nil)
	assert.Equal(t, internal_errors.ClassValidation, internal_errors.ClassOf(err))
	_, err = anon.Threads(ctx, domain.SortLatest, nil, intPtr(-5))
	assert.Equal(t, internal_errors.ClassValidation, internal_errors.ClassOf(err))
	_, err = anon.Threads(ctx, domain.SortOrder("SIDEWAYS"), nil, nil)
	assert.Equal(t, internal_errors.ClassValidation, internal_errors.ClassOf(err))
}

func TestPage(t *testing.T) {
	svc := &Service{pagination: Pagination{DefaultLimit: 10, MaxLimit: 50}}

	page, err := svc.page(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.Page{Offset: 0, Limit: 10}, page)

	page, err = svc.page(intPtr(5), intPtr(500))
	require.NoError(t, err)
	assert.Equal(t, domain.Page{Offset: 5, Limit: 50}, page)

	page, err = svc.page(nil, intPtr(0))
	require.NoError(t, err)
	assert.Equal(t, 0, page.Limit)
}

func TestMe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, found, err := f.svc.Env(domain.Anonymous()).Me(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	env := f.signup(t, "nina")
	me, found, err := env.Me(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "nina", me.Username)
}

func TestReplyFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.signup(t, "oscar")

	text := "*hi*"
	thread, err := author.CreateThread(ctx, domain.ThreadInput{Title: "t", Text: &text})
	require.NoError(t, err)
	reply, err := author.Reply(ctx, domain.ReplyInput{ThreadId: thread.Node.Id, Text: "r"})
	require.NoError(t, err)

	parent, err := author.ReplyThread(ctx, reply.Node)
	require.NoError(t, err)
	assert.Equal(t, thread.Node, parent)

	n, err := author.RepliesNumber(ctx, thread.Node.Id)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	replies, err := author.Replies(ctx, thread.Node.Id, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []domain.Reply{reply.Node}, replies)

	html, err := author.TextHTML(thread.Node.Text)
	require.NoError(t, err)
	require.NotNil(t, html)
	assert.Contains(t, *html, "<em>hi</em>")

	html, err = author.TextHTML(nil)
	require.NoError(t, err)
	assert.Nil(t, html)
}

func TestEventCodec(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := f.signup(t, "pam")
	thread, err := author.CreateThread(ctx, domain.ThreadInput{Title: "t"})
	require.NoError(t, err)

	codec := NewEventCodec(f.repo)
	key, err := codec.Encode(TopicNewThread, thread.Node)
	require.NoError(t, err)
	assert.Equal(t, thread.Node.Id, key)

	payload, err := codec.Decode(ctx, TopicNewThreadLike, key)
	require.NoError(t, err)
	assert.Equal(t, thread.Node, payload)

	_, err = codec.Encode(TopicNewThread, "not an entity")
	assert.Error(t, err)
	_, err = codec.Decode(ctx, TopicNewReply, "missing")
	assert.Error(t, err)
	_, err = codec.Decode(ctx, "bogus", key)
	assert.Error(t, err)
}

func TestSubscriptionPredicate_RejectsForeignPayload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.svc.Env(domain.Anonymous()).SubscribeNewReply(ctx, "x")
	defer sub.Close()

	require.NoError(t, f.bus.Publish(ctx, TopicNewReply, "garbage"))
	assertNoEvent(t, sub)
}
