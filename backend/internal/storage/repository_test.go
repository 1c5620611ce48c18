package storage

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/threed-dev/threed/shared/domain"
	internal_errors "github.com/threed-dev/threed/shared/errors"
)

// runRepositoryTests is shared by the sqlite and postgres suites.
func runRepositoryTests(t *testing.T, fresh func(t *testing.T) *Storage) {
	ctx := context.Background()

	mustUser := func(t *testing.T, s *Storage, name string) domain.User {
		t.Helper()
		u, err := s.InsertUser(ctx, name, "hash-"+name)
		require.NoError(t, err)
		return u
	}
	mustThread := func(t *testing.T, s *Storage, author domain.UserId, title string) domain.Thread {
		t.Helper()
		th, err := s.InsertThread(ctx, domain.ThreadInput{Title: title}, author)
		require.NoError(t, err)
		return th
	}

	t.Run("users", func(t *testing.T) {
		s := fresh(t)
		alice := mustUser(t, s, "alice")
		assert.NotEmpty(t, alice.Id)
		assert.False(t, alice.CreatedAt.IsZero())

		got, found, err := s.User(ctx, alice.Id)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, alice, got)

		got, found, err = s.UserByUsername(ctx, "alice")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "hash-alice", got.PassHash)

		_, found, err = s.UserByUsername(ctx, "nobody")
		require.NoError(t, err)
		assert.False(t, found)

		_, found, err = s.User(ctx, "00000000-0000-0000-0000-000000000000")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("duplicate username", func(t *testing.T) {
		s := fresh(t)
		mustUser(t, s, "bob")

		_, err := s.InsertUser(ctx, "bob", "other")
		assert.ErrorIs(t, err, internal_errors.ErrUsernameTaken)
	})

	t.Run("concurrent duplicate username", func(t *testing.T) {
		s := fresh(t)

		const n = 8
		var wg sync.WaitGroup
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = s.InsertUser(ctx, "carol", "hash")
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, internal_errors.ErrUsernameTaken)
		}
		assert.Equal(t, 1, succeeded)
	})

	t.Run("threads ordering and pagination", func(t *testing.T) {
		s := fresh(t)
		u := mustUser(t, s, "dave")
		a := mustThread(t, s, u.Id, "A")
		b := mustThread(t, s, u.Id, "B")
		c := mustThread(t, s, u.Id, "C")

		latest, err := s.ListThreads(ctx, domain.SortLatest, domain.Page{Offset: 0, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, []domain.Thread{c, b, a}, latest)

		oldest, err := s.ListThreads(ctx, domain.SortOldest, domain.Page{Offset: 0, Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, []domain.Thread{a}, oldest)

		second, err := s.ListThreads(ctx, domain.SortOldest, domain.Page{Offset: 1, Limit: 1})
		require.NoError(t, err)
		again, err := s.ListThreads(ctx, domain.SortOldest, domain.Page{Offset: 1, Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, []domain.Thread{b}, second)
		assert.Equal(t, second, again)

		past, err := s.ListThreads(ctx, domain.SortLatest, domain.Page{Offset: 50, Limit: 10})
		require.NoError(t, err)
		assert.NotNil(t, past)
		assert.Empty(t, past)

		_, err = s.ListThreads(ctx, domain.SortOrder("RANDOM"), domain.DefaultPage())
		assert.Equal(t, internal_errors.ClassValidation, internal_errors.ClassOf(err))
	})

	t.Run("thread fields", func(t *testing.T) {
		s := fresh(t)
		u := mustUser(t, s, "erin")
		text := "**hello**"
		th, err := s.InsertThread(ctx, domain.ThreadInput{Title: "with text", Text: &text}, u.Id)
		require.NoError(t, err)

		got, found, err := s.Thread(ctx, th.Id)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, th, got)
		require.NotNil(t, got.Text)
		assert.Equal(t, text, *got.Text)

		bare := mustThread(t, s, u.Id, "no text")
		got, _, err = s.Thread(ctx, bare.Id)
		require.NoError(t, err)
		assert.Nil(t, got.Text)

		_, found, err = s.Thread(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("replies", func(t *testing.T) {
		s := fresh(t)
		u := mustUser(t, s, "frank")
		x := mustThread(t, s, u.Id, "X")
		y := mustThread(t, s, u.Id, "Y")

		r1, err := s.InsertReply(ctx, domain.ReplyInput{ThreadId: x.Id, Text: "first"}, u.Id)
		require.NoError(t, err)
		r2, err := s.InsertReply(ctx, domain.ReplyInput{ThreadId: x.Id, Text: "second"}, u.Id)
		require.NoError(t, err)
		_, err = s.InsertReply(ctx, domain.ReplyInput{ThreadId: y.Id, Text: "elsewhere"}, u.Id)
		require.NoError(t, err)

		n, err := s.CountReplies(ctx, x.Id)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		replies, err := s.ListReplies(ctx, x.Id, domain.DefaultPage())
		require.NoError(t, err)
		assert.Equal(t, []domain.Reply{r2, r1}, replies)

		got, found, err := s.Reply(ctx, r1.Id)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, r1, got)

		_, err = s.InsertReply(ctx, domain.ReplyInput{ThreadId: "missing", Text: "orphan"}, u.Id)
		require.Error(t, err)
		assert.Equal(t, internal_errors.ClassValidation, internal_errors.ClassOf(err))
	})

	t.Run("likes", func(t *testing.T) {
		s := fresh(t)
		liker := mustUser(t, s, "gina")
		other := mustUser(t, s, "hank")
		th := mustThread(t, s, other.Id, "likeable")
		reply, err := s.InsertReply(ctx, domain.ReplyInput{ThreadId: th.Id, Text: "r"}, other.Id)
		require.NoError(t, err)

		threadTarget := domain.ThreadTarget(th.Id)
		replyTarget := domain.ReplyTarget(reply.Id)
		me := domain.Authenticated(liker.Identity())

		liked, err := s.HasLiked(ctx, me, threadTarget)
		require.NoError(t, err)
		assert.False(t, liked)

		like, err := s.InsertLike(ctx, threadTarget, liker.Id)
		require.NoError(t, err)
		target, ok := like.Target()
		require.True(t, ok)
		assert.Equal(t, threadTarget, target)

		liked, err = s.HasLiked(ctx, me, threadTarget)
		require.NoError(t, err)
		assert.True(t, liked)

		liked, err = s.HasLiked(ctx, domain.Authenticated(other.Identity()), threadTarget)
		require.NoError(t, err)
		assert.False(t, liked)

		liked, err = s.HasLiked(ctx, domain.Anonymous(), threadTarget)
		require.NoError(t, err)
		assert.False(t, liked)

		// liking the thread does not like its reply
		liked, err = s.HasLiked(ctx, me, replyTarget)
		require.NoError(t, err)
		assert.False(t, liked)

		second, err := s.InsertLike(ctx, threadTarget, other.Id)
		require.NoError(t, err)
		n, err := s.CountLikes(ctx, threadTarget)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		likes, err := s.ListLikes(ctx, threadTarget, domain.DefaultPage())
		require.NoError(t, err)
		assert.Equal(t, []domain.Like{second, like}, likes)

		n, err = s.CountLikes(ctx, replyTarget)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		_, err = s.InsertLike(ctx, replyTarget, liker.Id)
		require.NoError(t, err)
		n, err = s.CountLikes(ctx, replyTarget)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("malformed like target", func(t *testing.T) {
		s := fresh(t)
		u := mustUser(t, s, "ivan")

		for _, target := range []domain.LikeTarget{{}, {Kind: "board", Id: "x"}, {Kind: domain.TargetThread}} {
			_, err := s.InsertLike(ctx, target, u.Id)
			assert.Equal(t, internal_errors.ClassValidation, internal_errors.ClassOf(err))
			_, err = s.CountLikes(ctx, target)
			assert.Equal(t, internal_errors.ClassValidation, internal_errors.ClassOf(err))
		}

		_, err := s.InsertLike(ctx, domain.ReplyTarget("missing"), u.Id)
		assert.Equal(t, internal_errors.ClassValidation, internal_errors.ClassOf(err))
	})
}
