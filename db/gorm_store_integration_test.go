//go:build integration
// +build integration

package db

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/KAsare1/socialfeed-server/cmd/models"
	"github.com/KAsare1/socialfeed-server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupGormStore(t *testing.T) *GormStore {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("socialfeed"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	gdb, err := NewPSQLStorage(&config.Config{DatabaseURL: dsn, DBMaxOpenConns: 5, DBMaxIdleConns: 5})
	require.NoError(t, err)
	require.NoError(t, Migrate(gdb))

	return NewGormStore(gdb)
}

func TestGormStoreIntegration(t *testing.T) {
	ctx := context.Background()
	s := setupGormStore(t)

	a := seedUser(t, s, "a@example.com")
	b := seedUser(t, s, "b@example.com")

	t.Run("duplicate email", func(t *testing.T) {
		err := s.CreateUser(ctx, &models.User{Email: "a@example.com", PasswordHash: "x"})
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	post := &models.Post{UserID: a.ID, Content: "hello", Images: []models.PostImage{
		{URL: "/2", Path: "2", Order: 2},
		{URL: "/1", Path: "1", Order: 1},
	}}
	require.NoError(t, s.CreatePost(ctx, post))

	t.Run("images ordered", func(t *testing.T) {
		got, err := s.GetPost(ctx, post.ID)
		require.NoError(t, err)
		require.Len(t, got.Images, 2)
		assert.Equal(t, 1, got.Images[0].Order)
		require.NotNil(t, got.User)
		require.NotNil(t, got.User.Profile)
	})

	t.Run("like inside transaction", func(t *testing.T) {
		err := s.Tx(ctx, func(tx Store) error {
			if _, err := tx.LockPost(ctx, post.ID); err != nil {
				return err
			}
			if err := tx.CreateLike(ctx, &models.PostLike{PostID: post.ID, UserID: b.ID}); err != nil {
				return err
			}
			return tx.AdjustPostCounter(ctx, post.ID, LikesCount, 1)
		})
		require.NoError(t, err)

		err = s.CreateLike(ctx, &models.PostLike{PostID: post.ID, UserID: b.ID})
		assert.ErrorIs(t, err, ErrDuplicate)

		flags, err := s.LikedPostIDs(ctx, b.ID, []uint{post.ID, post.ID + 100})
		require.NoError(t, err)
		assert.True(t, flags[post.ID])
		assert.False(t, flags[post.ID+100])
	})

	t.Run("counter floor", func(t *testing.T) {
		require.NoError(t, s.AdjustPostCounter(ctx, post.ID, SharesCount, -3))
		got, err := s.LockPost(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.SharesCount)
	})

	t.Run("self follow rejected by check constraint", func(t *testing.T) {
		err := s.CreateFollow(ctx, &models.UserFollow{FollowerID: a.ID, FollowingID: a.ID})
		assert.Error(t, err)
	})

	t.Run("followed feed", func(t *testing.T) {
		require.NoError(t, s.CreateFollow(ctx, &models.UserFollow{FollowerID: b.ID, FollowingID: a.ID}))
		posts, total, err := s.ListPosts(ctx, PostQuery{FollowedBy: &b.ID, Limit: 10})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, posts, 1)
		assert.Equal(t, post.ID, posts[0].ID)
	})

	t.Run("comment thread", func(t *testing.T) {
		top := &models.PostComment{PostID: post.ID, UserID: b.ID, Content: "top"}
		require.NoError(t, s.CreateComment(ctx, top))
		require.NoError(t, s.CreateComment(ctx, &models.PostComment{PostID: post.ID, UserID: a.ID, Content: "re", ParentCommentID: &top.ID}))

		comments, total, err := s.ListComments(ctx, post.ID, 0, 10)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, comments, 1)
		assert.Len(t, comments[0].Replies, 1)

		removed, err := s.DeleteCommentThread(ctx, top.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 2, removed)
	})

	t.Run("delete user cascades", func(t *testing.T) {
		touched, err := s.PostsTouchedBy(ctx, b.ID)
		require.NoError(t, err)
		require.NoError(t, s.DeleteUser(ctx, b.ID))
		require.NoError(t, s.RecountPostCounters(ctx, touched))

		got, err := s.LockPost(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.LikesCount)

		stats, err := s.FollowCounts(ctx, a.ID)
		require.NoError(t, err)
		assert.Zero(t, stats.Followers)
	})

	t.Run("refresh token swap", func(t *testing.T) {
		a.RefreshToken = "old"
		a.RefreshTokenExpiredAt = time.Now().Add(time.Hour)
		require.NoError(t, s.UpdateUser(ctx, a))

		n, err := s.SwapRefreshToken(ctx, a.ID, "old", "new", time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		n, err = s.SwapRefreshToken(ctx, a.ID, "old", "other", time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Zero(t, n)

		got, err := s.GetUserByRefreshToken(ctx, "new")
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)
	})

	t.Run("offset past the end", func(t *testing.T) {
		posts, total, err := s.ListPosts(ctx, PostQuery{Offset: math.MaxInt - 10, Limit: 10})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		assert.Empty(t, posts)
	})

	t.Run("delete post", func(t *testing.T) {
		c := seedUser(t, s, "c@example.com")
		require.NoError(t, s.CreateLike(ctx, &models.PostLike{PostID: post.ID, UserID: c.ID}))
		require.NoError(t, s.CreateShare(ctx, &models.PostShare{PostID: post.ID, UserID: c.ID}))
		top := &models.PostComment{PostID: post.ID, UserID: c.ID, Content: "top"}
		require.NoError(t, s.CreateComment(ctx, top))
		require.NoError(t, s.CreateComment(ctx, &models.PostComment{PostID: post.ID, UserID: a.ID, Content: "re", ParentCommentID: &top.ID}))

		n, err := s.DeletePost(ctx, post.ID, c.ID)
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = s.DeletePost(ctx, post.ID, a.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
		_, err = s.GetPost(ctx, post.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		children := map[string]interface{}{
			"post_images":   &models.PostImage{},
			"post_likes":    &models.PostLike{},
			"post_comments": &models.PostComment{},
			"post_shares":   &models.PostShare{},
		}
		for name, model := range children {
			var count int64
			require.NoError(t, s.db.WithContext(ctx).Model(model).Where("post_id = ?", post.ID).Count(&count).Error)
			assert.Zero(t, count, name)
		}
	})
}
