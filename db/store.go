package db

import (
	"context"
	"errors"
	"time"

	"github.com/KAsare1/socialfeed-server/cmd/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Counter names a denormalized counter column on posts.
type Counter string

const (
	LikesCount    Counter = "likes_count"
	CommentsCount Counter = "comments_count"
	SharesCount   Counter = "shares_count"
)

func (c Counter) valid() bool {
	switch c {
	case LikesCount, CommentsCount, SharesCount:
		return true
	}
	return false
}

type PostOrder int

const (
	OrderNewest PostOrder = iota
	// OrderTrending sorts by likes_count, then recency.
	OrderTrending
)

type PostQuery struct {
	AuthorID *uint
	// FollowedBy restricts results to authors the given user follows.
	FollowedBy *uint
	Order      PostOrder
	Offset     int
	// Limit of zero returns every matching row.
	Limit int
}

// Store is the data access layer. Methods called on the Store handed to a
// Tx callback run inside that transaction.
type Store interface {
	Tx(ctx context.Context, fn func(Store) error) error

	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByRefreshToken(ctx context.Context, token string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	// SwapRefreshToken replaces presented with next only while presented is
	// still the user's current token. It returns the number of rows changed.
	SwapRefreshToken(ctx context.Context, userID uint, presented, next string, expiresAt time.Time) (int64, error)
	DeleteUser(ctx context.Context, id uint) error
	UserExists(ctx context.Context, id uint) (bool, error)

	GetProfile(ctx context.Context, userID uint) (*models.Profile, error)
	SaveProfile(ctx context.Context, profile *models.Profile) error

	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id uint) (*models.Post, error)
	// LockPost reads the bare post row and holds a write lock on it until
	// the surrounding transaction ends.
	LockPost(ctx context.Context, id uint) (*models.Post, error)
	UpdatePostContent(ctx context.Context, id, userID uint, content string) (int64, error)
	DeletePost(ctx context.Context, id, userID uint) (int64, error)
	ListPosts(ctx context.Context, q PostQuery) ([]models.Post, int64, error)
	AdjustPostCounter(ctx context.Context, postID uint, counter Counter, delta int) error
	RecountPostCounters(ctx context.Context, postIDs []uint) error
	PostsTouchedBy(ctx context.Context, userID uint) ([]uint, error)

	FindLike(ctx context.Context, postID, userID uint) (*models.PostLike, error)
	CreateLike(ctx context.Context, like *models.PostLike) error
	DeleteLike(ctx context.Context, postID, userID uint) (int64, error)
	ListLikes(ctx context.Context, postID uint, offset, limit int) ([]models.PostLike, int64, error)
	LikedPostIDs(ctx context.Context, userID uint, postIDs []uint) (map[uint]bool, error)

	FindShare(ctx context.Context, postID, userID uint) (*models.PostShare, error)
	CreateShare(ctx context.Context, share *models.PostShare) error
	DeleteShare(ctx context.Context, postID, userID uint) (int64, error)
	ListSharesByPost(ctx context.Context, postID uint, offset, limit int) ([]models.PostShare, int64, error)
	ListSharesByUser(ctx context.Context, userID uint) ([]models.PostShare, error)
	SharedPostIDs(ctx context.Context, userID uint, postIDs []uint) (map[uint]bool, error)

	CreateComment(ctx context.Context, comment *models.PostComment) error
	GetComment(ctx context.Context, id uint) (*models.PostComment, error)
	UpdateCommentContent(ctx context.Context, id, userID uint, content string) (int64, error)
	// DeleteCommentThread removes a comment and its direct replies and
	// returns the number of rows removed.
	DeleteCommentThread(ctx context.Context, id uint) (int64, error)
	ListComments(ctx context.Context, postID uint, offset, limit int) ([]models.PostComment, int64, error)

	CreateFollow(ctx context.Context, follow *models.UserFollow) error
	DeleteFollow(ctx context.Context, followerID, followingID uint) (int64, error)
	IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error)
	ListFollowers(ctx context.Context, userID uint, offset, limit int) ([]models.User, int64, error)
	ListFollowing(ctx context.Context, userID uint, offset, limit int) ([]models.User, int64, error)
	FollowCounts(ctx context.Context, userID uint) (models.FollowStats, error)
}

func ensureImages(posts []models.Post) {
	for i := range posts {
		if posts[i].Images == nil {
			posts[i].Images = []models.PostImage{}
		}
	}
}
