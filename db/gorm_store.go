package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KAsare1/socialfeed-server/cmd/models"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const uniqueViolation = "23505"

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Tx(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
	}
	return err
}

func idArray(ids []uint) pq.Int64Array {
	out := make(pq.Int64Array, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

func orderedImages(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC")
}

func withPostAssociations(db *gorm.DB, prefix string) *gorm.DB {
	return db.Preload(prefix+"User.Profile").Preload(prefix+"Images", orderedImages)
}

// Users

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	return translate(s.db.WithContext(ctx).Create(user).Error)
}

func (s *GormStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Profile").First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Profile").Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) GetUserByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	var user models.User
	if err := s.db.WithContext(ctx).Where("refresh_token = ?", token).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) UpdateUser(ctx context.Context, user *models.User) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Save(user).Error)
}

func (s *GormStore) SwapRefreshToken(ctx context.Context, userID uint, presented, next string, expiresAt time.Time) (int64, error) {
	if presented == "" {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND refresh_token = ?", userID, presented).
		Updates(map[string]interface{}{
			"refresh_token":            next,
			"refresh_token_expired_at": expiresAt,
		})
	return res.RowsAffected, translate(res.Error)
}

func (s *GormStore) DeleteUser(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) UserExists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error
	return count > 0, translate(err)
}

// Profiles

func (s *GormStore) GetProfile(ctx context.Context, userID uint) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

func (s *GormStore) SaveProfile(ctx context.Context, profile *models.Profile) error {
	return translate(s.db.WithContext(ctx).Save(profile).Error)
}

// Posts

func (s *GormStore) CreatePost(ctx context.Context, post *models.Post) error {
	return translate(s.db.WithContext(ctx).Omit("User").Create(post).Error)
}

func (s *GormStore) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := withPostAssociations(s.db.WithContext(ctx), "").First(&post, id).Error; err != nil {
		return nil, translate(err)
	}
	if post.Images == nil {
		post.Images = []models.PostImage{}
	}
	return &post, nil
}

func (s *GormStore) LockPost(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&post, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

func (s *GormStore) UpdatePostContent(ctx context.Context, id, userID uint, content string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("content", content)
	return res.RowsAffected, translate(res.Error)
}

// DeletePost removes the post's children explicitly before the post itself,
// so the result does not depend on the schema carrying cascades.
func (s *GormStore) DeletePost(ctx context.Context, id, userID uint) (int64, error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Post{}).Where("id = ? AND user_id = ?", id, userID).Count(&count).Error; err != nil {
		return 0, translate(err)
	}
	if count == 0 {
		return 0, nil
	}

	children := []interface{}{
		&models.PostLike{},
		&models.PostComment{},
		&models.PostShare{},
		&models.PostImage{},
	}
	for _, child := range children {
		if err := db.Where("post_id = ?", id).Delete(child).Error; err != nil {
			return 0, translate(err)
		}
	}

	res := db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Post{})
	return res.RowsAffected, translate(res.Error)
}

func (s *GormStore) ListPosts(ctx context.Context, q PostQuery) ([]models.Post, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Post{})
	if q.AuthorID != nil {
		query = query.Where("user_id = ?", *q.AuthorID)
	}
	if q.FollowedBy != nil {
		followed := s.db.Model(&models.UserFollow{}).Select("following_id").Where("follower_id = ?", *q.FollowedBy)
		query = query.Where("user_id IN (?)", followed)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	switch q.Order {
	case OrderTrending:
		query = query.Order("likes_count DESC").Order("created_at DESC").Order("id DESC")
	default:
		query = query.Order("created_at DESC").Order("id DESC")
	}
	if q.Limit > 0 {
		query = query.Offset(q.Offset).Limit(q.Limit)
	}

	var posts []models.Post
	if err := withPostAssociations(query, "").Find(&posts).Error; err != nil {
		return nil, 0, translate(err)
	}
	ensureImages(posts)
	return posts, total, nil
}

func (s *GormStore) AdjustPostCounter(ctx context.Context, postID uint, counter Counter, delta int) error {
	if !counter.valid() {
		return fmt.Errorf("unknown counter %q", counter)
	}
	col := string(counter)
	return translate(s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", postID).
		UpdateColumn(col, gorm.Expr("GREATEST("+col+" + ?, 0)", delta)).Error)
}

func (s *GormStore) RecountPostCounters(ctx context.Context, postIDs []uint) error {
	if len(postIDs) == 0 {
		return nil
	}
	return translate(s.db.WithContext(ctx).Exec(`
		UPDATE posts SET
			likes_count = (SELECT COUNT(*) FROM post_likes WHERE post_likes.post_id = posts.id),
			comments_count = (SELECT COUNT(*) FROM post_comments WHERE post_comments.post_id = posts.id),
			shares_count = (SELECT COUNT(*) FROM post_shares WHERE post_shares.post_id = posts.id)
		WHERE id IN ?`, postIDs).Error)
}

func (s *GormStore) PostsTouchedBy(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Raw(`
		SELECT post_id FROM post_likes WHERE user_id = ?
		UNION SELECT post_id FROM post_shares WHERE user_id = ?
		UNION SELECT post_id FROM post_comments WHERE user_id = ?`,
		userID, userID, userID).Scan(&ids).Error
	return ids, translate(err)
}

// Likes

func (s *GormStore) FindLike(ctx context.Context, postID, userID uint) (*models.PostLike, error) {
	var like models.PostLike
	if err := s.db.WithContext(ctx).Where("post_id = ? AND user_id = ?", postID, userID).First(&like).Error; err != nil {
		return nil, translate(err)
	}
	return &like, nil
}

func (s *GormStore) CreateLike(ctx context.Context, like *models.PostLike) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(like).Error)
}

func (s *GormStore) DeleteLike(ctx context.Context, postID, userID uint) (int64, error) {
	res := s.db.WithContext(ctx).Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostLike{})
	return res.RowsAffected, translate(res.Error)
}

func (s *GormStore) ListLikes(ctx context.Context, postID uint, offset, limit int) ([]models.PostLike, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.PostLike{}).Where("post_id = ?", postID).Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	var likes []models.PostLike
	err := query.Preload("User.Profile").
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&likes).Error
	return likes, total, translate(err)
}

func (s *GormStore) LikedPostIDs(ctx context.Context, userID uint, postIDs []uint) (map[uint]bool, error) {
	return s.viewerFlags(ctx, &models.PostLike{}, userID, postIDs)
}

func (s *GormStore) viewerFlags(ctx context.Context, model interface{}, userID uint, postIDs []uint) (map[uint]bool, error) {
	flags := make(map[uint]bool, len(postIDs))
	if len(postIDs) == 0 {
		return flags, nil
	}
	var ids []int64
	err := s.db.WithContext(ctx).Model(model).
		Where("user_id = ? AND post_id = ANY(?)", userID, idArray(postIDs)).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, translate(err)
	}
	for _, id := range ids {
		flags[uint(id)] = true
	}
	return flags, nil
}

// Shares

func (s *GormStore) FindShare(ctx context.Context, postID, userID uint) (*models.PostShare, error) {
	var share models.PostShare
	if err := s.db.WithContext(ctx).Where("post_id = ? AND user_id = ?", postID, userID).First(&share).Error; err != nil {
		return nil, translate(err)
	}
	return &share, nil
}

func (s *GormStore) CreateShare(ctx context.Context, share *models.PostShare) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(share).Error)
}

func (s *GormStore) DeleteShare(ctx context.Context, postID, userID uint) (int64, error) {
	res := s.db.WithContext(ctx).Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostShare{})
	return res.RowsAffected, translate(res.Error)
}

func (s *GormStore) ListSharesByPost(ctx context.Context, postID uint, offset, limit int) ([]models.PostShare, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.PostShare{}).Where("post_id = ?", postID).Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	var shares []models.PostShare
	err := query.Preload("User.Profile").
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&shares).Error
	return shares, total, translate(err)
}

func (s *GormStore) ListSharesByUser(ctx context.Context, userID uint) ([]models.PostShare, error) {
	var shares []models.PostShare
	err := withPostAssociations(s.db.WithContext(ctx), "Post.").
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&shares).Error
	if err != nil {
		return nil, translate(err)
	}
	for i := range shares {
		if shares[i].Post != nil && shares[i].Post.Images == nil {
			shares[i].Post.Images = []models.PostImage{}
		}
	}
	return shares, nil
}

func (s *GormStore) SharedPostIDs(ctx context.Context, userID uint, postIDs []uint) (map[uint]bool, error) {
	return s.viewerFlags(ctx, &models.PostShare{}, userID, postIDs)
}

// Comments

func (s *GormStore) CreateComment(ctx context.Context, comment *models.PostComment) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error)
}

func (s *GormStore) GetComment(ctx context.Context, id uint) (*models.PostComment, error) {
	var comment models.PostComment
	if err := s.db.WithContext(ctx).Preload("User.Profile").First(&comment, id).Error; err != nil {
		return nil, translate(err)
	}
	return &comment, nil
}

func (s *GormStore) UpdateCommentContent(ctx context.Context, id, userID uint, content string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.PostComment{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("content", content)
	return res.RowsAffected, translate(res.Error)
}

func (s *GormStore) DeleteCommentThread(ctx context.Context, id uint) (int64, error) {
	db := s.db.WithContext(ctx)

	replies := db.Where("parent_comment_id = ?", id).Delete(&models.PostComment{})
	if replies.Error != nil {
		return 0, translate(replies.Error)
	}
	res := db.Where("id = ?", id).Delete(&models.PostComment{})
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	return replies.RowsAffected + res.RowsAffected, nil
}

func (s *GormStore) ListComments(ctx context.Context, postID uint, offset, limit int) ([]models.PostComment, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.PostComment{}).
		Where("post_id = ? AND parent_comment_id IS NULL", postID).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	var comments []models.PostComment
	err := query.Preload("User.Profile").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		Preload("Replies.User.Profile").
		Order("created_at ASC").Order("id ASC").
		Offset(offset).Limit(limit).
		Find(&comments).Error
	return comments, total, translate(err)
}

// Follows

func (s *GormStore) CreateFollow(ctx context.Context, follow *models.UserFollow) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(follow).Error)
}

func (s *GormStore) DeleteFollow(ctx context.Context, followerID, followingID uint) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.UserFollow{})
	return res.RowsAffected, translate(res.Error)
}

func (s *GormStore) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.UserFollow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	return count > 0, translate(err)
}

func (s *GormStore) ListFollowers(ctx context.Context, userID uint, offset, limit int) ([]models.User, int64, error) {
	return s.listFollowEdge(ctx, "user_follows.follower_id", "user_follows.following_id", userID, offset, limit)
}

func (s *GormStore) ListFollowing(ctx context.Context, userID uint, offset, limit int) ([]models.User, int64, error) {
	return s.listFollowEdge(ctx, "user_follows.following_id", "user_follows.follower_id", userID, offset, limit)
}

// listFollowEdge returns the users on the joinCol side of edges whose
// filterCol equals userID, most recent edge first.
func (s *GormStore) listFollowEdge(ctx context.Context, joinCol, filterCol string, userID uint, offset, limit int) ([]models.User, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN user_follows ON "+joinCol+" = users.id").
		Where(filterCol+" = ?", userID).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	var users []models.User
	err := query.Preload("Profile").
		Order("user_follows.created_at DESC").Order("users.id DESC").
		Offset(offset).Limit(limit).
		Find(&users).Error
	return users, total, translate(err)
}

func (s *GormStore) FollowCounts(ctx context.Context, userID uint) (models.FollowStats, error) {
	var stats models.FollowStats
	db := s.db.WithContext(ctx).Model(&models.UserFollow{})
	if err := db.Where("following_id = ?", userID).Count(&stats.Followers).Error; err != nil {
		return stats, translate(err)
	}
	if err := s.db.WithContext(ctx).Model(&models.UserFollow{}).Where("follower_id = ?", userID).Count(&stats.Following).Error; err != nil {
		return stats, translate(err)
	}
	return stats, nil
}
