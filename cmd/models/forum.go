package models

import "time"

const (
	MaxCommentLength = 1000
	MaxShareMessage  = 500
)

type Post struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	Content       string    `gorm:"column:content;type:text" json:"content"`
	LikesCount    int       `gorm:"column:likes_count;not null;default:0" json:"likes_count"`
	CommentsCount int       `gorm:"column:comments_count;not null;default:0" json:"comments_count"`
	SharesCount   int       `gorm:"column:shares_count;not null;default:0" json:"shares_count"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	User   *User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Images []PostImage `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"images"`

	// Viewer-relative flags, filled per request.
	IsLiked  bool `gorm:"-" json:"isLiked"`
	IsShared bool `gorm:"-" json:"isShared"`
}

// PostImage.Order is 1-based and unique within a post.
type PostImage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"column:post_id;not null;uniqueIndex:idx_post_images_post_order" json:"post_id"`
	URL       string    `gorm:"column:url;size:1024;not null" json:"url"`
	Path      string    `gorm:"column:path;size:512;not null" json:"-"`
	Order     int       `gorm:"column:sort_order;not null;uniqueIndex:idx_post_images_post_order" json:"order"`
	CreatedAt time.Time `json:"created_at"`
}

type PostLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"column:post_id;not null;uniqueIndex:idx_post_likes_post_user" json:"post_id"`
	UserID    uint      `gorm:"column:user_id;not null;uniqueIndex:idx_post_likes_post_user;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	Post *Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

type PostComment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	PostID          uint      `gorm:"column:post_id;not null;index" json:"post_id"`
	UserID          uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	ParentCommentID *uint     `gorm:"column:parent_comment_id;index" json:"parent_comment_id"`
	Content         string    `gorm:"column:content;size:1000;not null" json:"content"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Post    *Post         `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	User    *User         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Replies []PostComment `gorm:"foreignKey:ParentCommentID;constraint:OnDelete:CASCADE" json:"replies,omitempty"`
}

type PostShare struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	PostID        uint      `gorm:"column:post_id;not null;uniqueIndex:idx_post_shares_post_user" json:"post_id"`
	UserID        uint      `gorm:"column:user_id;not null;uniqueIndex:idx_post_shares_post_user;index" json:"user_id"`
	SharedContent *string   `gorm:"column:shared_content;size:500" json:"shared_content"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`

	Post *Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"post,omitempty"`
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}
