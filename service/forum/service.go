package forum

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"unicode/utf8"

	"github.com/KAsare1/socialfeed-server/cmd/models"
	"github.com/KAsare1/socialfeed-server/cmd/utils"
	"github.com/KAsare1/socialfeed-server/db"
	"github.com/KAsare1/socialfeed-server/service/media"
	"github.com/KAsare1/socialfeed-server/service/realtime"
)

const (
	msgPostNotFound         = "Post not found"
	msgPostNotOwned         = "Post not found or unauthorized"
	msgParentNotFound       = "Parent comment not found"
	msgCommentNotOwned      = "Comment not found or unauthorized"
	msgShareNotFound        = "Share not found"
	msgAlreadyShared        = "Post already shared"
	msgEmptyPost            = "Post must have content or at least one image"
	msgCommentRequired      = "Comment content is required"
	msgImageUploadFailed    = "Failed to upload image"
	msgTooManyImagesPattern = "A post can have at most %d images"
)

// ImageFile is one uploaded image as received by the transport.
type ImageFile struct {
	Name   string
	Size   int64
	Reader io.Reader
}

// Placement says where a new comment goes: on the post or under a comment.
type Placement interface {
	isPlacement()
}

type TopLevel struct{}

type Reply struct {
	ParentID uint
}

func (TopLevel) isPlacement() {}
func (Reply) isPlacement()    {}

type LikeResult struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likesCount"`
}

type Service struct {
	store    db.Store
	blobs    media.Store
	notifier realtime.Notifier
	logger   *log.Logger
}

func NewService(store db.Store, blobs media.Store, notifier realtime.Notifier) *Service {
	if notifier == nil {
		notifier = realtime.NopNotifier{}
	}
	return &Service{
		store:    store,
		blobs:    blobs,
		notifier: notifier,
		logger:   log.New(os.Stdout, "Forum: ", log.LstdFlags|log.Lshortfile),
	}
}

func notFound(err error, message string) error {
	if errors.Is(err, db.ErrNotFound) {
		return utils.NotFound(message)
	}
	return err
}

func (s *Service) notify(recipient, actor uint, event realtime.Event) {
	if recipient == 0 || recipient == actor {
		return
	}
	event.ActorID = actor
	s.notifier.Notify(recipient, event)
}

// Posts

func (s *Service) CreatePost(ctx context.Context, p utils.Principal, content string, images []ImageFile) (*models.Post, error) {
	content = utils.SanitizeText(content)
	if content == "" && len(images) == 0 {
		return nil, utils.BadRequest(msgEmptyPost)
	}
	if len(images) > utils.MaxPostImages {
		return nil, utils.BadRequest(fmt.Sprintf(msgTooManyImagesPattern, utils.MaxPostImages))
	}

	type checked struct {
		file        ImageFile
		ext         string
		contentType string
	}
	valid := make([]checked, 0, len(images))
	for _, img := range images {
		ext, contentType, err := utils.ValidateImage(img.Name, img.Size)
		if err != nil {
			return nil, err
		}
		valid = append(valid, checked{file: img, ext: ext, contentType: contentType})
	}

	post := &models.Post{UserID: p.UserID, Content: content}
	var keys []string
	for i, img := range valid {
		key := media.ObjectKey(p.UserID, img.ext)
		url, err := s.blobs.Upload(ctx, key, img.file.Reader, img.contentType)
		if err != nil {
			blobFailuresTotal.WithLabelValues("upload").Inc()
			s.removeBlobs(keys)
			return nil, utils.Upstream(msgImageUploadFailed, err)
		}
		keys = append(keys, key)
		post.Images = append(post.Images, models.PostImage{URL: url, Path: key, Order: i + 1})
	}

	if err := s.store.CreatePost(ctx, post); err != nil {
		s.removeBlobs(keys)
		return nil, err
	}
	postsCreatedTotal.Inc()
	postImagesUploaded.Observe(float64(len(keys)))

	created, err := s.store.GetPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) removeBlobs(keys []string) {
	if len(keys) == 0 {
		return
	}
	if err := s.blobs.Remove(context.Background(), keys...); err != nil {
		blobFailuresTotal.WithLabelValues("remove").Inc()
		s.logger.Printf("failed to remove blobs %v: %v", keys, err)
	}
}

func (s *Service) GetPost(ctx context.Context, viewer utils.Principal, id uint) (*models.Post, error) {
	post, err := s.store.GetPost(ctx, id)
	if err != nil {
		return nil, notFound(err, msgPostNotFound)
	}
	if err := db.DecorateForViewer(ctx, s.store, viewer.UserID, []*models.Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *Service) UpdatePost(ctx context.Context, p utils.Principal, id uint, content string) (*models.Post, error) {
	content = utils.SanitizeText(content)

	err := s.store.Tx(ctx, func(tx db.Store) error {
		post, err := tx.GetPost(ctx, id)
		if err != nil {
			return notFound(err, msgPostNotOwned)
		}
		if post.UserID != p.UserID {
			return utils.NotFound(msgPostNotOwned)
		}
		if content == "" && len(post.Images) == 0 {
			return utils.BadRequest(msgEmptyPost)
		}
		n, err := tx.UpdatePostContent(ctx, id, p.UserID, content)
		if err != nil {
			return err
		}
		if n == 0 {
			return utils.NotFound(msgPostNotOwned)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetPost(ctx, p, id)
}

// DeletePost removes the post and everything hanging off it. Blobs are
// removed only after the rows are gone.
func (s *Service) DeletePost(ctx context.Context, p utils.Principal, id uint) error {
	var keys []string
	err := s.store.Tx(ctx, func(tx db.Store) error {
		post, err := tx.GetPost(ctx, id)
		if err != nil {
			return notFound(err, msgPostNotOwned)
		}
		if post.UserID != p.UserID {
			return utils.NotFound(msgPostNotOwned)
		}
		for _, img := range post.Images {
			keys = append(keys, img.Path)
		}

		n, err := tx.DeletePost(ctx, id, p.UserID)
		if err != nil {
			return err
		}
		if n == 0 {
			return utils.NotFound(msgPostNotOwned)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.removeBlobs(keys)
	return nil
}

// Likes

func (s *Service) ToggleLike(ctx context.Context, p utils.Principal, postID uint) (LikeResult, error) {
	var (
		result LikeResult
		owner  uint
	)
	err := s.store.Tx(ctx, func(tx db.Store) error {
		post, err := tx.LockPost(ctx, postID)
		if err != nil {
			return notFound(err, msgPostNotFound)
		}
		owner = post.UserID

		_, err = tx.FindLike(ctx, postID, p.UserID)
		switch {
		case err == nil:
			if _, err := tx.DeleteLike(ctx, postID, p.UserID); err != nil {
				return err
			}
			if err := tx.AdjustPostCounter(ctx, postID, db.LikesCount, -1); err != nil {
				return err
			}
			result = LikeResult{Liked: false, LikesCount: max(post.LikesCount-1, 0)}
		case errors.Is(err, db.ErrNotFound):
			if err := tx.CreateLike(ctx, &models.PostLike{PostID: postID, UserID: p.UserID}); err != nil {
				return err
			}
			if err := tx.AdjustPostCounter(ctx, postID, db.LikesCount, 1); err != nil {
				return err
			}
			result = LikeResult{Liked: true, LikesCount: post.LikesCount + 1}
		default:
			return err
		}
		return nil
	})
	if err != nil {
		return LikeResult{}, err
	}

	if result.Liked {
		reactionsTotal.WithLabelValues("like").Inc()
		s.notify(owner, p.UserID, realtime.Event{Type: realtime.EventLike, PostID: postID})
	} else {
		reactionsTotal.WithLabelValues("unlike").Inc()
	}
	return result, nil
}

func (s *Service) ListLikes(ctx context.Context, postID uint, pg utils.Pagination) (models.Page[models.PostLike], error) {
	if _, err := s.store.GetPost(ctx, postID); err != nil {
		return models.Page[models.PostLike]{}, notFound(err, msgPostNotFound)
	}
	likes, total, err := s.store.ListLikes(ctx, postID, pg.Offset(), pg.Limit)
	if err != nil {
		return models.Page[models.PostLike]{}, err
	}
	return models.Page[models.PostLike]{Items: likes, Total: total, HasMore: pg.HasMore(total)}, nil
}

// Shares

func (s *Service) SharePost(ctx context.Context, p utils.Principal, postID uint, message *string) (*models.PostShare, error) {
	if message != nil {
		trimmed := utils.SanitizeText(*message)
		if utf8.RuneCountInString(trimmed) > models.MaxShareMessage {
			return nil, utils.BadRequest(fmt.Sprintf("Share message must be at most %d characters", models.MaxShareMessage))
		}
		if trimmed == "" {
			message = nil
		} else {
			message = &trimmed
		}
	}

	share := &models.PostShare{PostID: postID, UserID: p.UserID, SharedContent: message}
	var owner uint
	err := s.store.Tx(ctx, func(tx db.Store) error {
		post, err := tx.LockPost(ctx, postID)
		if err != nil {
			return notFound(err, msgPostNotFound)
		}
		owner = post.UserID

		if _, err := tx.FindShare(ctx, postID, p.UserID); err == nil {
			return utils.Conflict(msgAlreadyShared)
		} else if !errors.Is(err, db.ErrNotFound) {
			return err
		}

		if err := tx.CreateShare(ctx, share); err != nil {
			if errors.Is(err, db.ErrDuplicate) {
				return utils.Conflict(msgAlreadyShared)
			}
			return err
		}
		return tx.AdjustPostCounter(ctx, postID, db.SharesCount, 1)
	})
	if err != nil {
		return nil, err
	}
	reactionsTotal.WithLabelValues("share").Inc()
	s.notify(owner, p.UserID, realtime.Event{Type: realtime.EventShare, PostID: postID})

	post, err := s.GetPost(ctx, p, postID)
	if err != nil {
		return nil, err
	}
	share.Post = post
	return share, nil
}

func (s *Service) UnsharePost(ctx context.Context, p utils.Principal, postID uint) error {
	err := s.store.Tx(ctx, func(tx db.Store) error {
		if _, err := tx.LockPost(ctx, postID); err != nil {
			return notFound(err, msgPostNotFound)
		}
		n, err := tx.DeleteShare(ctx, postID, p.UserID)
		if err != nil {
			return err
		}
		if n == 0 {
			return utils.NotFound(msgShareNotFound)
		}
		return tx.AdjustPostCounter(ctx, postID, db.SharesCount, -1)
	})
	if err != nil {
		return err
	}
	reactionsTotal.WithLabelValues("unshare").Inc()
	return nil
}

func (s *Service) ListShares(ctx context.Context, postID uint, pg utils.Pagination) (models.Page[models.PostShare], error) {
	if _, err := s.store.GetPost(ctx, postID); err != nil {
		return models.Page[models.PostShare]{}, notFound(err, msgPostNotFound)
	}
	shares, total, err := s.store.ListSharesByPost(ctx, postID, pg.Offset(), pg.Limit)
	if err != nil {
		return models.Page[models.PostShare]{}, err
	}
	return models.Page[models.PostShare]{Items: shares, Total: total, HasMore: pg.HasMore(total)}, nil
}

// Comments

func validateComment(content string) (string, error) {
	content = utils.SanitizeText(content)
	if content == "" {
		return "", utils.BadRequest(msgCommentRequired)
	}
	if utf8.RuneCountInString(content) > models.MaxCommentLength {
		return "", utils.BadRequest(fmt.Sprintf("Comment must be at most %d characters", models.MaxCommentLength))
	}
	return content, nil
}

// CreateComment stores a comment. A reply to a reply is attached to the
// top-level comment of that thread, so threads stay one level deep.
func (s *Service) CreateComment(ctx context.Context, p utils.Principal, postID uint, content string, placement Placement) (*models.PostComment, error) {
	content, err := validateComment(content)
	if err != nil {
		return nil, err
	}
	if placement == nil {
		placement = TopLevel{}
	}

	comment := &models.PostComment{PostID: postID, UserID: p.UserID, Content: content}
	var recipient uint
	eventType := realtime.EventComment

	err = s.store.Tx(ctx, func(tx db.Store) error {
		post, err := tx.LockPost(ctx, postID)
		if err != nil {
			return notFound(err, msgPostNotFound)
		}
		recipient = post.UserID

		switch pl := placement.(type) {
		case TopLevel:
		case Reply:
			parent, err := tx.GetComment(ctx, pl.ParentID)
			if err != nil {
				return notFound(err, msgParentNotFound)
			}
			if parent.PostID != postID {
				return utils.NotFound(msgParentNotFound)
			}
			anchor := parent.ID
			if parent.ParentCommentID != nil {
				anchor = *parent.ParentCommentID
			}
			comment.ParentCommentID = &anchor
			recipient = parent.UserID
			eventType = realtime.EventReply
		default:
			return utils.BadRequest("Invalid comment placement")
		}

		if err := tx.CreateComment(ctx, comment); err != nil {
			return err
		}
		return tx.AdjustPostCounter(ctx, postID, db.CommentsCount, 1)
	})
	if err != nil {
		return nil, err
	}
	commentsTotal.WithLabelValues("create").Inc()
	s.notify(recipient, p.UserID, realtime.Event{Type: eventType, PostID: postID, CommentID: comment.ID})

	return s.store.GetComment(ctx, comment.ID)
}

func (s *Service) UpdateComment(ctx context.Context, p utils.Principal, id uint, content string) (*models.PostComment, error) {
	content, err := validateComment(content)
	if err != nil {
		return nil, err
	}
	n, err := s.store.UpdateCommentContent(ctx, id, p.UserID, content)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, utils.NotFound(msgCommentNotOwned)
	}
	return s.store.GetComment(ctx, id)
}

// DeleteComment removes the comment with its replies and lowers the post's
// comments_count by the number of rows actually removed.
func (s *Service) DeleteComment(ctx context.Context, p utils.Principal, id uint) (int64, error) {
	var removed int64
	err := s.store.Tx(ctx, func(tx db.Store) error {
		comment, err := tx.GetComment(ctx, id)
		if err != nil {
			return notFound(err, msgCommentNotOwned)
		}
		if comment.UserID != p.UserID {
			return utils.NotFound(msgCommentNotOwned)
		}
		if _, err := tx.LockPost(ctx, comment.PostID); err != nil {
			return notFound(err, msgPostNotFound)
		}

		removed, err = tx.DeleteCommentThread(ctx, id)
		if err != nil {
			return err
		}
		return tx.AdjustPostCounter(ctx, comment.PostID, db.CommentsCount, -int(removed))
	})
	if err != nil {
		return 0, err
	}
	commentsTotal.WithLabelValues("delete").Add(float64(removed))
	return removed, nil
}

func (s *Service) ListComments(ctx context.Context, postID uint, pg utils.Pagination) (models.Page[models.PostComment], error) {
	if _, err := s.store.GetPost(ctx, postID); err != nil {
		return models.Page[models.PostComment]{}, notFound(err, msgPostNotFound)
	}
	comments, total, err := s.store.ListComments(ctx, postID, pg.Offset(), pg.Limit)
	if err != nil {
		return models.Page[models.PostComment]{}, err
	}
	return models.Page[models.PostComment]{Items: comments, Total: total, HasMore: pg.HasMore(total)}, nil
}
