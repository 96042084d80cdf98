package social

import (
	"context"
	"errors"

	"github.com/KAsare1/socialfeed-server/cmd/models"
	"github.com/KAsare1/socialfeed-server/cmd/utils"
	"github.com/KAsare1/socialfeed-server/db"
	"github.com/KAsare1/socialfeed-server/service/realtime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	msgSelfFollow       = "You cannot follow yourself"
	msgUserNotFound     = "User not found"
	msgAlreadyFollowing = "Already following this user"
	msgNotFollowing     = "Not following this user"
)

var followsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "social_follows_total",
	Help: "Follow graph mutations by action",
}, []string{"action"})

type Service struct {
	store    db.Store
	notifier realtime.Notifier
}

func NewService(store db.Store, notifier realtime.Notifier) *Service {
	if notifier == nil {
		notifier = realtime.NopNotifier{}
	}
	return &Service{store: store, notifier: notifier}
}

func (s *Service) requireUser(ctx context.Context, id uint) error {
	ok, err := s.store.UserExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return utils.NotFound(msgUserNotFound)
	}
	return nil
}

func (s *Service) Follow(ctx context.Context, p utils.Principal, targetID uint) error {
	if p.UserID == targetID {
		return utils.BadRequest(msgSelfFollow)
	}

	err := s.store.Tx(ctx, func(tx db.Store) error {
		exists, err := tx.UserExists(ctx, targetID)
		if err != nil {
			return err
		}
		if !exists {
			return utils.NotFound(msgUserNotFound)
		}

		following, err := tx.IsFollowing(ctx, p.UserID, targetID)
		if err != nil {
			return err
		}
		if following {
			return utils.BadRequest(msgAlreadyFollowing)
		}

		err = tx.CreateFollow(ctx, &models.UserFollow{FollowerID: p.UserID, FollowingID: targetID})
		switch {
		case errors.Is(err, db.ErrDuplicate):
			return utils.BadRequest(msgAlreadyFollowing)
		case errors.Is(err, db.ErrNotFound):
			return utils.NotFound(msgUserNotFound)
		}
		return err
	})
	if err != nil {
		return err
	}

	followsTotal.WithLabelValues("follow").Inc()
	s.notifier.Notify(targetID, realtime.Event{Type: realtime.EventFollow, ActorID: p.UserID})
	return nil
}

func (s *Service) Unfollow(ctx context.Context, p utils.Principal, targetID uint) error {
	n, err := s.store.DeleteFollow(ctx, p.UserID, targetID)
	if err != nil {
		return err
	}
	if n == 0 {
		return utils.BadRequest(msgNotFollowing)
	}
	followsTotal.WithLabelValues("unfollow").Inc()
	return nil
}

func (s *Service) Followers(ctx context.Context, userID uint, pg utils.Pagination) (models.Page[models.User], error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return models.Page[models.User]{}, err
	}
	users, total, err := s.store.ListFollowers(ctx, userID, pg.Offset(), pg.Limit)
	if err != nil {
		return models.Page[models.User]{}, err
	}
	return models.Page[models.User]{Items: users, Total: total, HasMore: pg.HasMore(total)}, nil
}

func (s *Service) Following(ctx context.Context, userID uint, pg utils.Pagination) (models.Page[models.User], error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return models.Page[models.User]{}, err
	}
	users, total, err := s.store.ListFollowing(ctx, userID, pg.Offset(), pg.Limit)
	if err != nil {
		return models.Page[models.User]{}, err
	}
	return models.Page[models.User]{Items: users, Total: total, HasMore: pg.HasMore(total)}, nil
}

// FollowStatus reports whether the viewer follows targetID.
func (s *Service) FollowStatus(ctx context.Context, viewer utils.Principal, targetID uint) (bool, error) {
	return s.store.IsFollowing(ctx, viewer.UserID, targetID)
}

// FollowStats counts both edges on demand; nothing is denormalized.
func (s *Service) FollowStats(ctx context.Context, userID uint) (models.FollowStats, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return models.FollowStats{}, err
	}
	return s.store.FollowCounts(ctx, userID)
}
