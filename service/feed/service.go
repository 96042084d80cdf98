package feed

import (
	"context"

	"github.com/KAsare1/socialfeed-server/cmd/models"
	"github.com/KAsare1/socialfeed-server/cmd/utils"
	"github.com/KAsare1/socialfeed-server/db"
	"golang.org/x/sync/errgroup"
)

type Service struct {
	store db.Store
}

func NewService(store db.Store) *Service {
	return &Service{store: store}
}

// Timeline merges what userID authored with what userID shared. Both
// histories are loaded in full and paginated in memory.
func (s *Service) Timeline(ctx context.Context, viewer utils.Principal, userID uint, pg utils.Pagination) (models.Page[models.FeedItem], error) {
	feedRequestsTotal.WithLabelValues("timeline").Inc()

	var (
		posts  []models.Post
		shares []models.PostShare
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		posts, _, err = s.store.ListPosts(gctx, db.PostQuery{AuthorID: &userID, Order: db.OrderNewest})
		return err
	})
	g.Go(func() error {
		var err error
		shares, err = s.store.ListSharesByUser(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.Page[models.FeedItem]{}, err
	}

	merged := MergeTimeline(posts, shares)
	timelineItems.Observe(float64(len(merged)))

	page := Paginate(merged, pg)
	targets := make([]*models.Post, len(page.Items))
	for i := range page.Items {
		targets[i] = &page.Items[i].Post
	}
	if err := db.DecorateForViewer(ctx, s.store, viewer.UserID, targets); err != nil {
		return models.Page[models.FeedItem]{}, err
	}
	return page, nil
}

// General lists every post newest first, or only authorID's posts when
// authorID is set.
func (s *Service) General(ctx context.Context, viewer utils.Principal, authorID *uint, pg utils.Pagination) (models.Page[models.Post], error) {
	feedRequestsTotal.WithLabelValues("general").Inc()
	return s.list(ctx, viewer, db.PostQuery{AuthorID: authorID, Order: db.OrderNewest}, pg)
}

// Trending orders by likes_count, then recency.
func (s *Service) Trending(ctx context.Context, viewer utils.Principal, pg utils.Pagination) (models.Page[models.Post], error) {
	feedRequestsTotal.WithLabelValues("trending").Inc()
	return s.list(ctx, viewer, db.PostQuery{Order: db.OrderTrending}, pg)
}

// Followers lists posts by the users the viewer follows.
func (s *Service) Followers(ctx context.Context, viewer utils.Principal, pg utils.Pagination) (models.Page[models.Post], error) {
	feedRequestsTotal.WithLabelValues("followers").Inc()
	followerID := viewer.UserID
	return s.list(ctx, viewer, db.PostQuery{FollowedBy: &followerID, Order: db.OrderNewest}, pg)
}

func (s *Service) list(ctx context.Context, viewer utils.Principal, q db.PostQuery, pg utils.Pagination) (models.Page[models.Post], error) {
	q.Offset = pg.Offset()
	q.Limit = pg.Limit

	posts, total, err := s.store.ListPosts(ctx, q)
	if err != nil {
		return models.Page[models.Post]{}, err
	}

	targets := make([]*models.Post, len(posts))
	for i := range posts {
		targets[i] = &posts[i]
	}
	if err := db.DecorateForViewer(ctx, s.store, viewer.UserID, targets); err != nil {
		return models.Page[models.Post]{}, err
	}
	return models.Page[models.Post]{Items: posts, Total: total, HasMore: pg.HasMore(total)}, nil
}
