package db

import (
	"context"

	"github.com/KAsare1/socialfeed-server/cmd/models"
)

// DecorateForViewer sets IsLiked and IsShared on each post relative to
// viewerID, using one lookup per relation.
func DecorateForViewer(ctx context.Context, s Store, viewerID uint, posts []*models.Post) error {
	if len(posts) == 0 || viewerID == 0 {
		return nil
	}

	ids := make([]uint, 0, len(posts))
	seen := make(map[uint]bool, len(posts))
	for _, p := range posts {
		if !seen[p.ID] {
			seen[p.ID] = true
			ids = append(ids, p.ID)
		}
	}

	liked, err := s.LikedPostIDs(ctx, viewerID, ids)
	if err != nil {
		return err
	}
	shared, err := s.SharedPostIDs(ctx, viewerID, ids)
	if err != nil {
		return err
	}

	for _, p := range posts {
		p.IsLiked = liked[p.ID]
		p.IsShared = shared[p.ID]
	}
	return nil
}
