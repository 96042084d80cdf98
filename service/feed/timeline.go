package feed

import (
	"sort"

	"github.com/KAsare1/socialfeed-server/cmd/models"
	"github.com/KAsare1/socialfeed-server/cmd/utils"
)

// MergeTimeline tags authored posts as original and shares as shared, then
// orders the union by timeline date, newest first. Items with the same date
// keep their input order, so an original precedes a share made at the same
// instant.
func MergeTimeline(posts []models.Post, shares []models.PostShare) []models.FeedItem {
	items := make([]models.FeedItem, 0, len(posts)+len(shares))
	for _, p := range posts {
		items = append(items, models.FeedItem{
			Post:         p,
			Type:         models.FeedItemOriginal,
			TimelineDate: p.CreatedAt,
		})
	}
	for _, sh := range shares {
		if sh.Post == nil {
			continue
		}
		sharedBy := sh.UserID
		items = append(items, models.FeedItem{
			Post:          *sh.Post,
			Type:          models.FeedItemShared,
			TimelineDate:  sh.CreatedAt,
			SharedBy:      &sharedBy,
			SharedContent: sh.SharedContent,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].TimelineDate.After(items[j].TimelineDate)
	})
	return items
}

// Paginate slices items for pg. Total counts the whole input.
func Paginate[T any](items []T, pg utils.Pagination) models.Page[T] {
	total := int64(len(items))
	start := pg.Offset()
	if start < 0 {
		start = 0
	}
	if start > len(items) {
		start = len(items)
	}
	end := start + pg.Limit
	if end > len(items) {
		end = len(items)
	}

	page := make([]T, end-start)
	copy(page, items[start:end])
	return models.Page[T]{Items: page, Total: total, HasMore: pg.HasMore(total)}
}
