package models

import "time"

type FeedItemType string

const (
	FeedItemOriginal FeedItemType = "original"
	FeedItemShared   FeedItemType = "shared"
)

// FeedItem is a post as it appears in a timeline. Shared items carry the
// sharer and the share time in TimelineDate.
type FeedItem struct {
	Post
	Type          FeedItemType `json:"type"`
	TimelineDate  time.Time    `json:"timeline_date"`
	SharedBy      *uint        `json:"shared_by,omitempty"`
	SharedContent *string      `json:"shared_content,omitempty"`
}

type Page[T any] struct {
	Items   []T
	Total   int64
	HasMore bool
}
