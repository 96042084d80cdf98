package forum

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	postsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forum_posts_created_total",
		Help: "Posts created",
	})

	postImagesUploaded = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "forum_post_images",
		Help:    "Images attached per created post",
		Buckets: []float64{0, 1, 2, 3, 4, 5},
	})

	// reactionsTotal counts like/unlike/share/unshare mutations.
	reactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_reactions_total",
		Help: "Post reactions by action",
	}, []string{"action"})

	commentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_comments_total",
		Help: "Comment mutations by action",
	}, []string{"action"})

	blobFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_blob_failures_total",
		Help: "Blob store failures by operation",
	}, []string{"operation"})
)
