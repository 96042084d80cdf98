package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	feedRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_requests_total",
		Help: "Feed reads by variant",
	}, []string{"variant"})

	// timelineItems tracks how many items a timeline merge loads before
	// slicing, which is the memory cost of an in-process merge.
	timelineItems = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feed_timeline_merged_items",
		Help:    "Items merged per timeline request",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})
)
