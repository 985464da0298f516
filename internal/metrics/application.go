package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ApplicationMetrics tracks domain metrics: relationships, engagement, uploads and mail
type ApplicationMetrics struct {
	// Relationships
	FollowsTotal *prometheus.CounterVec
	BlocksTotal  *prometheus.CounterVec

	// Engagement
	LikeTogglesTotal  *prometheus.CounterVec
	LikeToggleRetries prometheus.Counter
	CommentsTotal     *prometheus.CounterVec
	HidesTotal        *prometheus.CounterVec
	CounterRecomputes *prometheus.CounterVec
	ContentCreated    *prometheus.CounterVec
	ContentDeleted    *prometheus.CounterVec

	// Media
	MediaUploadsTotal       *prometheus.CounterVec
	MediaProcessingDuration *prometheus.HistogramVec

	// Auth & mail
	AuthEventsTotal    *prometheus.CounterVec
	NotifierSendsTotal *prometheus.CounterVec
}

func newApplicationMetrics() *ApplicationMetrics {
	return &ApplicationMetrics{
		FollowsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "follows_total",
				Help: "Follow edges created or removed",
			},
			[]string{"action"},
		),
		BlocksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blocks_total",
				Help: "Block edges created or removed",
			},
			[]string{"action"},
		),

		LikeTogglesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "like_toggles_total",
				Help: "Like toggles by content type and resulting state",
			},
			[]string{"content_type", "result"},
		),
		LikeToggleRetries: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "like_toggle_retries_total",
				Help: "Like toggles retried after losing an insert race",
			},
		),
		CommentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "comments_total",
				Help: "Comment writes by content type and action",
			},
			[]string{"content_type", "action"},
		),
		HidesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "content_hides_total",
				Help: "Per-viewer hide and unhide operations",
			},
			[]string{"content_type", "action"},
		),
		CounterRecomputes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engagement_counter_recomputes_total",
				Help: "Counter rows recomputed from live engagement rows",
			},
			[]string{"counter"},
		),
		ContentCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "content_created_total",
				Help: "Posts and videos created",
			},
			[]string{"content_type"},
		),
		ContentDeleted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "content_deleted_total",
				Help: "Posts and videos deleted",
			},
			[]string{"content_type"},
		),

		MediaUploadsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "media_uploads_total",
				Help: "Media uploads by kind and outcome",
			},
			[]string{"kind", "status"},
		),
		MediaProcessingDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "media_processing_duration_seconds",
				Help:    "Time spent probing and thumbnailing uploaded media",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"stage"},
		),

		AuthEventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_events_total",
				Help: "Authentication events by kind and outcome",
			},
			[]string{"event", "status"},
		),
		NotifierSendsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifier_sends_total",
				Help: "Outbound notifications by provider and outcome",
			},
			[]string{"provider", "status"},
		),
	}
}
