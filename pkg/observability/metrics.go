package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/lemon/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors exported by the service.
type Metrics struct {
	PageViews     *prometheus.CounterVec
	PageLocked    *prometheus.CounterVec
	Visits        *prometheus.CounterVec
	ImagesAdded   prometheus.Counter
	ImagesRemoved prometheus.Counter
	ImageBytes    prometheus.Histogram
	SessionsEnded prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PageViews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lemon_page_views_total",
			Help: "Pages served after passing the unlock gate.",
		}, []string{"page"}),
		PageLocked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lemon_page_locked_total",
			Help: "Requests denied because the page was beyond the frontier.",
		}, []string{"page"}),
		Visits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lemon_page_visits_total",
			Help: "Pages newly added to a visited set.",
		}, []string{"page"}),
		ImagesAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lemon_images_added_total",
			Help: "Images appended to session galleries.",
		}),
		ImagesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lemon_images_removed_total",
			Help: "Images removed from session galleries.",
		}),
		ImageBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lemon_image_size_bytes",
			Help:    "Encoded size of stored images.",
			Buckets: prometheus.ExponentialBuckets(1<<10, 4, 8),
		}),
		SessionsEnded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lemon_sessions_ended_total",
			Help: "Sessions explicitly ended.",
		}),
	}
	reg.MustRegister(
		m.PageViews, m.PageLocked, m.Visits,
		m.ImagesAdded, m.ImagesRemoved, m.ImageBytes, m.SessionsEnded,
	)
	return m
}

// Hooks returns lifecycle hooks that record metrics and log each event.
// A nil logger disables logging.
func (m *Metrics) Hooks(logger *slog.Logger) domain.Hooks {
	log := func(ctx context.Context, msg string, args ...any) {
		if logger != nil {
			logger.DebugContext(ctx, msg, args...)
		}
	}
	return domain.Hooks{
		OnPageView: func(ctx context.Context, e *domain.PageEvent) {
			m.PageViews.WithLabelValues(e.Key).Inc()
			log(ctx, "page_view", "session_id", e.SessionID, "page", e.Key, "frontier", e.Frontier)
		},
		OnPageLocked: func(ctx context.Context, e *domain.PageEvent) {
			m.PageLocked.WithLabelValues(e.Key).Inc()
			if logger != nil {
				logger.InfoContext(ctx, "page_locked", "session_id", e.SessionID, "page", e.Key, "frontier", e.Frontier)
			}
		},
		OnVisited: func(ctx context.Context, e *domain.PageEvent) {
			m.Visits.WithLabelValues(e.Key).Inc()
			log(ctx, "page_visited", "session_id", e.SessionID, "page", e.Key)
		},
		OnImageAdded: func(ctx context.Context, e *domain.ImageEvent) {
			m.ImagesAdded.Inc()
			m.ImageBytes.Observe(float64(e.Size))
			log(ctx, "image_added", "session_id", e.SessionID, "index", e.Index, "size", e.Size)
		},
		OnImageRemoved: func(ctx context.Context, e *domain.ImageEvent) {
			m.ImagesRemoved.Inc()
			log(ctx, "image_removed", "session_id", e.SessionID, "index", e.Index)
		},
		OnSessionEnded: func(ctx context.Context, sessionID string) {
			m.SessionsEnded.Inc()
			log(ctx, "session_ended", "session_id", sessionID)
		},
	}
}
