package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hackathon"

// Metrics holds the collectors for wildcards, the change feed and routers.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ticketsCreated      prometheus.Counter
	ticketsResolved     prometheus.Counter
	quotaRejections     prometheus.Counter
	feedPublished       *prometheus.CounterVec
	feedDropped         prometheus.Counter
	notifications       *prometheus.CounterVec
	activeSubscriptions prometheus.Gauge
	subscribeFailures   prometheus.Counter
	handlerErrors       prometheus.Counter
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ticketsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wildcards_created_total",
			Help:      "Total number of help requests created",
		}),
		ticketsResolved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wildcards_resolved_total",
			Help:      "Total number of help requests resolved",
		}),
		quotaRejections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wildcard_quota_rejections_total",
			Help:      "Total number of help requests refused by the daily quota",
		}),
		feedPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_events_published_total",
			Help:      "Total number of change events published, by kind",
		}, []string{"kind"}),
		feedDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_events_dropped_total",
			Help:      "Total number of change events dropped for slow subscribers",
		}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_delivered_total",
			Help:      "Total number of notifications handed to viewers, by type",
		}, []string{"type"}),
		activeSubscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "router_subscriptions_active",
			Help:      "Number of notification routers currently subscribed",
		}),
		subscribeFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "router_subscribe_failures_total",
			Help:      "Total number of failed change feed subscriptions",
		}),
		handlerErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "router_event_errors_total",
			Help:      "Total number of events a router failed to handle",
		}),
	}
}

func (m *Metrics) TicketCreated() {
	if m == nil {
		return
	}
	m.ticketsCreated.Inc()
}

func (m *Metrics) TicketResolved() {
	if m == nil {
		return
	}
	m.ticketsResolved.Inc()
}

func (m *Metrics) QuotaRejected() {
	if m == nil {
		return
	}
	m.quotaRejections.Inc()
}

func (m *Metrics) EventPublished(kind string) {
	if m == nil {
		return
	}
	m.feedPublished.WithLabelValues(kind).Inc()
}

func (m *Metrics) EventDropped() {
	if m == nil {
		return
	}
	m.feedDropped.Inc()
}

func (m *Metrics) NotificationDelivered(notificationType string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(notificationType).Inc()
}

func (m *Metrics) SubscriptionOpened() {
	if m == nil {
		return
	}
	m.activeSubscriptions.Inc()
}

func (m *Metrics) SubscriptionClosed() {
	if m == nil {
		return
	}
	m.activeSubscriptions.Dec()
}

func (m *Metrics) SubscribeFailed() {
	if m == nil {
		return
	}
	m.subscribeFailures.Inc()
}

func (m *Metrics) EventHandlingFailed() {
	if m == nil {
		return
	}
	m.handlerErrors.Inc()
}
