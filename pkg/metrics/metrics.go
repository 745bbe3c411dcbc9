package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intranet_http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intranet_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_ws_active_sessions",
			Help: "Number of live chat sessions.",
		},
	)
	chatEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_events_total",
			Help: "Chat events observed by sessions.",
		},
		[]string{"event"},
	)
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_upserted_total",
			Help: "Notification upserts by type and result.",
		},
		[]string{"type", "result"},
	)
	pushTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_deliveries_total",
			Help: "Web push deliveries by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveSessions,
		chatEventsTotal,
		notificationsTotal,
		pushTotal,
	)
}

// FiberMiddleware 記錄 HTTP 請求數與延遲
func FiberMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		route := c.Route().Path
		if route == "" {
			route = c.Path()
		}
		httpRequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(c.Response().StatusCode())).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler exposes the default registry for fiber.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

// SessionOpened / SessionClosed track live sessions.
func SessionOpened() { wsActiveSessions.Inc() }

// SessionClosed see SessionOpened.
func SessionClosed() { wsActiveSessions.Dec() }

// ChatEvent counts a chat event such as "unread_increment" or "message_sent".
func ChatEvent(event string) {
	chatEventsTotal.WithLabelValues(event).Inc()
}

// NotificationUpserted counts bridge results: created, merged, suppressed.
func NotificationUpserted(notificationType, result string) {
	notificationsTotal.WithLabelValues(notificationType, result).Inc()
}

// PushDelivered counts web push results.
func PushDelivered(result string) {
	pushTotal.WithLabelValues(result).Inc()
}
